package app

import "github.com/KoushikPanda1729/lms-english/internal/domain"

// Server → client events. Every frame carries a "type" discriminator;
// the rest of the shape is part of the wire contract.

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorEvent(code, message string) ErrorEvent {
	return ErrorEvent{Type: "error", Code: code, Message: message}
}

type SearchingEvent struct {
	Type                 string `json:"type"`
	EstimatedWaitSeconds int    `json:"estimated_wait_seconds"`
}

type PartnerInfo struct {
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
	AvatarURL   string        `json:"avatarUrl"`
	Level       domain.Level  `json:"level"`
}

type MatchFoundEvent struct {
	Type    string        `json:"type"`
	RoomID  domain.RoomID `json:"roomId"`
	Partner PartnerInfo   `json:"partner"`
	// IceServers is opaque relay-credential data minted per user;
	// matchmaking threads it through unchanged.
	IceServers any `json:"iceServers"`
}

type PeerJoinedEvent struct {
	Type   string        `json:"type"`
	Role   string        `json:"role"` // "caller" | "receiver"
	RoomID domain.RoomID `json:"roomId"`
}

type PeerLeftEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"` // "ended" | "disconnect"
}
