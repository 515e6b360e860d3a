package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/KoushikPanda1729/lms-english/internal/domain"
	"github.com/KoushikPanda1729/lms-english/internal/store"
)

const (
	RoleCaller   = "caller"
	RoleReceiver = "receiver"
)

// Signaling negotiates which peer creates the WebRTC offer and relays
// handshake payloads between the two room members. Payloads are
// opaque: only the message kind and room id are ever inspected.
type Signaling struct {
	store    store.Store
	registry *Registry
	teardown *Teardown
	cfg      MatchmakerConfig
}

func NewSignaling(st store.Store, reg *Registry, teardown *Teardown, cfg MatchmakerConfig) *Signaling {
	return &Signaling{store: st, registry: reg, teardown: teardown, cfg: cfg}
}

func (s *Signaling) isMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (bool, error) {
	if roomID == "" {
		return false, nil
	}
	return s.store.IsSetMember(ctx, store.RoomUsersKey(roomID), string(userID))
}

// JoinRoom is sent by each client right after match_found. The first
// joiner claims the caller role with a single SET-NX and waits
// silently; the second joiner finds the claim taken, reads the holder
// and emits peer_joined to both sides. Whichever join lands the write
// first is deterministically the offerer, even when both arrive at
// once.
func (s *Signaling) JoinRoom(ctx context.Context, userID domain.UserID, roomID domain.RoomID) error {
	ok, err := s.isMember(ctx, roomID, userID)
	if err != nil {
		return fmt.Errorf("membership check: %w", err)
	}
	if !ok {
		return domain.ErrNotInRoom
	}

	claimed, err := s.store.SetNX(ctx, store.CallerKey(roomID), string(userID), s.cfg.RoomTTL)
	if err != nil {
		return fmt.Errorf("claim caller: %w", err)
	}

	if claimed {
		// First peer in; wait for the other side.
		log.Debug().Str("module", "app.signaling").Str("room", string(roomID)).Str("user", string(userID)).Msg("joined, waiting for peer")
		return nil
	}

	caller, err := s.store.Get(ctx, store.CallerKey(roomID))
	if err != nil {
		return fmt.Errorf("read caller: %w", err)
	}
	if caller == "" {
		// Claim expired between SetNX and Get; the room is dying, let
		// TTLs finish it.
		log.Warn().Str("module", "app.signaling").Str("room", string(roomID)).Msg("caller claim vanished")
		return nil
	}

	s.registry.SendEvent(domain.UserID(caller), PeerJoinedEvent{Type: "peer_joined", Role: RoleCaller, RoomID: roomID})
	s.registry.SendEvent(userID, PeerJoinedEvent{Type: "peer_joined", Role: RoleReceiver, RoomID: roomID})
	log.Info().Str("module", "app.signaling").
		Str("room", string(roomID)).
		Str("caller", caller).
		Str("receiver", string(userID)).
		Msg("room ready")
	return nil
}

// Relay forwards a raw handshake frame to the other room member.
// Membership is re-validated on every message, closing the window
// where an already-removed member could still inject frames. Frames
// from non-members are dropped without a reply so room existence never
// leaks; store errors are logged and the frame is dropped without
// touching the room — a transient relay failure must not end the call.
func (s *Signaling) Relay(ctx context.Context, userID domain.UserID, kind string, roomID domain.RoomID, raw []byte) {
	ok, err := s.isMember(ctx, roomID, userID)
	if err != nil {
		log.Error().Str("module", "app.signaling").Str("room", string(roomID)).Str("kind", kind).Err(err).Msg("relay membership check")
		return
	}
	if !ok {
		return
	}

	members, err := s.store.SetMembers(ctx, store.RoomUsersKey(roomID))
	if err != nil {
		log.Error().Str("module", "app.signaling").Str("room", string(roomID)).Str("kind", kind).Err(err).Msg("relay member read")
		return
	}
	if len(members) != 2 {
		// Membership sets are created with exactly two ids and never
		// resized; anything else is an invariant breach.
		log.Error().Str("module", "app.signaling").Str("room", string(roomID)).Int("members", len(members)).Msg("room membership invariant violated")
		return
	}

	for _, m := range members {
		if domain.UserID(m) == userID {
			continue
		}
		s.registry.SendRaw(domain.UserID(m), raw)
	}
	log.Debug().Str("module", "app.signaling").Str("room", string(roomID)).Str("kind", kind).Str("from", string(userID)).Msg("relayed")
}

// EndCall tears the room down on behalf of a member. Non-members are
// ignored silently, mirroring Relay. The second of two racing EndCall
// (or EndCall then disconnect) finds the membership set gone and does
// nothing.
func (s *Signaling) EndCall(ctx context.Context, userID domain.UserID, roomID domain.RoomID) {
	ok, err := s.isMember(ctx, roomID, userID)
	if err != nil {
		log.Error().Str("module", "app.signaling").Str("room", string(roomID)).Err(err).Msg("end_call membership check")
		return
	}
	if !ok {
		return
	}
	s.teardown.Close(ctx, roomID, userID, "ended")
}
