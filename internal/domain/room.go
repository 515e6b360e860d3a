package domain

import "time"

type (
	RoomID string
	Level  string
)

const (
	LevelAll          Level = "all"
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Levels lists every queue a user may wait in. Cancellation sweeps all
// of them so a retried find_partner with a different level cannot leave
// a stray ticket behind.
var Levels = []Level{LevelAll, LevelBeginner, LevelIntermediate, LevelAdvanced}

func (l Level) Valid() bool {
	switch l {
	case LevelAll, LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// RoomMeta is the immutable per-room record written at match time.
type RoomMeta struct {
	CreatedAt time.Time
	Level     Level
	Topic     string
	UserA     UserID
	UserB     UserID
}
