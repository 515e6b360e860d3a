package app

import (
	"context"

	"github.com/KoushikPanda1729/lms-english/internal/domain"
)

// External collaborators. The service never touches their storage; it
// talks to them through these two narrow interfaces and tolerates
// their absence.

// ProfileSource resolves a user id to public matching attributes.
type ProfileSource interface {
	Profile(ctx context.Context, id domain.UserID) (domain.Profile, error)
}

// SessionRecorder keeps the durable call history. Both calls are
// best-effort: failures are logged by the caller and never block or
// reverse a match or a teardown. CloseSession is idempotent on the
// recorder's side.
type SessionRecorder interface {
	CreateSession(ctx context.Context, roomID domain.RoomID, userA, userB domain.UserID, level domain.Level, topic string) error
	CloseSession(ctx context.Context, roomID domain.RoomID, endedBy domain.UserID) error
}

// CredentialSource mints per-user media-relay credentials for
// match_found. The payload is opaque to matchmaking.
type CredentialSource interface {
	MediaCredentials(id domain.UserID) any
}
