package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/KoushikPanda1729/lms-english/internal/domain"
	"github.com/KoushikPanda1729/lms-english/internal/store"
)

// Teardown is the single room-cleanup routine. Both end_call and
// disconnect converge here so that whichever fires first does the
// work and the second finds absent keys and becomes a no-op.
type Teardown struct {
	Store    store.Store
	Registry *Registry
	Recorder SessionRecorder
}

// Close notifies the other member, deletes every room key and each
// member's room pointer, and asks the recorder to close the record.
// Safe to call repeatedly and concurrently: membership is read before
// deletion, and an already-empty membership set means another caller
// finished first, so nothing is re-notified.
func (t *Teardown) Close(ctx context.Context, roomID domain.RoomID, by domain.UserID, reason string) {
	members, err := t.Store.SetMembers(ctx, store.RoomUsersKey(roomID))
	if err != nil {
		log.Error().Str("module", "app.teardown").Str("room", string(roomID)).Err(err).Msg("read members")
		return
	}

	if len(members) == 0 {
		// Already torn down (or expired). Clear the caller's own
		// pointer in case a previous pass was interrupted.
		if err := t.Store.Del(ctx, store.UserRoomKey(by)); err != nil {
			log.Error().Str("module", "app.teardown").Str("room", string(roomID)).Err(err).Msg("clear stale pointer")
		}
		return
	}

	// Notify peers before the keys disappear.
	for _, m := range members {
		if domain.UserID(m) == by {
			continue
		}
		t.Registry.SendEvent(domain.UserID(m), PeerLeftEvent{Type: "peer_left", Reason: reason})
	}

	duration := t.roomAge(ctx, roomID)

	keys := []string{
		store.RoomUsersKey(roomID),
		store.RoomMetaKey(roomID),
		store.CallerKey(roomID),
		store.UserRoomKey(by),
	}
	for _, m := range members {
		keys = append(keys, store.UserRoomKey(domain.UserID(m)))
	}
	if err := t.Store.Del(ctx, keys...); err != nil {
		// Leave it to TTL expiry; do not retry here.
		log.Error().Str("module", "app.teardown").Str("room", string(roomID)).Err(err).Msg("delete room keys")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.Recorder.CloseSession(ctx, roomID, by); err != nil {
			log.Error().Str("module", "app.teardown").Str("room", string(roomID)).Err(err).Msg("close session record")
		}
	}()

	log.Info().Str("module", "app.teardown").
		Str("room", string(roomID)).
		Str("by", string(by)).
		Str("reason", reason).
		Dur("duration", duration).
		Msg("room closed")
}

// roomAge derives the call duration from the meta createdAt field.
// Zero when the meta is gone or unparseable.
func (t *Teardown) roomAge(ctx context.Context, roomID domain.RoomID) time.Duration {
	meta, err := t.Store.GetHash(ctx, store.RoomMetaKey(roomID))
	if err != nil {
		return 0
	}
	created, err := time.Parse(time.RFC3339, meta["createdAt"])
	if err != nil {
		return 0
	}
	return time.Since(created).Truncate(time.Second)
}
