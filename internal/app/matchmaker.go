package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/KoushikPanda1729/lms-english/internal/domain"
	"github.com/KoushikPanda1729/lms-english/internal/store"
)

const estimatedWaitSeconds = 30

// MatchmakerConfig bounds the queue protocol. MaxStaleSkips caps how
// many expired tickets one find_partner will pop past before giving up
// and queueing; it is a policy knob, not a correctness requirement.
type MatchmakerConfig struct {
	QueueTTL      time.Duration
	RoomTTL       time.Duration
	MaxStaleSkips int
}

// Matchmaker converts a find-partner intent into an immediate match or
// a queued wait. Per user the states are idle → searching → matched →
// idle; cancel and disconnect both fall back to idle from anywhere.
// All cross-connection state goes through the Store.
type Matchmaker struct {
	store    store.Store
	registry *Registry
	profiles ProfileSource
	recorder SessionRecorder
	creds    CredentialSource
	limiter  *SearchLimiter
	teardown *Teardown
	cfg      MatchmakerConfig
}

func NewMatchmaker(
	st store.Store,
	reg *Registry,
	profiles ProfileSource,
	recorder SessionRecorder,
	creds CredentialSource,
	limiter *SearchLimiter,
	teardown *Teardown,
	cfg MatchmakerConfig,
) *Matchmaker {
	if cfg.MaxStaleSkips <= 0 {
		cfg.MaxStaleSkips = 5
	}
	return &Matchmaker{
		store:    st,
		registry: reg,
		profiles: profiles,
		recorder: recorder,
		creds:    creds,
		limiter:  limiter,
		teardown: teardown,
		cfg:      cfg,
	}
}

// FindPartner runs the precondition guards, then either pairs the user
// with a live waiting partner or queues them. Rejections come back as
// domain sentinels; any other error is infrastructure and left no
// partial room behind.
func (m *Matchmaker) FindPartner(ctx context.Context, userID domain.UserID, level domain.Level, topic string) error {
	if m.limiter != nil && !m.limiter.Allow(userID) {
		return domain.ErrRateLimited
	}

	// Guards short-circuit before any store mutation.
	if flag, err := m.store.Get(ctx, store.SearchingKey(userID)); err != nil {
		return fmt.Errorf("check searching flag: %w", err)
	} else if flag != "" {
		return domain.ErrAlreadySearching
	}

	if room, err := m.store.Get(ctx, store.UserRoomKey(userID)); err != nil {
		return fmt.Errorf("check room pointer: %w", err)
	} else if room != "" {
		return domain.ErrAlreadyInRoom
	}

	profile, err := m.profiles.Profile(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve profile: %w", err)
	}
	if !profile.Complete() {
		return domain.ErrProfileIncomplete
	}

	if level == "" {
		level = profile.Level
	}

	partnerID, err := m.popLivePartner(ctx, userID, level)
	if err != nil {
		return err
	}

	if partnerID == "" {
		return m.enqueue(ctx, userID, level)
	}
	return m.match(ctx, userID, profile, partnerID, level, topic)
}

// popLivePartner pops queue heads until one still carries a live
// searching flag. Entries whose flag expired belong to clients that
// crashed without cancelling; they are skipped, at most
// MaxStaleSkips of them, so a corrupted queue cannot stall the
// request forever.
func (m *Matchmaker) popLivePartner(ctx context.Context, requester domain.UserID, level domain.Level) (domain.UserID, error) {
	for i := 0; i < m.cfg.MaxStaleSkips; i++ {
		candidate, err := m.store.PopHead(ctx, store.QueueKey(level))
		if err != nil {
			return "", fmt.Errorf("pop queue: %w", err)
		}
		if candidate == "" {
			return "", nil
		}
		flag, err := m.store.Get(ctx, store.SearchingKey(domain.UserID(candidate)))
		if err != nil {
			return "", fmt.Errorf("check candidate flag: %w", err)
		}
		if flag == "" {
			// Expired flag means a crashed or lapsed client — discard
			// the ticket. This applies to the requester's own stale
			// ticket too: the retry then falls through to a fresh
			// enqueue instead of rejecting forever.
			log.Debug().Str("module", "app.matchmaker").Str("user", candidate).Msg("skipped stale queue entry")
			continue
		}
		if domain.UserID(candidate) == requester {
			// A live own ticket: a duplicate request raced past the
			// searching-flag guard and popped the ticket it just
			// queued. Restore it and reject the duplicate; never
			// self-match.
			if err := m.store.PushTail(ctx, store.QueueKey(level), candidate); err != nil {
				return "", fmt.Errorf("restore own ticket: %w", err)
			}
			return "", domain.ErrAlreadySearching
		}
		return domain.UserID(candidate), nil
	}
	return "", nil
}

func (m *Matchmaker) enqueue(ctx context.Context, userID domain.UserID, level domain.Level) error {
	if err := m.store.PushTail(ctx, store.QueueKey(level), string(userID)); err != nil {
		return fmt.Errorf("join queue: %w", err)
	}
	if err := m.store.Set(ctx, store.SearchingKey(userID), "1", m.cfg.QueueTTL); err != nil {
		return fmt.Errorf("set searching flag: %w", err)
	}
	m.registry.SendEvent(userID, SearchingEvent{Type: "searching", EstimatedWaitSeconds: estimatedWaitSeconds})
	log.Debug().Str("module", "app.matchmaker").Str("user", string(userID)).Str("level", string(level)).Msg("queued")
	return nil
}

// match creates the room. Write order matters for crash recovery: the
// membership set and meta go in before the user→room pointers, so an
// interrupted match leaves a room nobody points at (reaped by TTL)
// rather than a room only one side can reach.
func (m *Matchmaker) match(ctx context.Context, userID domain.UserID, profile domain.Profile, partnerID domain.UserID, level domain.Level, topic string) error {
	roomID := domain.RoomID(uuid.NewString())

	if err := m.store.Del(ctx, store.SearchingKey(partnerID)); err != nil {
		return fmt.Errorf("clear partner flag: %w", err)
	}

	if err := m.store.AddToSet(ctx, store.RoomUsersKey(roomID), m.cfg.RoomTTL, string(userID), string(partnerID)); err != nil {
		return fmt.Errorf("write room members: %w", err)
	}
	meta := map[string]string{
		"createdAt": time.Now().UTC().Format(time.RFC3339),
		"level":     string(level),
		"topic":     topic,
		"userAId":   string(partnerID),
		"userBId":   string(userID),
	}
	if err := m.store.SetHash(ctx, store.RoomMetaKey(roomID), meta, m.cfg.RoomTTL); err != nil {
		return fmt.Errorf("write room meta: %w", err)
	}
	if err := m.store.Set(ctx, store.UserRoomKey(userID), string(roomID), m.cfg.RoomTTL); err != nil {
		return fmt.Errorf("write room pointer: %w", err)
	}
	if err := m.store.Set(ctx, store.UserRoomKey(partnerID), string(roomID), m.cfg.RoomTTL); err != nil {
		return fmt.Errorf("write partner room pointer: %w", err)
	}

	// Audit record is best-effort and never undoes the match.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.recorder.CreateSession(ctx, roomID, partnerID, userID, level, topic); err != nil {
			log.Error().Str("module", "app.matchmaker").Str("room", string(roomID)).Err(err).Msg("create session record")
		}
	}()

	partnerProfile, err := m.profiles.Profile(ctx, partnerID)
	if err != nil {
		// The room already exists; deliver what we have.
		log.Error().Str("module", "app.matchmaker").Str("user", string(partnerID)).Err(err).Msg("partner profile lookup")
		partnerProfile = domain.Profile{UserID: partnerID}
	}

	m.registry.SendEvent(partnerID, MatchFoundEvent{
		Type:       "match_found",
		RoomID:     roomID,
		Partner:    partnerInfo(profile),
		IceServers: m.creds.MediaCredentials(partnerID),
	})
	m.registry.SendEvent(userID, MatchFoundEvent{
		Type:       "match_found",
		RoomID:     roomID,
		Partner:    partnerInfo(partnerProfile),
		IceServers: m.creds.MediaCredentials(userID),
	})

	log.Info().Str("module", "app.matchmaker").
		Str("room", string(roomID)).
		Str("user", string(userID)).
		Str("partner", string(partnerID)).
		Str("level", string(level)).
		Msg("match made")
	return nil
}

func partnerInfo(p domain.Profile) PartnerInfo {
	return PartnerInfo{
		UserID:      p.UserID,
		DisplayName: p.Display(),
		AvatarURL:   p.AvatarURL,
		Level:       p.Level,
	}
}

// CancelSearch removes the user from every level queue and clears the
// searching flag. Idempotent: calling it while not searching is a
// no-op, including concurrently with a retried find_partner.
func (m *Matchmaker) CancelSearch(ctx context.Context, userID domain.UserID) error {
	if err := m.store.Del(ctx, store.SearchingKey(userID)); err != nil {
		return fmt.Errorf("clear searching flag: %w", err)
	}
	for _, level := range domain.Levels {
		if err := m.store.RemoveFromList(ctx, store.QueueKey(level), string(userID)); err != nil {
			return fmt.Errorf("leave queue %s: %w", level, err)
		}
	}
	log.Debug().Str("module", "app.matchmaker").Str("user", string(userID)).Msg("search cancelled")
	return nil
}

// Disconnect is the abrupt-loss path: always cancel any pending
// search, then, if the user is mid-call, run the shared teardown so
// the peer is told and the room state goes away exactly once.
// Failures are logged, not raised; TTL expiry is the backstop.
func (m *Matchmaker) Disconnect(ctx context.Context, userID domain.UserID) {
	if m.limiter != nil {
		m.limiter.Forget(userID)
	}
	if err := m.CancelSearch(ctx, userID); err != nil {
		log.Error().Str("module", "app.matchmaker").Str("user", string(userID)).Err(err).Msg("cleanup on disconnect")
	}

	room, err := m.store.Get(ctx, store.UserRoomKey(userID))
	if err != nil {
		log.Error().Str("module", "app.matchmaker").Str("user", string(userID)).Err(err).Msg("room lookup on disconnect")
		return
	}
	if room == "" {
		return
	}
	m.teardown.Close(ctx, domain.RoomID(room), userID, "disconnect")
}
