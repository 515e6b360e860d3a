package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/KoushikPanda1729/lms-english/internal/domain"
	"github.com/KoushikPanda1729/lms-english/internal/store"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *fakeConn) TrySend(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), b...))
	return nil
}

// eventsOf decodes every received frame and returns those whose type
// matches.
func (c *fakeConn) eventsOf(t *testing.T, typ string) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, f := range c.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("undecodable frame %q: %v", f, err)
		}
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) rawFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[domain.UserID]domain.Profile
}

func (p *fakeProfiles) Profile(_ context.Context, id domain.UserID) (domain.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profiles[id], nil
}

type sessionCall struct {
	RoomID  domain.RoomID
	UserA   domain.UserID
	UserB   domain.UserID
	EndedBy domain.UserID
}

type fakeRecorder struct {
	created chan sessionCall
	closed  chan sessionCall
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		created: make(chan sessionCall, 8),
		closed:  make(chan sessionCall, 8),
	}
}

func (r *fakeRecorder) CreateSession(_ context.Context, roomID domain.RoomID, userA, userB domain.UserID, _ domain.Level, _ string) error {
	r.created <- sessionCall{RoomID: roomID, UserA: userA, UserB: userB}
	return nil
}

func (r *fakeRecorder) CloseSession(_ context.Context, roomID domain.RoomID, endedBy domain.UserID) error {
	r.closed <- sessionCall{RoomID: roomID, EndedBy: endedBy}
	return nil
}

func (r *fakeRecorder) waitCreated(t *testing.T) sessionCall {
	t.Helper()
	select {
	case c := <-r.created:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session create")
		return sessionCall{}
	}
}

func (r *fakeRecorder) waitClosed(t *testing.T) sessionCall {
	t.Helper()
	select {
	case c := <-r.closed:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session close")
		return sessionCall{}
	}
}

type fakeCreds struct{}

func (fakeCreds) MediaCredentials(id domain.UserID) any {
	return map[string]string{"for": string(id)}
}

type harness struct {
	store    *store.Memory
	registry *Registry
	profiles *fakeProfiles
	recorder *fakeRecorder
	teardown *Teardown
	match    *Matchmaker
	signal   *Signaling
	conns    map[domain.UserID]*fakeConn
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := store.NewMemory()
	reg := NewRegistry()
	profiles := &fakeProfiles{profiles: make(map[domain.UserID]domain.Profile)}
	recorder := newFakeRecorder()
	td := &Teardown{Store: st, Registry: reg, Recorder: recorder}
	cfg := MatchmakerConfig{
		QueueTTL:      5 * time.Minute,
		RoomTTL:       2 * time.Hour,
		MaxStaleSkips: 5,
	}
	return &harness{
		store:    st,
		registry: reg,
		profiles: profiles,
		recorder: recorder,
		teardown: td,
		match:    NewMatchmaker(st, reg, profiles, recorder, fakeCreds{}, nil, td, cfg),
		signal:   NewSignaling(st, reg, td, cfg),
		conns:    make(map[domain.UserID]*fakeConn),
	}
}

// addUser registers a complete profile and a live connection.
func (h *harness) addUser(id domain.UserID, level domain.Level) *fakeConn {
	h.profiles.mu.Lock()
	h.profiles.profiles[id] = domain.Profile{
		UserID:   id,
		Username: string(id),
		Level:    level,
	}
	h.profiles.mu.Unlock()

	c := &fakeConn{}
	h.registry.Bind(id, c)
	h.conns[id] = c
	return c
}

// matchPair drives two users through find_partner and returns the
// shared room id.
func (h *harness) matchPair(t *testing.T, a, b domain.UserID) domain.RoomID {
	t.Helper()
	ctx := context.Background()
	if err := h.match.FindPartner(ctx, a, "", ""); err != nil {
		t.Fatalf("find_partner(%s): %v", a, err)
	}
	if err := h.match.FindPartner(ctx, b, "", ""); err != nil {
		t.Fatalf("find_partner(%s): %v", b, err)
	}
	found := h.conns[a].eventsOf(t, "match_found")
	if len(found) != 1 {
		t.Fatalf("user %s: got %d match_found events, want 1", a, len(found))
	}
	return domain.RoomID(found[0]["roomId"].(string))
}
