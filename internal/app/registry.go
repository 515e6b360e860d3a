package app

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/KoushikPanda1729/lms-english/internal/domain"
)

// Conn is one live client connection. TrySend must not block; it
// returns an error when the send buffer is full and the frame was
// dropped. Owned by the adapter, which must Close it.
type Conn interface {
	TrySend([]byte) error
}

// Registry maps authenticated users to their live connections and
// supports targeted delivery. A user may hold more than one
// connection (two tabs); events fan out to all of them. This is the
// only in-process shared state the service keeps, and it is purely a
// routing table — room and queue truth lives in the Store.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.UserID]map[Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.UserID]map[Conn]struct{})}
}

// Bind registers a live connection. Connection lifecycle (context
// cancellation, close) stays with the owning adapter; the registry is
// purely a delivery table.
func (r *Registry) Bind(id domain.UserID, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[id]
	if !ok {
		set = make(map[Conn]struct{})
		r.conns[id] = set
	}
	set[c] = struct{}{}
	log.Info().Str("module", "app.registry").Str("user", string(id)).Msg("bound connection")
}

// Unbind removes one connection. LastGone reports whether the user has
// no connections left, so the caller can run disconnect cleanup once.
func (r *Registry) Unbind(id domain.UserID, c Conn) (lastGone bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[id]
	if !ok {
		return true
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, id)
		lastGone = true
	}
	log.Info().Str("module", "app.registry").Str("user", string(id)).Bool("last", lastGone).Msg("unbound connection")
	return lastGone
}

// SendRaw delivers pre-encoded bytes to every connection of the user.
// Fire-and-forget: full buffers drop the frame for that connection.
func (r *Registry) SendRaw(id domain.UserID, data []byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.conns[id]
	if !ok || len(set) == 0 {
		return false
	}
	for c := range set {
		if err := c.TrySend(data); err != nil {
			log.Warn().Str("module", "app.registry").Str("user", string(id)).Err(err).Msg("dropped frame")
		}
	}
	return true
}

// SendEvent marshals v and delivers it to every connection of the user.
func (r *Registry) SendEvent(id domain.UserID, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Str("module", "app.registry").Err(err).Msg("event marshal")
		return false
	}
	return r.SendRaw(id, data)
}
