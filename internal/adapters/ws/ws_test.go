package ws_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"

	router "github.com/KoushikPanda1729/lms-english/internal/adapters/http"
	"github.com/KoushikPanda1729/lms-english/internal/adapters/ws"
	"github.com/KoushikPanda1729/lms-english/internal/app"
	"github.com/KoushikPanda1729/lms-english/internal/config"
	"github.com/KoushikPanda1729/lms-english/internal/domain"
	"github.com/KoushikPanda1729/lms-english/internal/identity"
	"github.com/KoushikPanda1729/lms-english/internal/store"
)

const testSecret = "test-secret"

type staticProfiles map[domain.UserID]domain.Profile

func (p staticProfiles) Profile(_ context.Context, id domain.UserID) (domain.Profile, error) {
	return p[id], nil
}

type nullRecorder struct{}

func (nullRecorder) CreateSession(context.Context, domain.RoomID, domain.UserID, domain.UserID, domain.Level, string) error {
	return nil
}
func (nullRecorder) CloseSession(context.Context, domain.RoomID, domain.UserID) error { return nil }

type staticCreds struct{}

func (staticCreds) MediaCredentials(id domain.UserID) any {
	return []map[string]string{{"username": string(id)}}
}

func newTestServer(t *testing.T, profiles staticProfiles) *httptest.Server {
	t.Helper()
	st := store.NewMemory()
	reg := app.NewRegistry()
	td := &app.Teardown{Store: st, Registry: reg, Recorder: nullRecorder{}}
	cfg := app.MatchmakerConfig{QueueTTL: 5 * time.Minute, RoomTTL: 2 * time.Hour, MaxStaleSkips: 5}
	match := app.NewMatchmaker(st, reg, profiles, nullRecorder{}, staticCreds{}, nil, td, cfg)
	signal := app.NewSignaling(st, reg, td, cfg)
	ctl := ws.NewController(match, signal, reg, 32768, time.Minute)

	conf := &config.Config{Mode: "release"}
	r := router.SetupRouter(context.Background(), conf, identity.NewResolver(testSecret), ctl)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func mintToken(t *testing.T, subject string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server, userID string) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + mintToken(t, userID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial as %s: %v", userID, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(v any) {
	c.t.Helper()
	if err := c.conn.WriteJSON(v); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *client) read() map[string]any {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		c.t.Fatalf("decode %q: %v", data, err)
	}
	return m
}

func (c *client) expect(typ string) map[string]any {
	c.t.Helper()
	m := c.read()
	if m["type"] != typ {
		c.t.Fatalf("got event %v, want type %q", m, typ)
	}
	return m
}

func testProfiles() staticProfiles {
	return staticProfiles{
		"anna": {UserID: "anna", Username: "anna", DisplayName: "Anna", Level: domain.LevelBeginner},
		"ben":  {UserID: "ben", Username: "ben", Level: domain.LevelBeginner},
	}
}

func TestDialRejectsBadToken(t *testing.T) {
	srv := newTestServer(t, testProfiles())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial with a bad token succeeded")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("resp = %v, want 401", resp)
	}
}

func TestFullCallFlow(t *testing.T) {
	srv := newTestServer(t, testProfiles())

	anna := dial(t, srv, "anna")
	ben := dial(t, srv, "ben")

	// Matchmaking.
	anna.send(map[string]string{"type": "find_partner", "level": "beginner"})
	anna.expect("searching")

	ben.send(map[string]string{"type": "find_partner", "level": "beginner"})
	annaMatch := anna.expect("match_found")
	benMatch := ben.expect("match_found")

	roomID := annaMatch["roomId"].(string)
	if benMatch["roomId"].(string) != roomID {
		t.Fatalf("room ids differ: %v vs %v", annaMatch["roomId"], benMatch["roomId"])
	}
	annaPartner := annaMatch["partner"].(map[string]any)
	if annaPartner["userId"] != "ben" {
		t.Fatalf("anna's partner = %v, want ben", annaPartner)
	}
	if annaMatch["iceServers"] == nil {
		t.Fatal("match_found without media credentials")
	}

	// Role negotiation.
	anna.send(map[string]string{"type": "join_room", "roomId": roomID})
	ben.send(map[string]string{"type": "join_room", "roomId": roomID})

	annaJoined := anna.expect("peer_joined")
	benJoined := ben.expect("peer_joined")
	roles := map[any]bool{annaJoined["role"]: true, benJoined["role"]: true}
	if !roles["caller"] || !roles["receiver"] {
		t.Fatalf("roles = %v and %v, want one caller and one receiver", annaJoined["role"], benJoined["role"])
	}

	// Handshake relay, verbatim.
	anna.send(map[string]any{"type": "webrtc_offer", "roomId": roomID, "sdp": "v=0 fake-offer"})
	offer := ben.expect("webrtc_offer")
	if offer["sdp"] != "v=0 fake-offer" {
		t.Fatalf("offer payload = %v", offer)
	}
	ben.send(map[string]any{"type": "webrtc_answer", "roomId": roomID, "sdp": "v=0 fake-answer"})
	if answer := anna.expect("webrtc_answer"); answer["sdp"] != "v=0 fake-answer" {
		t.Fatalf("answer payload = %v", answer)
	}

	// Teardown.
	anna.send(map[string]string{"type": "end_call", "roomId": roomID})
	if left := ben.expect("peer_left"); left["reason"] != "ended" {
		t.Fatalf("peer_left = %v", left)
	}
}

func TestFindPartnerRejectionEvent(t *testing.T) {
	srv := newTestServer(t, testProfiles())
	anna := dial(t, srv, "anna")

	anna.send(map[string]string{"type": "find_partner"})
	anna.expect("searching")

	anna.send(map[string]string{"type": "find_partner"})
	ev := anna.expect("error")
	if ev["code"] != domain.CodeAlreadySearching {
		t.Fatalf("error code = %v, want %s", ev["code"], domain.CodeAlreadySearching)
	}
}

func TestBadPayloadsRejected(t *testing.T) {
	srv := newTestServer(t, testProfiles())
	anna := dial(t, srv, "anna")

	anna.send(map[string]string{"type": "join_room"})
	if ev := anna.expect("error"); ev["code"] != domain.CodeBadRequest {
		t.Fatalf("error code = %v, want %s", ev["code"], domain.CodeBadRequest)
	}

	anna.send(map[string]string{"type": "find_partner", "level": "expert"})
	if ev := anna.expect("error"); ev["code"] != domain.CodeBadRequest {
		t.Fatalf("error code = %v, want %s", ev["code"], domain.CodeBadRequest)
	}
}

func TestJoinForeignRoomRejected(t *testing.T) {
	srv := newTestServer(t, testProfiles())
	anna := dial(t, srv, "anna")

	anna.send(map[string]string{"type": "join_room", "roomId": "not-a-real-room"})
	if ev := anna.expect("error"); ev["code"] != domain.CodeNotInRoom {
		t.Fatalf("error code = %v, want %s", ev["code"], domain.CodeNotInRoom)
	}
}

func TestPingPong(t *testing.T) {
	srv := newTestServer(t, testProfiles())
	anna := dial(t, srv, "anna")
	anna.send(map[string]string{"type": "ping"})
	anna.expect("pong")
}
