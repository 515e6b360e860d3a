// Package turn mints time-limited TURN REST credentials
// (draft-uberti-behave-turn-rest): username is "expiry:userId", the
// credential is an HMAC-SHA1 over it with the shared relay secret.
package turn

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/KoushikPanda1729/lms-english/internal/domain"
)

const credentialTTL = time.Hour

type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username"`
	Credential string   `json:"credential"`
}

type Generator struct {
	host   string
	port   int
	secret []byte

	now func() time.Time
}

func NewGenerator(host string, port int, secret string) *Generator {
	return &Generator{host: host, port: port, secret: []byte(secret), now: time.Now}
}

func (g *Generator) Credentials(id domain.UserID) ICEServer {
	expiresAt := g.now().Add(credentialTTL).Unix()
	username := fmt.Sprintf("%d:%s", expiresAt, id)

	mac := hmac.New(sha1.New, g.secret)
	mac.Write([]byte(username))
	credential := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return ICEServer{
		Username:   username,
		Credential: credential,
		URLs: []string{
			fmt.Sprintf("stun:%s:%d", g.host, g.port),
			fmt.Sprintf("turn:%s:%d", g.host, g.port),
			fmt.Sprintf("turn:%s:%d?transport=tcp", g.host, g.port),
		},
	}
}

// MediaCredentials satisfies the matchmaker's credential source; the
// payload shape matches the RTCPeerConnection iceServers option.
func (g *Generator) MediaCredentials(id domain.UserID) any {
	return []ICEServer{g.Credentials(id)}
}
