package domain

import "errors"

// Client-facing rejection codes. These are part of the wire contract:
// clients branch on the code, the message is advisory.
const (
	CodeAlreadySearching  = "ALREADY_SEARCHING"
	CodeAlreadyInRoom     = "ALREADY_IN_ROOM"
	CodeProfileIncomplete = "PROFILE_INCOMPLETE"
	CodeBadRequest        = "BAD_REQUEST"
	CodeNotInRoom         = "NOT_IN_ROOM"
	CodeInternal          = "INTERNAL_ERROR"
)

var (
	ErrAlreadySearching  = errors.New("already in search queue")
	ErrAlreadyInRoom     = errors.New("already in an active session")
	ErrProfileIncomplete = errors.New("profile incomplete")
	ErrNotInRoom         = errors.New("not a member of this room")
	ErrRateLimited       = errors.New("too many search requests")
)

// RejectCode maps a domain sentinel to its wire code, or "" when the
// error is not a client rejection (infrastructure failures surface as
// INTERNAL_ERROR at the adapter, not here).
func RejectCode(err error) string {
	switch {
	case errors.Is(err, ErrAlreadySearching):
		return CodeAlreadySearching
	case errors.Is(err, ErrAlreadyInRoom):
		return CodeAlreadyInRoom
	case errors.Is(err, ErrProfileIncomplete):
		return CodeProfileIncomplete
	case errors.Is(err, ErrNotInRoom):
		return CodeNotInRoom
	case errors.Is(err, ErrRateLimited):
		return CodeBadRequest
	}
	return ""
}
