package store

import (
	"fmt"

	"github.com/KoushikPanda1729/lms-english/internal/domain"
)

// Key layout. Matchmaking owns the match:* keys, signaling owns
// sig:*; both read across the boundary but only the owner writes.
//
//	match:queue:<level>        FIFO list of waiting user ids
//	match:searching:<userId>   liveness flag, short TTL
//	match:room:<roomId>:users  two-member set
//	match:room:<roomId>:meta   hash: createdAt, level, topic, userAId, userBId
//	match:user:<userId>:room   pointer to the user's active room
//	sig:room:<roomId>:caller   offerer claim, set NX by the first joiner

func QueueKey(level domain.Level) string {
	return fmt.Sprintf("match:queue:%s", level)
}

func SearchingKey(id domain.UserID) string {
	return fmt.Sprintf("match:searching:%s", id)
}

func RoomUsersKey(id domain.RoomID) string {
	return fmt.Sprintf("match:room:%s:users", id)
}

func RoomMetaKey(id domain.RoomID) string {
	return fmt.Sprintf("match:room:%s:meta", id)
}

func UserRoomKey(id domain.UserID) string {
	return fmt.Sprintf("match:user:%s:room", id)
}

func CallerKey(id domain.RoomID) string {
	return fmt.Sprintf("sig:room:%s:caller", id)
}
