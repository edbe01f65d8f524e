package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string, used as the partition key for both user
// and contact records. ULIDs sort lexicographically by creation time, so ids
// double as a stable creation order without a separate sequence.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
