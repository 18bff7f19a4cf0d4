package actionlog

import (
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
)

// idEntropy is a process-wide, goroutine-safe source of randomness for action
// ids.
var idEntropy = ulid.DefaultEntropy()

// newID returns a 24 lowercase-hex-character opaque id, unique with very high
// probability within this process. It reuses the ULID's timestamp+entropy
// construction for monotonic-within-a-millisecond ordering, but re-encodes
// the low 12 bytes as hex rather than emitting a full base32 ULID, to match
// the wire id shape fixed by the action log format.
func newID() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy)
	return hex.EncodeToString(id[4:16]) // 12 bytes -> 24 hex chars, drop the first 4 of the 6 timestamp bytes
}
