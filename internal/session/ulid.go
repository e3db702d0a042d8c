package session

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// IDs are ULIDs: 26 Crockford base32 characters, a 48-bit millisecond
// timestamp followed by 80 bits of which the first 16 are a per-millisecond
// sequence. They sort by creation time.

var (
	idMu    sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewID returns a fresh ULID.
func NewID() string {
	return newIDAt(time.Now())
}

func newIDAt(t time.Time) string {
	idMu.Lock()
	ts := uint64(t.UnixMilli())
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}
	seq := lastSeq
	idMu.Unlock()

	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], ts<<16)
	rand.Read(b[8:])
	binary.BigEndian.PutUint16(b[6:8], seq)
	return encodeULID(b)
}

// encodeULID emits 128 bits as 26 five-bit groups, the first holding only
// the top 3 bits.
func encodeULID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[:8])
	lo := binary.BigEndian.Uint64(b[8:])
	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}

// ValidID reports whether s has the shape of an ID from NewID.
func ValidID(s string) bool {
	if len(s) != 26 || s[0] > '7' {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'A' <= c && c <= 'Z') || c == 'I' || c == 'L' || c == 'O' || c == 'U' {
			return false
		}
	}
	return true
}
