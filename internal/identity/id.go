package identity

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ID is an opaque, globally unique identity identifier. Its text form is
// lexically sortable by creation time (spec.md §6 "Identifier format"):
// a fixed-width hex millisecond timestamp prefix followed by a uuid-
// derived random tail for collision resistance, the same "timestamp
// prefix + uuid tail" shape juliankoehn-goplugins's Model.BeforeSave uses
// to stamp a fresh uuid.New() onto a row before insert, adapted here so
// the id itself — not just a DB column — carries creation order.
type ID string

var (
	lastIDMilliMu sync.Mutex
	lastIDMilli   int64
)

// newID mints an ID whose lexical order equals creation order, given the
// creation instant in milliseconds since the epoch. An ID minted in the
// same (or an earlier) millisecond as the previous one gets the previous
// timestamp plus one, so the prefix alone orders IDs.
func newID(unixMilli int64) ID {
	lastIDMilliMu.Lock()
	if unixMilli <= lastIDMilli {
		unixMilli = lastIDMilli + 1
	}
	lastIDMilli = unixMilli
	lastIDMilliMu.Unlock()

	var tsBuf [8]byte
	for i := 7; i >= 0; i-- {
		tsBuf[i] = byte(unixMilli & 0xff)
		unixMilli >>= 8
	}
	tail := uuid.New()
	return ID(fmt.Sprintf("%s-%s", hex.EncodeToString(tsBuf[:]), tail.String()))
}
