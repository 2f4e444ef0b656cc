package service

import (
	"fmt"
	"sync/atomic"
	"time"

	"signal_bridge/internal/domain"

	"github.com/google/uuid"
)

// orderKeyNamespace scopes name-based order keys to this service.
var orderKeyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("signal-bridge/order-key"))

// KeyGenerator derives per-attempt idempotency keys for the venue.
// Keys are name-based UUIDs over {side, ticker, timestamp, sequence}; the
// sequence keeps keys distinct even when the clock does not advance.
type KeyGenerator struct {
	now func() time.Time
	seq atomic.Uint64
}

// NewKeyGenerator creates a generator using the wall clock.
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{now: time.Now}
}

// NewKeyGeneratorWithClock creates a generator with an injected clock.
func NewKeyGeneratorWithClock(now func() time.Time) *KeyGenerator {
	return &KeyGenerator{now: now}
}

// Next returns a fresh key. It never returns the same key twice in a process.
func (g *KeyGenerator) Next(side domain.Side, ticker string) string {
	seq := g.seq.Add(1)
	name := fmt.Sprintf("%s:%s:%d:%d", side.Action(), ticker, g.now().UnixNano(), seq)
	return uuid.NewSHA1(orderKeyNamespace, []byte(name)).String()
}
