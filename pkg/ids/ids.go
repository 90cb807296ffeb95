// Package ids generates collision-resistant identifiers for stored entities.
package ids

import (
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/nrednav/cuid2"
)

// Length is the length of generated ids, excluding any prefix.
const Length = 24

var generator func() string

func init() {
	var err error
	counter := newCounter(time.Now().UnixNano())

	generator, err = cuid2.Init(
		cuid2.WithRandomFunc(rand.Float64),
		cuid2.WithLength(Length),
		cuid2.WithFingerprint("tube-radar"),
		cuid2.WithSessionCounter(counter),
	)
	if err != nil {
		panic(err)
	}
}

type counter struct {
	value int64
}

func newCounter(initial int64) *counter {
	return &counter{value: initial}
}

func (c *counter) Increment() int64 {
	return atomic.AddInt64(&c.value, 1)
}

// New returns a fresh id.
func New() string {
	return generator()
}

// WithPrefix returns a fresh id tagged with an entity prefix, e.g. "grp_...".
func WithPrefix(prefix string) string {
	return prefix + "_" + generator()
}
