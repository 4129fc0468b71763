package registry

import (
	"fmt"
	"sync"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rotisserie/eris"
)

const (
	versionLayout  = "20060102_150405"
	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLength   = 6
)

// Clock returns the current time.
type Clock func() time.Time

// VersionGenerator issues version tokens of the form
// YYYYMMDD_HHMMSS_ffffff_xxxxxx (UTC, microseconds, random suffix). Tokens from
// one generator sort strictly increasing even when the clock stalls or steps
// backwards.
type VersionGenerator struct {
	mu    sync.Mutex
	clock Clock
	last  time.Time
	rand  func() (string, error)
}

// NewVersionGenerator returns a generator reading clock; nil means time.Now.
func NewVersionGenerator(clock Clock) *VersionGenerator {
	if clock == nil {
		clock = time.Now
	}
	return &VersionGenerator{
		clock: clock,
		rand:  func() (string, error) { return nanoid.Generate(suffixAlphabet, suffixLength) },
	}
}

// Next returns a fresh token.
func (g *VersionGenerator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clock().UTC().Truncate(time.Microsecond)
	if !now.After(g.last) {
		now = g.last.Add(time.Microsecond)
	}
	g.last = now
	suffix, err := g.rand()
	if err != nil {
		return "", eris.Wrap(err, "generate version suffix")
	}
	return formatVersion(now, suffix), nil
}

func formatVersion(t time.Time, suffix string) string {
	return fmt.Sprintf("%s_%06d_%s", t.Format(versionLayout), t.Nanosecond()/int(time.Microsecond), suffix)
}
