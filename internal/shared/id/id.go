// Package id generates the ULID-based identifiers used by sessiond.
//
// Session ids look like "session-01J9Z3..." so stored records sort by
// creation time. Trace and span ids carry short prefixes for readable logs.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionID names a stored session record.
type SessionID string

// TraceID groups the spans of one request.
type TraceID string

// SpanID names a single traced operation.
type SpanID string

const (
	SessionPrefix = "session-"
	TracePrefix   = "trace_"
	SpanPrefix    = "span_"
)

// Generator produces monotonic ULIDs. Safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Ids from one generator within the same millisecond still increase.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(entropy, 0),
		now:     time.Now,
	}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateString creates a new ULID as a string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return prefix + g.GenerateString()
}

// NewSessionID generates a new session id.
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewTraceID generates a new trace id.
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

// NewSpanID generates a new span id.
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

func (id SessionID) String() string { return string(id) }
func (id TraceID) String() string   { return string(id) }
func (id SpanID) String() string    { return string(id) }

// IsValid checks if s is a bare ULID.
func IsValid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// ParseSession extracts the ULID from a generated session id.
func ParseSession(s string) (ulid.ULID, error) {
	raw, ok := strings.CutPrefix(s, SessionPrefix)
	if !ok {
		return ulid.ULID{}, fmt.Errorf("session id %q lacks %q prefix", s, SessionPrefix)
	}
	return ulid.ParseStrict(raw)
}

// Timestamp reports when a generated session id was minted.
func Timestamp(s string) (time.Time, error) {
	parsed, err := ParseSession(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
