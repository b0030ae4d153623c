package id

import (
	"bytes"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()
	assert.NotEqual(t, gen.Generate(), gen.Generate())
	assert.Len(t, gen.GenerateString(), 26)
}

func TestPrefixedIDs(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		prefix string
	}{
		{"session", NewSessionID().String(), SessionPrefix},
		{"trace", NewTraceID().String(), TracePrefix},
		{"span", NewSpanID().String(), SpanPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, strings.HasPrefix(tt.id, tt.prefix), tt.id)
			assert.True(t, IsValid(strings.TrimPrefix(tt.id, tt.prefix)))
		})
	}
}

func TestSessionIDSafeForStorage(t *testing.T) {
	sid := NewSessionID().String()
	assert.NotContains(t, sid, "/")
	assert.NotContains(t, sid, "..")
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(NewGenerator().GenerateString()))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("not-a-ulid"))
	assert.False(t, IsValid("session-01ARZ3NDEKTSV4RRFFQ69G5FAV"))
}

func TestParseSession(t *testing.T) {
	sid := NewSessionID()
	u, err := ParseSession(sid.String())
	require.NoError(t, err)
	assert.Equal(t, SessionPrefix+u.String(), sid.String())

	_, err = ParseSession("01ARZ3NDEKTSV4RRFFQ69G5FAV")
	assert.Error(t, err)
	_, err = ParseSession("session-xyz")
	assert.Error(t, err)
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Truncate(time.Millisecond)
	sid := NewSessionID()
	after := time.Now()

	ts, err := Timestamp(sid.String())
	require.NoError(t, err)
	assert.False(t, ts.Before(before))
	assert.False(t, ts.After(after))
}

func TestMonotonicWithinMillisecond(t *testing.T) {
	gen := NewGeneratorWithEntropy(bytes.NewReader(bytes.Repeat([]byte{7}, 4096)))
	fixed := time.UnixMilli(1_700_000_000_000)
	gen.now = func() time.Time { return fixed }

	var ids []string
	for i := 0; i < 20; i++ {
		ids = append(ids, gen.GenerateString())
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const workers, perWorker = 8, 100

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s := gen.GenerateString()
				mu.Lock()
				seen[s] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

func BenchmarkNewSessionID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NewSessionID()
	}
}
