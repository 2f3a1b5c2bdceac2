package sequence

import (
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIsStrictlyIncreasingWithinSameMillisecond(t *testing.T) {
	gen := New()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	prev := gen.Next(ts)
	for i := 0; i < 100; i++ {
		next := gen.Next(ts)
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestNextNeverGoesBackwards(t *testing.T) {
	gen := New()
	later := gen.Next(time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC))
	earlier := gen.Next(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	assert.Greater(t, earlier, later)
}

func TestNextProducesParseableULIDs(t *testing.T) {
	gen := New()
	id := gen.Next(time.Now())
	_, err := ulid.Parse(id)
	require.NoError(t, err)
}

func TestNextConcurrentUnique(t *testing.T) {
	gen := New()
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := gen.Next(time.Now())
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1600)
}
