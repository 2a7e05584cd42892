package dimension

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_FirstWriterWins(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id1, err := m.Resolve(ctx, Player, "abc123", Attributes{Name: "J Smith"})
	require.NoError(t, err)
	id2, err := m.Resolve(ctx, Player, "abc123", Attributes{Name: "John Smith"})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	a, ok := m.Attributes(Player, "abc123")
	require.True(t, ok)
	assert.Equal(t, "J Smith", a.Name, "attributes are never merged")

	other, err := m.Resolve(ctx, Player, "def456", Attributes{Name: "K Jones"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, other)
}

func TestMemory_KindsAreSeparate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	team, err := m.Resolve(ctx, Team, "India", Attributes{})
	require.NoError(t, err)
	venue, err := m.Resolve(ctx, Stadium, "India", Attributes{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), team)
	assert.Equal(t, int64(1), venue)
	assert.Equal(t, 1, m.Len(Team))
	assert.Equal(t, 1, m.Len(Stadium))
}

func TestEmptyKey(t *testing.T) {
	ctx := context.Background()
	_, err := NewMemory().Resolve(ctx, Team, "", Attributes{})
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = NewGuard(NewMemory()).Resolve(ctx, Team, "", Attributes{})
	assert.ErrorIs(t, err, ErrEmptyKey)
}

// countingResolver counts calls that reach the underlying store.
type countingResolver struct {
	next  Resolver
	calls atomic.Int64
}

func (c *countingResolver) Resolve(ctx context.Context, kind Kind, key string, attrs Attributes) (int64, error) {
	c.calls.Add(1)
	return c.next.Resolve(ctx, kind, key, attrs)
}

// TestGuard_ParallelSameTeam: many goroutines resolving the same previously
// unseen team all get one id, and the store sees a single call.
func TestGuard_ParallelSameTeam(t *testing.T) {
	ctx := context.Background()
	store := &countingResolver{next: NewMemory()}
	g := NewGuard(store)

	const n = 64
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := g.Resolve(ctx, Team, "Australia", Attributes{Gender: "male"})
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, int64(1), store.calls.Load())
}

func TestGuard_DifferentKeys(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(NewMemory())
	a, err := g.Resolve(ctx, Team, "England", Attributes{})
	require.NoError(t, err)
	b, err := g.Resolve(ctx, Team, "Pakistan", Attributes{})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGuard_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGuard(NewMemory()).Resolve(ctx, Team, "Kenya", Attributes{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTournamentKey(t *testing.T) {
	assert.Equal(t, "Indian Premier League 2023", TournamentKey("Indian Premier League", "2023", nil))
	assert.Equal(t, "The Ashes", TournamentKey("The Ashes", "", nil))
	assert.Equal(t, "England v Australia 2019", TournamentKey("", "2019", []string{"England", "Australia"}))
	assert.Equal(t, "", TournamentKey("", "2019", []string{"England"}))
}

func TestKindTables(t *testing.T) {
	assert.Equal(t, "players", Player.Table())
	assert.Equal(t, "registry_id", Player.KeyColumn())
	assert.Equal(t, "name", Stadium.KeyColumn())
	assert.Equal(t, "tournament", Tournament.String())
}
