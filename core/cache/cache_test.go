package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{hits: map[string]int{}, misses: map[string]int{}}
}

func (o *countingObserver) ObserveLookup(cache string, hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits[cache]++
	} else {
		o.misses[cache]++
	}
}

func TestNewShared_InvalidSize(t *testing.T) {
	_, err := NewShared[string, int]("broken", 0, nil)
	assert.Error(t, err)
}

func TestStaged_PromoteAfterCommit(t *testing.T) {
	shared, err := NewShared[string, int]("code_systems", 10, nil)
	require.NoError(t, err)

	tx := shared.Stage()
	tx.Put("http://loinc.org", 7)

	v, ok := tx.Get("http://loinc.org")
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	// not visible to other transactions before promotion
	_, ok = shared.Stage().Get("http://loinc.org")
	assert.False(t, ok)

	tx.Promote()
	assert.Equal(t, 0, tx.Pending())
	v, ok = shared.Stage().Get("http://loinc.org")
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestStaged_DiscardOnRollback(t *testing.T) {
	shared, err := NewShared[string, int]("code_systems", 10, nil)
	require.NoError(t, err)

	tx := shared.Stage()
	tx.Put("http://snomed.info/sct", 3)
	tx.Discard()

	_, ok := tx.Get("http://snomed.info/sct")
	assert.False(t, ok)
	tx.Promote()
	assert.Equal(t, 0, shared.Len())
}

func TestStaged_ResolveBatch(t *testing.T) {
	shared, err := NewShared[TokenKey, int64]("token_values", 10, nil)
	require.NoError(t, err)
	shared.Prefill(map[TokenKey]int64{{CodeSystemID: 1, Value: "a"}: 100})

	tx := shared.Stage()
	tx.Put(TokenKey{CodeSystemID: 1, Value: "b"}, 101)

	resolved, misses := tx.ResolveBatch([]TokenKey{
		{CodeSystemID: 1, Value: "a"},
		{CodeSystemID: 1, Value: "c"},
		{CodeSystemID: 1, Value: "b"},
		{CodeSystemID: 1, Value: "c"},
		{CodeSystemID: 2, Value: "a"},
	})

	assert.Equal(t, map[TokenKey]int64{
		{CodeSystemID: 1, Value: "a"}: 100,
		{CodeSystemID: 1, Value: "b"}: 101,
	}, resolved)
	assert.Equal(t, []TokenKey{{CodeSystemID: 1, Value: "c"}, {CodeSystemID: 2, Value: "a"}}, misses)
}

func TestIdentity_ScopeLifecycle(t *testing.T) {
	obs := newCountingObserver()
	ids, err := NewIdentity(DefaultConfig(), obs)
	require.NoError(t, err)

	ids.PrefillResourceTypes(map[string]int{"Patient": 1})
	name, ok := ids.ResourceTypeNames.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "Patient", name)

	committed := ids.NewScope()
	committed.ParameterNames.Put("identifier", 5)
	committed.Idents.Put(IdentKey{ResourceTypeID: 1, LogicalID: "p1"}, 9)
	committed.UpdateSharedMaps()

	rolledBack := ids.NewScope()
	rolledBack.ParameterNames.Put("subject", 6)
	rolledBack.ClearLocalMaps()

	fresh := ids.NewScope()
	_, ok = fresh.ParameterNames.Get("identifier")
	assert.True(t, ok)
	_, ok = fresh.ParameterNames.Get("subject")
	assert.False(t, ok)
	lrid, ok := fresh.Idents.Get(IdentKey{ResourceTypeID: 1, LogicalID: "p1"})
	assert.True(t, ok)
	assert.Equal(t, int64(9), lrid)

	assert.Equal(t, 1, obs.misses["parameter_names"])
	assert.Equal(t, 1, obs.hits["parameter_names"])
}

func TestShared_ConcurrentAccess(t *testing.T) {
	shared, err := NewShared[int, int]("concurrent", 64, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				st := shared.Stage()
				st.Put(i%32, i%32)
				st.Promote()
				_, _ = shared.Get(i % 32)
			}
		}(w)
	}
	wg.Wait()

	for i := 0; i < 32; i++ {
		v, ok := shared.Get(i)
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
}
