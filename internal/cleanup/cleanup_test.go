package cleanup_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veiloq/testdb/internal/cleanup"
)

func TestManager_RunsStepsInReverseOrder(t *testing.T) {
	m := cleanup.NewManager(zap.NewNop())
	var order []string
	m.Add("first", func() error { order = append(order, "first"); return nil })
	m.Add("second", func() error { order = append(order, "second"); return nil })
	m.Add("third", func() error { order = append(order, "third"); return nil })

	require.NoError(t, m.Execute())
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestManager_KeepsFirstErrorAndContinues(t *testing.T) {
	m := cleanup.NewManager(zap.NewNop())
	errFirst := errors.New("first failure")
	errSecond := errors.New("second failure")
	ran := 0
	m.Add("a", func() error { ran++; return errSecond })
	m.Add("b", func() error { ran++; return errFirst })
	m.Add("c", func() error { ran++; return nil })

	err := m.Execute()
	require.ErrorIs(t, err, errFirst, "the first error in execution order is reported")
	assert.Equal(t, 3, ran, "a failing step must not stop the others")
}

func TestManager_ExecutesOnce(t *testing.T) {
	m := cleanup.NewManager(zap.NewNop())
	calls := 0
	want := errors.New("drop failed")
	m.Add("drop", func() error { calls++; return want })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.ErrorIs(t, m.Execute(), want)
		}()
	}
	wg.Wait()
	assert.ErrorIs(t, m.Execute(), want, "later calls return the stored result")
	assert.Equal(t, 1, calls)
}

func TestManager_IgnoresNilAndCounts(t *testing.T) {
	m := cleanup.NewManager(zap.NewNop())
	m.Add("nil", nil)
	assert.Equal(t, 0, m.Len())
	m.Add("noop", func() error { return nil })
	assert.Equal(t, 1, m.Len())
	require.NoError(t, m.Execute())
	assert.Equal(t, 0, m.Len())
}
