package reactive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellReadWrite(t *testing.T) {
	c, err := NewCell(5)
	require.NoError(t, err)

	v, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	require.NoError(t, c.Write(10))
	v, err = c.Read()
	require.NoError(t, err)
	assert.Equal(t, 10, v)
}

func TestCellRejectsNullEquivalentValue(t *testing.T) {
	c, err := NewCell(map[string]int{"a": 1})
	require.NoError(t, err)

	err = c.Write(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Kind: NullishSignalValue}))
}

func TestNewCellRejectsNullEquivalentInitial(t *testing.T) {
	_, err := NewCell[*int](nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Kind: NullishSignalValue}))
}

func TestCellUpdate(t *testing.T) {
	c, err := NewCell(1)
	require.NoError(t, err)

	require.NoError(t, c.Update(func(v int) int { return v + 41 }))
	v, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCellGuardRejectsWrite(t *testing.T) {
	c, err := NewCellWithOptions(1, Options[int]{
		Guard: func(v int) error {
			if v < 0 {
				return errors.New("must be non-negative")
			}
			return nil
		},
	})
	require.NoError(t, err)

	err = c.Write(-1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Kind: InvalidSignalValue}))

	v, _ := c.Read()
	assert.Equal(t, 1, v, "rejected write must leave the cell unchanged")
}

func TestCellSkipsNotifyWhenEqual(t *testing.T) {
	c, err := NewCell(1)
	require.NoError(t, err)

	notifications := 0
	eff := NewEffect(func() Disposer {
		_, _ = c.Read()
		notifications++
		return nil
	})
	defer eff.Stop()

	require.Equal(t, 1, notifications)
	require.NoError(t, c.Write(1)) // same value, should not notify
	assert.Equal(t, 1, notifications)

	require.NoError(t, c.Write(2))
	assert.Equal(t, 2, notifications)
}

func TestCellSkipEquality(t *testing.T) {
	c, err := NewCellWithOptions([]int{1, 2}, Options[[]int]{Equal: SkipEquality[[]int]})
	require.NoError(t, err)

	notifications := 0
	eff := NewEffect(func() Disposer {
		_, _ = c.Read()
		notifications++
		return nil
	})
	defer eff.Stop()

	same := []int{1, 2}
	require.NoError(t, c.Write(same))
	assert.Equal(t, 2, notifications, "SkipEquality always notifies, even on a content-equal slice")
}

func TestCellReadOnlyHasNoWriteMethod(t *testing.T) {
	c, err := NewCell("x")
	require.NoError(t, err)

	ro := c.ReadOnly()
	_, writable := ro.(Signal[string])
	assert.False(t, writable, "the read-only view must not expose Write or Update")

	v, err := ro.Read()
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	require.NoError(t, c.Write("y"))
	v, _ = ro.Read()
	assert.Equal(t, "y", v)
}

func TestCellWatchedUnwatchedHooks(t *testing.T) {
	var watched, unwatched int
	c, err := NewCellWithOptions(0, Options[int]{
		Watched:   func() { watched++ },
		Unwatched: func() { unwatched++ },
	})
	require.NoError(t, err)

	assert.Equal(t, 0, watched)

	eff := NewEffect(func() Disposer {
		_, _ = c.Read()
		return nil
	})
	assert.Equal(t, 1, watched)
	assert.Equal(t, 0, unwatched)

	eff.Stop()
	assert.Equal(t, 1, unwatched)
}
