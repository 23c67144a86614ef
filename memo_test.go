package reactive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoLazyAndMemoized(t *testing.T) {
	x, err := NewCell(1)
	require.NoError(t, err)

	computes := 0
	doubled := NewMemo(func(prev int) int {
		computes++
		v, _ := x.Read()
		return v * 2
	})

	assert.Equal(t, 0, computes, "a memo must not compute until first Read")

	v, err := doubled.Read()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, computes)

	v, err = doubled.Read()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, computes, "an unchanged dependency must not force a recompute")
}

// TestMemoDiamondUpdatesOnce reproduces the S1 scenario: x feeds a and b,
// both feed c, and an effect reading c must observe exactly one
// recompute and one run per change to x, not two.
func TestMemoDiamondUpdatesOnce(t *testing.T) {
	x, err := NewCell(1)
	require.NoError(t, err)

	a := NewMemo(func(prev string) string {
		v, _ := x.Read()
		return stringsRepeat("a", v)
	})
	b := NewMemo(func(prev string) string {
		v, _ := x.Read()
		return stringsRepeat("b", v)
	})

	cComputes := 0
	c := NewMemo(func(prev string) string {
		cComputes++
		av, _ := a.Read()
		bv, _ := b.Read()
		return av + " " + bv
	})

	effectRuns := 0
	eff := NewEffect(func() Disposer {
		effectRuns++
		_, _ = c.Read()
		return nil
	})
	defer eff.Stop()

	require.Equal(t, 1, effectRuns)
	require.Equal(t, 1, cComputes)

	require.NoError(t, x.Write(2))

	assert.Equal(t, 2, effectRuns, "c must recompute exactly once per change to x, not once per path")
	assert.Equal(t, 2, cComputes)

	v, _ := c.Read()
	assert.Equal(t, "aa bb", v)
}

func TestMemoBailsOutOnEqualResult(t *testing.T) {
	x, err := NewCell(4)
	require.NoError(t, err)

	parity := NewMemo(func(prev string) string {
		v, _ := x.Read()
		if v%2 == 0 {
			return "even"
		}
		return "odd"
	})

	notifications := 0
	eff := NewEffect(func() Disposer {
		_, _ = parity.Read()
		notifications++
		return nil
	})
	defer eff.Stop()

	require.Equal(t, 1, notifications)

	require.NoError(t, x.Write(6)) // still even: parity's value is unchanged
	assert.Equal(t, 1, notifications, "an unchanged recompute result must not notify subscribers")

	require.NoError(t, x.Write(7)) // now odd: value changes
	assert.Equal(t, 2, notifications)
}

func TestMemoUnsetUntilFirstValue(t *testing.T) {
	x, err := NewCell(0)
	require.NoError(t, err)

	m := NewMemo(func(prev *int) *int {
		v, _ := x.Read()
		if v == 0 {
			return nil
		}
		n := v
		return &n
	})

	_, err = m.Read()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnset))

	require.NoError(t, x.Write(5))
	v, err := m.Read()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 5, *v)
}

// TestMemoPropagatesAndClearsComputeError reproduces the S4 scenario: a
// memo's panic becomes a cached error observed by a dependent memo,
// and clears again once the input that caused it changes back.
func TestMemoPropagatesAndClearsComputeError(t *testing.T) {
	x, err := NewCell(0)
	require.NoError(t, err)

	a := NewMemo(func(prev int) int {
		v, _ := x.Read()
		if v == 1 {
			panic("calc")
		}
		return 1
	})
	b := NewMemo(func(prev string) string {
		_, err := a.Read()
		if err != nil {
			return "fail"
		}
		return "ok"
	})

	v, err := b.Read()
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	require.NoError(t, x.Write(1))
	v, err = b.Read()
	require.NoError(t, err)
	assert.Equal(t, "fail", v)

	require.NoError(t, x.Write(2))
	v, err = b.Read()
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestMemoDetectsCircularDependency(t *testing.T) {
	var m *Memo[int]
	m = NewMemo(func(prev int) int {
		v, _ := m.Read()
		return v + 1
	})

	_, err := m.Read()
	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Kind: CircularDependency}))
}

func stringsRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
