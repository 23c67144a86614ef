package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeDisposeStopsOwnedEffectsOnce(t *testing.T) {
	scope := NewScope()
	c, err := NewCell(1)
	require.NoError(t, err)

	runs := 0
	_, err = NewEffectWithOptions(func() Disposer {
		runs++
		_, _ = c.Read()
		return nil
	}, EffectOptions{Owner: scope})
	require.NoError(t, err)
	require.Equal(t, 1, runs)

	scope.Dispose()
	scope.Dispose() // idempotent

	require.NoError(t, c.Write(2))
	assert.Equal(t, 1, runs)
}

func TestScopeOwnRunsImmediatelyIfAlreadyDisposed(t *testing.T) {
	scope := NewScope()
	scope.Dispose()

	ran := false
	scope.own(func() { ran = true })
	assert.True(t, ran, "registering a disposer on an already-disposed scope must run it immediately")
}

func TestScopeContextCanceledOnDispose(t *testing.T) {
	scope := NewScope()
	ctx := scope.Context()

	select {
	case <-ctx.Done():
		t.Fatal("scope context must not start canceled")
	default:
	}

	scope.Dispose()

	select {
	case <-ctx.Done():
	default:
		t.Fatal("scope context must be canceled on Dispose")
	}
}
