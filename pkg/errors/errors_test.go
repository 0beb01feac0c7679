package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	e3 := e.Unwrap()
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, e3 == e2)
}

func TestWrapKeepsSentinel(t *testing.T) {
	sentinel := New("object missing")

	wrapped := sentinel.Wrapf("hash %s", "abcd")
	assert.True(t, Is(wrapped, sentinel))
	assert.Equal(t, "object missing: hash abcd", wrapped.Error())

	// the sentinel is left untouched
	assert.Equal(t, "object missing", sentinel.Error())
	assert.Nil(t, sentinel.Unwrap())

	twice := wrapped.Wrap(fmt.Errorf("other"))
	assert.True(t, Is(twice, sentinel))

	var target *Error
	require.True(t, As(fmt.Errorf("outer: %w", wrapped), &target))
	assert.True(t, target.Is(sentinel))
	assert.False(t, Is(wrapped, New("object missing")))
}
