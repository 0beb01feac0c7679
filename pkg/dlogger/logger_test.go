package dlogger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger(t *testing.T) {
	for _, level := range []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelNone} {
		l, err := GetLogger(level)
		require.NoError(t, err)
		require.NotNil(t, l)

		c, err := GetConsoleLogger(level)
		require.NoError(t, err)
		require.NotNil(t, c)
	}

	_, err := GetLogger("chatty")
	require.Error(t, err)
	assert.Panics(t, func() { MustGetLogger("chatty") })
}
