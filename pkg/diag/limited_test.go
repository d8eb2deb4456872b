package diag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimited(t *testing.T) {
	l := NewLimited("test: ", time.Hour, 2)
	require.True(t, l.Warningf("first"))
	require.True(t, l.Infof("second"))
	require.False(t, l.Warningf("third"))
	require.False(t, l.Warningf("fourth"))
	require.Equal(t, uint64(2), l.Suppressed())
}
