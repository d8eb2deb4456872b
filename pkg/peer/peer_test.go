package peer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	tbl := NewTable(2)

	a, attached, err := tbl.Attach("a")
	require.NoError(t, err)
	require.True(t, attached)
	require.Equal(t, Slot{Index: 0, Handle: 0, ID: "a"}, a)

	again, attached, err := tbl.Attach("a")
	require.NoError(t, err)
	require.False(t, attached)
	require.Equal(t, a, again)

	b, _, err := tbl.Attach("b")
	require.NoError(t, err)
	require.Equal(t, 1, b.Index)

	_, _, err = tbl.Attach("c")
	require.Equal(t, ErrNoSlot, err)

	s, ok := tbl.Count("b")
	require.True(t, ok)
	require.Equal(t, uint64(1), s.Received)
	_, ok = tbl.Count("c")
	require.False(t, ok)

	gone, ok := tbl.Detach("a")
	require.True(t, ok)
	require.Equal(t, "a", gone.ID)
	_, ok = tbl.Detach("a")
	require.False(t, ok)

	c, attached, err := tbl.Attach("c")
	require.NoError(t, err)
	require.True(t, attached)
	require.Equal(t, Slot{Index: 0, Handle: 2, ID: "c"}, c, "lowest slot reused with a new handle")

	require.Equal(t, []string{"c", "b"}, []string{tbl.List()[0].ID, tbl.List()[1].ID})

	gone, ok = tbl.DetachSlot(1)
	require.True(t, ok)
	require.Equal(t, uint64(1), gone.Received)
	_, ok = tbl.Get(1)
	require.False(t, ok)
	_, ok = tbl.DetachSlot(5)
	require.False(t, ok)
}

func TestBroadcastError(t *testing.T) {
	var e BroadcastError
	require.NoError(t, e.Aggregate())

	timeout := errors.New("timeout")
	e.Add(2, timeout)
	e.Add(5, errors.New("refused"))
	err := e.Aggregate()
	require.Error(t, err)
	require.True(t, errors.Is(err, timeout))
	require.Equal(t, []int{2, 5}, e.Slots)
	require.Contains(t, err.Error(), "broadcast failed on 2 peers")
	require.Contains(t, err.Error(), "slot 5: refused")
}
