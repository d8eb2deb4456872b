package queue

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingFIFO(t *testing.T) {
	r := NewRing[int](3)
	require.Equal(t, 4, r.Cap())
	for i := 0; i < 4; i++ {
		require.NoError(t, r.Put(i))
	}
	require.Equal(t, ErrFull, r.Put(4))
	require.Equal(t, uint64(1), r.Dropped())
	require.Equal(t, 4, r.Len())

	for i := 0; i < 4; i++ {
		v, ok := r.Get()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok := r.Get()
	require.False(t, ok)
	require.Equal(t, 0, r.Len())
}

func TestRingWrapAround(t *testing.T) {
	r := NewRing[string](2)
	for i := 0; i < 10; i++ {
		require.NoError(t, r.Put("a"))
		require.NoError(t, r.Put("b"))
		v, ok := r.Get()
		require.True(t, ok)
		require.Equal(t, "a", v)
		v, ok = r.Get()
		require.True(t, ok)
		require.Equal(t, "b", v)
	}
}

func TestRingConcurrentProducers(t *testing.T) {
	const producers, perProducer = 4, 1000
	r := NewRing[int](64)

	var wg sync.WaitGroup
	var accepted atomic.Int64
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := p*perProducer + i
				if r.Put(v) == nil {
					accepted.Add(1)
				}
			}
		}(p)
	}

	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()

	received := 0
	lastPerProducer := make([]int, producers)
	for i := range lastPerProducer {
		lastPerProducer[i] = -1
	}
	drain := func() {
		for {
			v, ok := r.Get()
			if !ok {
				return
			}
			p := v / perProducer
			require.Greater(t, v, lastPerProducer[p], "per-producer order")
			lastPerProducer[p] = v
			received++
		}
	}
	for {
		select {
		case <-doneCh:
			drain()
			require.Equal(t, accepted.Load(), int64(received))
			require.Equal(t, uint64(producers*perProducer-received), r.Dropped())
			return
		default:
			drain()
		}
	}
}

func TestBytes(t *testing.T) {
	q := NewBytes(8)
	require.Equal(t, 8, q.Cap())
	require.NoError(t, q.Put([]byte("hello")))
	require.Equal(t, ErrFull, q.Put([]byte("world")), "all or nothing")
	require.Equal(t, 5, q.Len())
	require.Equal(t, uint64(5), q.Dropped())

	b, ok := q.GetByte()
	require.True(t, ok)
	require.Equal(t, byte('h'), b)

	buf := make([]byte, 16)
	n := q.Get(buf)
	require.Equal(t, "ello", string(buf[:n]))

	_, ok = q.GetByte()
	require.False(t, ok)
	require.Equal(t, 0, q.Get(buf))

	for i := 0; i < 8; i++ {
		require.NoError(t, q.PutByte(byte(i)))
	}
	require.Equal(t, ErrFull, q.PutByte(9))
	require.Equal(t, uint64(6), q.Dropped())
}
