package chain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func digestOf(n int) Digest {
	var d Digest
	d[0], d[DigestSize-1] = byte(n), byte(n>>8)
	return d
}

func TestRingBufferPushPop(t *testing.T) {
	var b RingBuffer
	require.True(t, b.IsEmpty())
	require.Empty(t, b.Snapshot())
	require.Equal(t, ErrBufferEmpty, b.PopOldest())

	require.NoError(t, b.Push(digestOf(1)))
	require.Equal(t, 1, b.Len())
	require.Equal(t, b.head, b.tail)
	require.NoError(t, b.Push(digestOf(2)))
	require.True(t, b.IsFull())
	require.Equal(t, ErrBufferFull, b.Push(digestOf(3)))
	require.Equal(t, []Digest{digestOf(1), digestOf(2)}, b.Snapshot())

	// wrap around: tail < head
	require.NoError(t, b.PopOldest())
	require.NoError(t, b.Push(digestOf(3)))
	require.Less(t, b.tail.pos, b.head.pos)
	require.Equal(t, []Digest{digestOf(2), digestOf(3)}, b.Snapshot())
	newest, ok := b.Newest()
	require.True(t, ok)
	require.Equal(t, digestOf(3), newest)

	require.NoError(t, b.PopOldest())
	require.NoError(t, b.PopOldest())
	require.True(t, b.IsEmpty())
	require.Equal(t, ErrBufferEmpty, b.PopOldest())
	_, ok = b.Newest()
	require.False(t, ok)
}

func TestRingBufferReset(t *testing.T) {
	var b RingBuffer
	require.NoError(t, b.Push(digestOf(1)))
	require.NoError(t, b.Push(digestOf(2)))
	b.Reset()
	require.True(t, b.IsEmpty())
	require.Empty(t, b.Snapshot())
	require.NoError(t, b.Push(digestOf(3)))
	require.Equal(t, []Digest{digestOf(3)}, b.Snapshot())
}

func TestRingBufferDigestsRestartable(t *testing.T) {
	var b RingBuffer
	require.NoError(t, b.Push(digestOf(1)))
	require.NoError(t, b.Push(digestOf(2)))
	seq := b.Digests()
	var first []Digest
	for d := range seq {
		first = append(first, d)
		break
	}
	require.Equal(t, []Digest{digestOf(1)}, first)
	var all []Digest
	for d := range seq {
		all = append(all, d)
	}
	require.Equal(t, []Digest{digestOf(1), digestOf(2)}, all)
}

func TestRingBufferRandomOps(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	var b RingBuffer
	var model []Digest
	for i := 0; i < 10000; i++ {
		if rnd.Intn(2) == 0 {
			d := digestOf(i)
			err := b.Push(d)
			if len(model) == Capacity {
				require.Equal(t, ErrBufferFull, err)
			} else {
				require.NoError(t, err)
				model = append(model, d)
			}
		} else {
			err := b.PopOldest()
			if len(model) == 0 {
				require.Equal(t, ErrBufferEmpty, err)
			} else {
				require.NoError(t, err)
				model = model[1:]
			}
		}
		require.LessOrEqual(t, b.Len(), Capacity)
		require.Equal(t, len(model), b.Len())
		require.Equal(t, len(model) == 0, b.IsEmpty())
		if len(model) == 0 {
			require.Empty(t, b.Snapshot())
		} else {
			require.Equal(t, model, b.Snapshot())
		}
	}
}
