package chain

import (
	"iter"
	"slices"
)

// Capacity is the number of digests a RingBuffer retains.
const Capacity = 2

// index is a slot position which may be absent.
type index struct {
	pos   int
	valid bool
}

func (i index) next() index {
	if !i.valid {
		return index{valid: true}
	}
	return index{pos: (i.pos + 1) % Capacity, valid: true}
}

// RingBuffer is a fixed-capacity circular store of digests.
// The zero value is an empty buffer.
//
// head is absent iff the buffer is empty, head == tail iff it holds
// exactly one digest.
type RingBuffer struct {
	head  index
	tail  index
	slots [Capacity]Digest
}

// Len returns the number of live digests.
func (b *RingBuffer) Len() int {
	if !b.head.valid {
		return 0
	}
	n := b.tail.pos - b.head.pos
	if n < 0 {
		n += Capacity
	}
	return n + 1
}

// IsEmpty tells whether there are no live digests.
func (b *RingBuffer) IsEmpty() bool {
	return !b.head.valid
}

// IsFull tells whether a Push would fail.
func (b *RingBuffer) IsFull() bool {
	return b.Len() == Capacity
}

// Push appends d as the newest digest. It fails with ErrBufferFull and
// leaves the buffer unchanged when the buffer is full.
func (b *RingBuffer) Push(d Digest) error {
	if b.IsFull() {
		return ErrBufferFull
	}
	b.tail = b.tail.next()
	b.slots[b.tail.pos] = d
	if !b.head.valid {
		b.head = b.tail
	}
	return nil
}

// PopOldest discards the oldest digest. It fails with ErrBufferEmpty
// when there's nothing to discard.
func (b *RingBuffer) PopOldest() error {
	if !b.head.valid {
		return ErrBufferEmpty
	}
	if b.head == b.tail {
		b.head, b.tail = index{}, index{}
		return nil
	}
	b.head = b.head.next()
	return nil
}

// Reset empties the buffer.
func (b *RingBuffer) Reset() {
	*b = RingBuffer{}
}

// Digests enumerates live digests from oldest to newest. The sequence
// reflects the buffer at the time it's iterated and may be iterated again.
func (b *RingBuffer) Digests() iter.Seq[Digest] {
	return func(yield func(Digest) bool) {
		if !b.head.valid {
			return
		}
		for i, n := b.head.pos, b.Len(); n > 0; i, n = (i+1)%Capacity, n-1 {
			if !yield(b.slots[i]) {
				return
			}
		}
	}
}

// Snapshot copies live digests, oldest first.
func (b *RingBuffer) Snapshot() []Digest {
	return slices.Collect(b.Digests())
}

// Newest returns the most recently pushed digest.
func (b *RingBuffer) Newest() (Digest, bool) {
	if !b.tail.valid {
		return Digest{}, false
	}
	return b.slots[b.tail.pos], true
}
