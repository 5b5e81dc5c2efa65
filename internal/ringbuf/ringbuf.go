// Package ringbuf provides a bounded ring buffer for candle.Candle with
// oldest-first eviction. Capacity is rounded up to a power of two for fast
// bitwise indexing.
//
// The buffer is single-owner by design: one simulation owns its candle
// storage and never shares it across goroutines, so no synchronization is
// needed (determinism over parallelism).
package ringbuf

import "quantsim/internal/candle"

// Ring is a bounded candle buffer. Once full, appending evicts the oldest
// entry. The newest entry (the tip) can be overwritten in place, which is
// how idempotent same-minute inserts are handled.
type Ring struct {
	buf  []candle.Candle
	mask uint64
	head uint64 // next write slot
	tail uint64 // oldest live slot
}

// New creates a ring buffer. capacity is rounded up to the next power of
// two; minimum capacity is 2.
func New(capacity int) *Ring {
	n := nextPow2(capacity)
	if n < 2 {
		n = 2
	}
	return &Ring{
		buf:  make([]candle.Candle, n),
		mask: uint64(n - 1),
	}
}

// Append adds a candle at the tip, evicting the oldest entry when full.
func (r *Ring) Append(c candle.Candle) {
	if r.head-r.tail >= uint64(len(r.buf)) {
		r.tail++
	}
	r.buf[r.head&r.mask] = c
	r.head++
}

// SetTip overwrites the newest entry in place. No-op on an empty ring.
func (r *Ring) SetTip(c candle.Candle) {
	if r.head == r.tail {
		return
	}
	r.buf[(r.head-1)&r.mask] = c
}

// Tip returns the newest entry. ok is false when the ring is empty.
func (r *Ring) Tip() (c candle.Candle, ok bool) {
	if r.head == r.tail {
		return candle.Candle{}, false
	}
	return r.buf[(r.head-1)&r.mask], true
}

// LastN copies the most recent n entries, oldest first. When fewer than n
// entries exist, all of them are returned.
func (r *Ring) LastN(n int) []candle.Candle {
	length := r.Len()
	if n > length {
		n = length
	}
	if n <= 0 {
		return nil
	}
	out := make([]candle.Candle, n)
	start := r.head - uint64(n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+uint64(i))&r.mask]
	}
	return out
}

// At returns the entry i positions back from the tip (0 = newest).
func (r *Ring) At(i int) (candle.Candle, bool) {
	if i < 0 || i >= r.Len() {
		return candle.Candle{}, false
	}
	return r.buf[(r.head-1-uint64(i))&r.mask], true
}

// Len returns the number of live entries.
func (r *Ring) Len() int {
	return int(r.head - r.tail)
}

// Cap returns the buffer capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Reset drops all entries without reallocating.
func (r *Ring) Reset() {
	r.head = 0
	r.tail = 0
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
