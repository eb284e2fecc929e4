// Package audio implements canonical-audio handling: a fixed-capacity ring
// buffer, PCM16 conversion, arbitrary-rate resampling, Opus frame decode and
// containerized-format decode, all producing 16kHz mono float64 samples in
// [-1, 1] ("canonical audio").
package audio

import "sync"

// SampleRate is the canonical sample rate every producer resamples to
// before exposing audio to the rest of the core.
const SampleRate = 16000

// RingBuffer is a fixed-capacity circular float64 buffer. It amortises
// O(1) ingest and bounds memory: the session and VAD ring buffers each hold
// at least max_utterance_ms + speech_pad_ms + a margin of audio.
type RingBuffer struct {
	mu       sync.Mutex
	buf      []float64
	capacity int
	cursor   int // next write position
	count    int // number of valid samples, saturates at capacity
}

// NewRingBuffer creates a ring buffer able to hold capacity samples.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{
		buf:      make([]float64, capacity),
		capacity: capacity,
	}
}

// Append writes samples into the buffer. If len(samples) >= capacity, the
// buffer is overwritten wholesale with the last `capacity` samples of the
// input and the cursor resets to 0. Otherwise samples are written in one or
// two pieces across the wrap point. Count saturates at capacity.
func (r *RingBuffer) Append(samples []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(samples) >= r.capacity {
		copy(r.buf, samples[len(samples)-r.capacity:])
		r.cursor = 0
		r.count = r.capacity
		return
	}

	n := copy(r.buf[r.cursor:], samples)
	if n < len(samples) {
		copy(r.buf, samples[n:])
	}
	r.cursor = (r.cursor + len(samples)) % r.capacity
	r.count += len(samples)
	if r.count > r.capacity {
		r.count = r.capacity
	}
}

// Tail returns a newly allocated, contiguous copy of the last min(n, count)
// samples.
func (r *RingBuffer) Tail(n int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}
	return r.readLocked(r.count-n, r.count)
}

// Slice returns a contiguous copy of the logical range [start, end), where
// 0 is the oldest retained sample and end is exclusive. Returns nil if the
// range is invalid (start < 0, end > count, or start >= end).
func (r *RingBuffer) Slice(start, end int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if start < 0 || end > r.count || start >= end {
		return nil
	}
	return r.readLocked(start, end)
}

// Count returns the number of samples currently retained.
func (r *RingBuffer) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Clear resets the buffer to empty without releasing the backing array.
func (r *RingBuffer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor = 0
	r.count = 0
}

// readLocked copies the logical range [start, end) out of the physical
// buffer. Must be called with r.mu held. Logical index 0 is the oldest
// retained sample, i.e. physical index (cursor - count + capacity) % capacity
// when the buffer has wrapped.
func (r *RingBuffer) readLocked(start, end int) []float64 {
	oldest := (r.cursor - r.count + r.capacity) % r.capacity
	out := make([]float64, end-start)
	for i := start; i < end; i++ {
		out[i-start] = r.buf[(oldest+i)%r.capacity]
	}
	return out
}
