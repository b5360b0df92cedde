package mqtt

import (
	"log"
	"sync"
)

// ringBuffer is a fixed-capacity FIFO of inbound packets.
// Not safe for concurrent use; the caller must synchronize.
type ringBuffer struct {
	buf      []Packet
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any packet was dropped since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		buf:      make([]Packet, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(p Packet) {
	if r.count == r.capacity {
		if !r.overflow {
			log.Printf("mqtt: inbox full (%d packets), dropping oldest", r.capacity)
			r.overflow = true
		}
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = p
		r.head = (r.head + 1) % r.capacity
		return
	}
	r.buf[r.head] = p
	r.head = (r.head + 1) % r.capacity
	r.count++
}

func (r *ringBuffer) drainAll() []Packet {
	if r.count == 0 {
		return nil
	}

	result := make([]Packet, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}

// DefaultInboxSize bounds how many packets wait for the node loop.
const DefaultInboxSize = 64

// inbox hands packets from transport goroutines to the single node loop.
type inbox struct {
	mu    sync.Mutex
	ring  *ringBuffer
	ready chan struct{}
}

func newInbox(capacity int) *inbox {
	if capacity <= 0 {
		capacity = DefaultInboxSize
	}
	return &inbox{
		ring:  newRingBuffer(capacity),
		ready: make(chan struct{}, 1),
	}
}

func (in *inbox) push(p Packet) {
	in.mu.Lock()
	in.ring.push(p)
	in.mu.Unlock()
	select {
	case in.ready <- struct{}{}:
	default:
	}
}

func (in *inbox) drain() []Packet {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.ring.drainAll()
}

func (in *inbox) len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.ring.len()
}
