// SPDX-License-Identifier: GPL-3.0-or-later

package link

import "github.com/rbmk-project/lansim/netsim/packet"

// Queue is a FIFO of frames bounded by their cumulative size in bytes.
//
// Construct using [NewQueue].
type Queue struct {
	// capacity is the maximum cumulative size in bytes.
	capacity int

	// frames contains the queued frames.
	frames []*packet.Frame

	// size is the cumulative size in bytes of the queued frames.
	size int
}

// NewQueue creates a new [*Queue] with the given capacity in bytes.
func NewQueue(capacity int) *Queue {
	return &Queue{capacity: max(capacity, 0)}
}

// Enqueue appends the frame to the queue. If the frame would make the
// cumulative size exceed the capacity, this method returns [ErrQueueFull]
// and leaves the queue unchanged.
func (q *Queue) Enqueue(frame *packet.Frame) error {
	size := frame.Size()
	if q.size+size > q.capacity {
		return ErrQueueFull
	}
	q.frames = append(q.frames, frame)
	q.size += size
	return nil
}

// Dequeue removes and returns the head frame, if any.
func (q *Queue) Dequeue() (*packet.Frame, bool) {
	if len(q.frames) <= 0 {
		return nil, false
	}
	frame := q.frames[0]
	q.frames[0] = nil
	q.frames = q.frames[1:]
	q.size -= frame.Size()
	return frame, true
}

// Peek returns the head frame without removing it, if any.
func (q *Queue) Peek() (*packet.Frame, bool) {
	if len(q.frames) <= 0 {
		return nil, false
	}
	return q.frames[0], true
}

// Len returns the number of queued frames.
func (q *Queue) Len() int {
	return len(q.frames)
}

// Size returns the cumulative size in bytes of the queued frames.
func (q *Queue) Size() int {
	return q.size
}

// Capacity returns the queue capacity in bytes.
func (q *Queue) Capacity() int {
	return q.capacity
}
