package sensor

// pendingMsg stores a serialized telemetry payload for replay after the
// broker connection comes back.
type pendingMsg struct {
	topic   string
	payload []byte
}

// ringBuffer is a fixed-capacity FIFO holding payloads while
// disconnected. Not safe for concurrent use, the caller synchronizes.
type ringBuffer struct {
	buf      []pendingMsg
	capacity int
	head     int // next write position
	count    int
	dropped  int // payloads overwritten since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		buf:      make([]pendingMsg, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(msg pendingMsg) {
	if r.count == r.capacity {
		// Overwrite oldest; head already points at it.
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		r.dropped++
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
}

// drainAll returns the buffered payloads oldest first and resets the
// buffer, including the dropped counter.
func (r *ringBuffer) drainAll() []pendingMsg {
	if r.count == 0 {
		return nil
	}

	result := make([]pendingMsg, r.count)
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	r.dropped = 0
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}
