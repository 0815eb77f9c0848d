package mqtt

import "log"

// pendingMsg is a serialized MQTT message held for replay after reconnection.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog is a fixed-capacity FIFO of messages published while offline.
// When full, the oldest message is overwritten.
// Not safe for concurrent use; caller must synchronize.
type backlog struct {
	buf     []pendingMsg
	next    int // next write position
	count   int
	dropped int // messages overwritten since last drain
}

func newBacklog(capacity int) *backlog {
	return &backlog{buf: make([]pendingMsg, capacity)}
}

func (b *backlog) add(msg pendingMsg) {
	if len(b.buf) == 0 {
		b.dropped++
		return
	}
	if b.count == len(b.buf) {
		if b.dropped == 0 {
			log.Printf("mqtt: backlog full (%d messages), dropping oldest", len(b.buf))
		}
		b.dropped++
	} else {
		b.count++
	}
	b.buf[b.next] = msg
	b.next = (b.next + 1) % len(b.buf)
}

// take empties the backlog, returning messages oldest first and how many
// were lost to overflow.
func (b *backlog) take() ([]pendingMsg, int) {
	dropped := b.dropped
	b.dropped = 0
	if b.count == 0 {
		return nil, dropped
	}

	out := make([]pendingMsg, 0, b.count)
	oldest := (b.next - b.count + len(b.buf)) % len(b.buf)
	for i := 0; i < b.count; i++ {
		out = append(out, b.buf[(oldest+i)%len(b.buf)])
	}

	b.count = 0
	b.next = 0
	return out, dropped
}

func (b *backlog) size() int {
	return b.count
}
