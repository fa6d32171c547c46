package mqtt

import "github.com/sirupsen/logrus"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox queues messages while the broker is unreachable. When full it
// evicts the oldest QoS 0 telemetry report, falling back to the oldest
// message only when everything queued is a lifecycle event.
// Not safe for concurrent use; the caller synchronizes.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int // evictions since the last drain
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

func (o *outbox) push(msg bufferedMsg) {
	if len(o.msgs) == o.capacity {
		o.evict()
	}
	o.msgs = append(o.msgs, msg)
}

func (o *outbox) evict() {
	victim := 0
	for i, m := range o.msgs {
		if m.qos == 0 {
			victim = i
			break
		}
	}
	if o.dropped == 0 {
		logrus.Warnf("mqtt: outbox full (%d messages), dropping %s", o.capacity, o.msgs[victim].topic)
	}
	o.dropped++
	o.msgs = append(o.msgs[:victim], o.msgs[victim+1:]...)
}

// drain returns queued messages oldest first and the number evicted since
// the previous drain, then empties the outbox.
func (o *outbox) drain() ([]bufferedMsg, int) {
	dropped := o.dropped
	o.dropped = 0
	if len(o.msgs) == 0 {
		return nil, dropped
	}
	out := make([]bufferedMsg, len(o.msgs))
	copy(out, o.msgs)
	o.msgs = o.msgs[:0]
	return out, dropped
}

// requeue puts msgs back in front of anything queued since they were
// drained, evicting as push does if that overflows.
func (o *outbox) requeue(msgs []bufferedMsg) {
	merged := make([]bufferedMsg, 0, len(msgs)+len(o.msgs))
	merged = append(merged, msgs...)
	o.msgs = append(merged, o.msgs...)
	for len(o.msgs) > o.capacity {
		o.evict()
	}
}

func (o *outbox) len() int {
	return len(o.msgs)
}
