package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// bufferCapacity bounds the messages kept while the broker is unreachable.
const bufferCapacity = 256

const publishTimeout = 5 * time.Second

// Connection timing. Variables so tests can shorten them.
var (
	connectWait  = 10 * time.Second
	connectRetry = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are buffered and replayed in order on reconnect.
type RealPublisher struct {
	client paho.Client
	topic  string

	mu       sync.Mutex
	buf      *outbox
	flushing bool // replay in progress; new messages queue behind it
}

// NewRealPublisher creates a publisher connected to the given broker.
// The last-will message marks the node offline if the connection drops.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{
		topic: Topic,
		buf:   newOutbox(bufferCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetry).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.flush() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logrus.Warnf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	// With connect retry the token only completes once connected; until
	// then messages are buffered.
	if !token.WaitTimeout(connectWait) {
		logrus.Warnf("mqtt: broker %s not reachable yet, buffering", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// Publish sends a telemetry report to the MQTT broker.
func (p *RealPublisher) Publish(report Report) error {
	payload, err := FormatPayload(report)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: p.topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	connected := p.client.IsConnectionOpen()
	// Queue behind anything still waiting so replay order is kept.
	if !connected || p.flushing || p.buf.len() > 0 {
		p.buf.push(msg)
		kick := connected && !p.flushing
		p.mu.Unlock()
		if kick {
			go p.flush()
		}
		return nil
	}
	p.mu.Unlock()

	return p.publish(msg)
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// flush replays buffered messages after a (re)connect. It drains until the
// outbox is empty; sends arriving meanwhile queue behind the replay.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	if p.flushing {
		p.mu.Unlock()
		return
	}
	p.flushing = true
	p.mu.Unlock()

	replayed := 0
	for {
		p.mu.Lock()
		msgs, dropped := p.buf.drain()
		if len(msgs) == 0 {
			p.flushing = false
			p.mu.Unlock()
			if replayed > 0 {
				logrus.Infof("mqtt: replayed %d buffered messages", replayed)
			}
			return
		}
		p.mu.Unlock()

		if dropped > 0 {
			logrus.Warnf("mqtt: %d messages dropped while offline", dropped)
		}
		for i, m := range msgs {
			if !p.client.IsConnectionOpen() {
				p.mu.Lock()
				p.buf.requeue(msgs[i:])
				p.flushing = false
				p.mu.Unlock()
				logrus.Warnf("mqtt: connection lost during replay, %d messages requeued", len(msgs)-i)
				return
			}
			if err := p.publish(m); err != nil {
				logrus.Warnf("mqtt: replay on %s: %v", m.topic, err)
			}
			replayed++
		}
	}
}
