// Package broker runs an optional embedded MQTT broker so a bench node can
// publish telemetry without external infrastructure.
package broker

import (
	"fmt"
	"log/slog"
	"sync"

	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/sirupsen/logrus"
)

// Broker wraps an embedded mochi server with an inline client.
type Broker struct {
	server *mqttv2.Server
	addr   string

	mu     sync.Mutex
	nextID int
}

// Start listens on addr and serves in the background. Every client is
// allowed to connect.
func Start(addr string) (*Broker, error) {
	server := mqttv2.New(&mqttv2.Options{
		InlineClient: true,
		Logger: slog.New(slog.NewTextHandler(logrus.StandardLogger().Out, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		})),
	})

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("add auth hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "t1", Address: addr})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	if err := server.Serve(); err != nil {
		return nil, fmt.Errorf("serve: %w", err)
	}

	logrus.Infof("broker: embedded MQTT broker on %s", addr)
	return &Broker{server: server, addr: addr}, nil
}

// Addr returns the configured listen address.
func (b *Broker) Addr() string {
	return b.addr
}

// Watch calls fn for every message published on topics matching filter,
// including messages from external clients.
func (b *Broker) Watch(filter string, fn func(topic string, payload []byte)) error {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.mu.Unlock()

	return b.server.Subscribe(filter, id, func(_ *mqttv2.Client, _ packets.Subscription, pk packets.Packet) {
		fn(pk.TopicName, pk.Payload)
	})
}

// Publish injects a message from the inline client.
func (b *Broker) Publish(topic string, payload []byte, retain bool) error {
	return b.server.Publish(topic, payload, retain, 0)
}

// Close stops all listeners and disconnects clients.
func (b *Broker) Close() error {
	return b.server.Close()
}
