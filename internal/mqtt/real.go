package mqtt

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sweeney/thermo-loop/internal/protocol"
)

// RealLink exchanges frames through an actual MQTT broker.
type RealLink struct {
	client   paho.Client
	self     protocol.Addr
	inbox    *inbox
	connects atomic.Int32
}

// NewRealLink connects to broker as node self and subscribes to its inbox.
func NewRealLink(broker string, self protocol.Addr) (*RealLink, error) {
	l := &RealLink{
		self:  self,
		inbox: newInbox(DefaultInboxSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("thermo-loop-%s-%s", self, uuid.NewString()[:8])).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(SystemTopic(self), will, 1, true).
		SetOnConnectHandler(l.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	l.client = paho.NewClient(opts)
	token := l.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return l, nil
}

// onConnect (re)subscribes to the inbox; paho does not restore
// subscriptions for a clean session after a reconnect.
func (l *RealLink) onConnect(c paho.Client) {
	n := l.connects.Add(1)
	token := c.Subscribe(InboxFilter(l.self), 0, l.onMessage)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("mqtt: subscribe %s: %v", InboxFilter(l.self), token.Error())
		return
	}
	if n > 1 {
		log.Printf("mqtt: reconnected (connect #%d)", n)
		if err := l.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err != nil {
			log.Printf("mqtt: publish reconnected: %v", err)
		}
	}
}

func (l *RealLink) onMessage(_ paho.Client, msg paho.Message) {
	_, src, err := ParseNodeTopic(msg.Topic())
	if err != nil {
		log.Printf("mqtt: ignoring message: %v", err)
		return
	}
	payload := append([]byte(nil), msg.Payload()...)
	l.inbox.push(Packet{From: src, Payload: payload})
}

// Send publishes payload to dst's inbox.
func (l *RealLink) Send(dst protocol.Addr, payload []byte) error {
	// QoS 0 (at-most-once), not retained: the link is lossy by contract.
	token := l.client.Publish(NodeTopic(dst, l.self), 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (l *RealLink) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	token := l.client.Publish(SystemTopic(l.self), 1, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// Ready is signalled when inbound packets are queued.
func (l *RealLink) Ready() <-chan struct{} { return l.inbox.ready }

// Drain returns queued inbound packets.
func (l *RealLink) Drain() []Packet { return l.inbox.drain() }

// IsConnected reports the broker connection state.
func (l *RealLink) IsConnected() bool { return l.client.IsConnected() }

// Close disconnects from the broker.
func (l *RealLink) Close() error {
	l.client.Disconnect(1000) // 1 second timeout
	return nil
}
