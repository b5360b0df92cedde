package mqtt

import (
	"sync"

	"github.com/sweeney/thermo-loop/internal/protocol"
)

// Sent records one frame handed to a FakeLink.
type Sent struct {
	From    protocol.Addr
	To      protocol.Addr
	Payload []byte
	Dropped bool
}

// FakeNetwork is an in-memory broker joining any number of FakeLinks.
// Delivery is synchronous: Send pushes straight into the peer's inbox.
type FakeNetwork struct {
	mu    sync.Mutex
	links map[protocol.Addr]*FakeLink

	// Drop, if set, is consulted for every frame; returning true loses it.
	Drop func(from, to protocol.Addr, payload []byte) bool

	// Log contains every frame sent on the network, in order.
	Log []Sent
}

// NewFakeNetwork creates an empty network.
func NewFakeNetwork() *FakeNetwork {
	return &FakeNetwork{links: make(map[protocol.Addr]*FakeLink)}
}

// Join attaches a new link for addr, replacing any previous one.
func (n *FakeNetwork) Join(addr protocol.Addr) *FakeLink {
	l := &FakeLink{
		net:       n,
		self:      addr,
		inbox:     newInbox(DefaultInboxSize),
		Connected: true,
	}
	n.mu.Lock()
	n.links[addr] = l
	n.mu.Unlock()
	return l
}

// SentLog returns a copy of the frames sent so far.
func (n *FakeNetwork) SentLog() []Sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Sent(nil), n.Log...)
}

func (n *FakeNetwork) deliver(from, to protocol.Addr, payload []byte) {
	n.mu.Lock()
	dst := n.links[to]
	drop := n.Drop != nil && n.Drop(from, to, payload)
	n.Log = append(n.Log, Sent{From: from, To: to, Payload: payload, Dropped: drop || dst == nil})
	n.mu.Unlock()

	if drop || dst == nil {
		return
	}
	dst.inbox.push(Packet{From: from, Payload: payload})
}

// FakeLink is a Link on a FakeNetwork that records system events for test assertions.
type FakeLink struct {
	net   *FakeNetwork
	self  protocol.Addr
	inbox *inbox

	mu sync.Mutex

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SendError, if set, will be returned by Send.
	SendError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// Addr returns the link's own address.
func (l *FakeLink) Addr() protocol.Addr { return l.self }

// Send delivers payload to dst on the fake network.
func (l *FakeLink) Send(dst protocol.Addr, payload []byte) error {
	if l.SendError != nil {
		return l.SendError
	}
	l.net.deliver(l.self, dst, append([]byte(nil), payload...))
	return nil
}

// PublishSystem records the system event.
func (l *FakeLink) PublishSystem(event SystemEvent) error {
	if l.PublishSystemError != nil {
		return l.PublishSystemError
	}
	l.mu.Lock()
	l.SystemEvents = append(l.SystemEvents, event)
	l.mu.Unlock()
	return nil
}

// Inject queues a packet as if it had arrived from the network.
func (l *FakeLink) Inject(from protocol.Addr, payload []byte) {
	l.inbox.push(Packet{From: from, Payload: payload})
}

// Pending returns the number of queued inbound packets.
func (l *FakeLink) Pending() int { return l.inbox.len() }

// Ready is signalled when inbound packets are queued.
func (l *FakeLink) Ready() <-chan struct{} { return l.inbox.ready }

// Drain returns queued inbound packets.
func (l *FakeLink) Drain() []Packet { return l.inbox.drain() }

// IsConnected reports whether the fake link is "connected".
func (l *FakeLink) IsConnected() bool { return l.Connected }

// Events returns a copy of the recorded system events.
func (l *FakeLink) Events() []SystemEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]SystemEvent(nil), l.SystemEvents...)
}

// Close marks the link as closed.
func (l *FakeLink) Close() error {
	l.Closed = true
	return nil
}
