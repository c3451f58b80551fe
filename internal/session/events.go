package session

import "github.com/zsiec/moqc/internal/wire"

// TrackInfo names a track by its namespace tuple and track-name bytes
//. It is the value half of the alias table
//.
type TrackInfo struct {
	Namespace []string
	TrackName string
}

// ObjectKind classifies the optional media-type hint carried in an
// object's extension headers.
// Preserved only as a diagnostic per DESIGN NOTES "Media-type-based
// routing" — it no longer drives delivery (see routeByAlias in
// routing.go), but the field is still decoded and surfaced.
type ObjectKind int

const (
	ObjectKindUnknown ObjectKind = iota
	ObjectKindVideo
	ObjectKindAudio
)

// Object is one delivered media unit, carrying the stream/datagram header
// fields the subscription needs alongside the payload.
type Object struct {
	Group    uint64
	Subgroup uint64
	ObjectID uint64
	Priority byte
	Forward  byte
	Payload  []byte
	Status   ObjectStatusWire
	Kind     ObjectKind

	// FromDatagram reports whether this object arrived as an
	// OBJECT_DATAGRAM rather than on a unidirectional data stream.
	FromDatagram bool
}

// ObjectStatusWire mirrors protocol.ObjectStatus without importing the
// protocol package name into the session API surface callers see.
type ObjectStatusWire = uint64

// GoawayEvent reports a GOAWAY message.
type GoawayEvent struct {
	NewURI          string
	HasMigrationURI bool
}

// NamespaceAnnouncedEvent reports an incoming PUBLISH_NAMESPACE. Every
// one is reported; its namespace is not checked against the prefixes
// this session registered via SubscribeNamespace.
type NamespaceAnnouncedEvent struct {
	Namespace []string
	RequestID uint64
}

// NamespaceDoneEvent reports an incoming PUBLISH_NAMESPACE_DONE or
// PUBLISH_NAMESPACE_CANCEL for a previously announced namespace.
type NamespaceDoneEvent struct {
	Namespace []string
	Canceled  bool
}

// IncomingPublishRequest is a peer-initiated PUBLISH this session has not
// yet accepted or rejected.
type IncomingPublishRequest struct {
	RequestID     uint64
	Namespace     []string
	TrackName     string
	TrackAlias    uint64
	GroupOrder    byte
	Forward       byte
	ContentExists bool
	Largest       wire.Location
	Params        []wire.Param

	sess *Session
}

// IncomingSubscribeRequest is a peer-initiated SUBSCRIBE this session has
// not yet accepted or rejected.
type IncomingSubscribeRequest struct {
	RequestID  uint64
	Namespace  []string
	TrackName  string
	Priority   byte
	GroupOrder byte
	Forward    byte
	FilterType uint64
	Start      wire.Location
	EndGroup   uint64
	HasEnd     bool
	Params     []wire.Param

	sess *Session
}

// Events exposes the session-wide broadcast channels a caller selects
// over: connection state, GOAWAY,
// and peer-initiated publish/subscribe requests. Each channel is
// buffered per Options.EventBuffer; a slow consumer drops the oldest
// pending event rather than blocking the session's single read loop.
type Events struct {
	ConnectionState   <-chan bool
	Goaway            <-chan GoawayEvent
	NamespaceAnnounced <-chan NamespaceAnnouncedEvent
	NamespaceDone      <-chan NamespaceDoneEvent
	IncomingPublish    <-chan *IncomingPublishRequest
	IncomingSubscribe  <-chan *IncomingSubscribeRequest
}

// eventBus holds the writable ends of the channels Events exposes
// read-only, plus the drop-oldest send helper shared by every publisher.
type eventBus struct {
	connectionState    chan bool
	goaway             chan GoawayEvent
	namespaceAnnounced chan NamespaceAnnouncedEvent
	namespaceDone      chan NamespaceDoneEvent
	incomingPublish    chan *IncomingPublishRequest
	incomingSubscribe  chan *IncomingSubscribeRequest
}

func newEventBus(n int) *eventBus {
	return &eventBus{
		connectionState:    make(chan bool, n),
		goaway:             make(chan GoawayEvent, n),
		namespaceAnnounced: make(chan NamespaceAnnouncedEvent, n),
		namespaceDone:      make(chan NamespaceDoneEvent, n),
		incomingPublish:    make(chan *IncomingPublishRequest, n),
		incomingSubscribe: make(chan *IncomingSubscribeRequest, n),
	}
}

func (b *eventBus) exported() Events {
	return Events{
		ConnectionState:    b.connectionState,
		Goaway:             b.goaway,
		NamespaceAnnounced: b.namespaceAnnounced,
		NamespaceDone:      b.namespaceDone,
		IncomingPublish:    b.incomingPublish,
		IncomingSubscribe:  b.incomingSubscribe,
	}
}

// sendDropOldest pushes v onto ch, discarding the oldest buffered value
// first if ch is full. Session-wide events are best-effort broadcasts
//: a caller that never drains goaway/incoming-request channels
// must not be able to stall the engine's single read loop.
func sendDropOldest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
