package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/moqc/internal/carrier"
	"github.com/zsiec/moqc/internal/protocol"
	"github.com/zsiec/moqc/internal/wire"
)

type sessionState int32

const (
	stateConnecting sessionState = iota
	stateConnected
	stateDisconnecting
	stateClosed
)

// Session orchestrates one MoQ session over a carrier.Connection: setup,
// request-id allocation, the four correlation tables, and object routing
//. It owns every Subscription/Fetch/namespace record it
// creates; the tables holding them are guarded by mu and are updated both
// by the read loops and by the caller-facing methods.
type Session struct {
	conn    carrier.Connection
	control carrier.ControlStream
	opts    Options
	log     *slog.Logger

	controlWriteMu sync.Mutex

	state           atomic.Int32
	selectedVersion atomic.Uint64
	peerMaxRequestID atomic.Uint64

	nextRequestID atomic.Uint64

	mu                 sync.Mutex
	subscriptions      map[uint64]*Subscription
	fetches            map[uint64]*Fetch
	nsAnnouncements    map[uint64]*namespaceAnnouncement
	nsSubscriptions    map[uint64]*namespaceSubscription
	pendingSubscribes  map[uint64]*IncomingSubscribeRequest
	pendingPublishes   map[uint64]*IncomingPublishRequest
	publishOffers      map[uint64]*publishOffer
	publisherSubs      map[uint64]*publisherSubscription
	aliasTable         map[uint64]TrackInfo
	trackStatusQueries map[uint64]*trackStatusQuery

	events *eventBus

	setupOnce sync.Once
	setupCh   chan error

	closeOnce sync.Once
	doneCh    chan struct{}

	eg *errgroup.Group
}

// namespaceAnnouncement is our own PUBLISH_NAMESPACE awaiting _OK/_ERROR
// or already confirmed.
type namespaceAnnouncement struct {
	namespace []string
	resultCh  chan error
}

// namespaceSubscription is our own SUBSCRIBE_NAMESPACE registration,
// mirroring namespaceAnnouncement on the discovery side.
type namespaceSubscription struct {
	prefix   []string
	resultCh chan error
}

// publisherSubscription is an accepted incoming SUBSCRIBE we are now
// serving as a publisher.
type publisherSubscription struct {
	requestID   uint64
	trackAlias  uint64
	openStreams map[uint64]carrier.SendStream // keyed by an internal stream handle id
	nextStream  uint64
	forward     byte
	largest     wire.Location
}

// New constructs a Session over conn. Call Connect to perform the MoQ
// handshake before using any other method.
func New(conn carrier.Connection, opts Options) *Session {
	log := slog.With("component", "moq-session")
	s := &Session{
		conn: conn,
		opts: opts,
		log:  log,

		subscriptions:     make(map[uint64]*Subscription),
		fetches:           make(map[uint64]*Fetch),
		nsAnnouncements:   make(map[uint64]*namespaceAnnouncement),
		nsSubscriptions:   make(map[uint64]*namespaceSubscription),
		pendingSubscribes: make(map[uint64]*IncomingSubscribeRequest),
		pendingPublishes:  make(map[uint64]*IncomingPublishRequest),
		publishOffers:      make(map[uint64]*publishOffer),
		publisherSubs:      make(map[uint64]*publisherSubscription),
		aliasTable:         make(map[uint64]TrackInfo),
		trackStatusQueries: make(map[uint64]*trackStatusQuery),

		events: newEventBus(opts.eventBuffer()),

		setupCh: make(chan error, 1),
		doneCh:  make(chan struct{}),
	}
	return s
}

// Events returns the session's read-only broadcast channels.
func (s *Session) Events() Events { return s.events.exported() }

// Connected reports whether the session has completed setup and is not
// yet disconnecting.
func (s *Session) Connected() bool {
	return sessionState(s.state.Load()) == stateConnected
}

// Connect opens the control stream, sends CLIENT_SETUP, and waits for
// SERVER_SETUP. On success it starts the control,
// data-stream, and datagram ingress loops and returns nil.
func (s *Session) Connect(ctx context.Context) error {
	control, err := s.conn.OpenControlStream(ctx)
	if err != nil {
		return fmt.Errorf("session: open control stream: %w", err)
	}
	s.control = control

	cs := protocol.ClientSetup{
		Versions:     s.opts.versions(),
		MaxRequestID: s.opts.maxRequestID(),
	}
	if s.opts.Path != "" {
		cs.Path = s.opts.Path
		cs.HasPath = true
	}
	if err := s.writeControl(protocol.MsgClientSetup, cs); err != nil {
		return fmt.Errorf("session: write CLIENT_SETUP: %w", err)
	}

	g, gctx := errgroup.WithContext(context.Background())
	s.eg = g
	g.Go(func() error { return s.controlReadLoop(gctx) })

	timeout := s.opts.setupTimeout()
	select {
	case err := <-s.setupCh:
		if err != nil {
			s.failSetup()
			return err
		}
	case <-time.After(timeout):
		s.failSetup()
		return ErrSetupTimeout
	case <-ctx.Done():
		s.failSetup()
		return ctx.Err()
	}

	s.state.Store(int32(stateConnected))
	sendDropOldest(s.events.connectionState, true)

	g.Go(func() error { return s.dataStreamLoop(gctx) })
	g.Go(func() error { return s.datagramLoop(gctx) })
	g.Go(func() error {
		<-s.conn.Context().Done()
		s.teardown(nil)
		return nil
	})

	return nil
}

func (s *Session) failSetup() {
	s.state.Store(int32(stateClosed))
	_ = s.conn.CloseWithError(uint64(protocol.ErrInternalError), "setup failed")
}

// Disconnect closes the carrier connection and fails every outstanding
// request future with ErrClosed.
func (s *Session) Disconnect() error {
	s.state.Store(int32(stateDisconnecting))
	err := s.conn.CloseWithError(0, "session closed")
	s.teardown(nil)
	return err
}

// teardown runs exactly once: it marks the session closed, fails every
// pending request/subscription, and closes every subscription's object
// channel.
func (s *Session) teardown(goaway *GoawayEvent) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(stateClosed))

		s.mu.Lock()
		for _, sub := range s.subscriptions {
			sub.fail(ErrClosed)
		}
		for _, f := range s.fetches {
			f.fail(ErrClosed)
		}
		for _, na := range s.nsAnnouncements {
			na.resultCh <- ErrClosed
		}
		for _, ns := range s.nsSubscriptions {
			ns.resultCh <- ErrClosed
		}
		for _, po := range s.publishOffers {
			po.resultCh <- publishOutcome{err: ErrClosed}
		}
		for _, q := range s.trackStatusQueries {
			q.resultCh <- trackStatusOutcome{err: ErrClosed}
		}
		s.mu.Unlock()

		sendDropOldest(s.events.connectionState, false)
		if goaway != nil {
			sendDropOldest(s.events.goaway, *goaway)
		}
		close(s.doneCh)
	})
}

// Done returns a channel closed once the session has torn down.
func (s *Session) Done() <-chan struct{} { return s.doneCh }

// allocateRequestID returns the next client request-id (even, monotonic),
// or ErrRequestsBlocked and a queued REQUESTS_BLOCKED if that would exceed
// the peer's advertised quota.
func (s *Session) allocateRequestID() (uint64, error) {
	limit := s.peerMaxRequestID.Load()
	for {
		id := s.nextRequestID.Load()
		if limit != 0 && id >= limit {
			_ = s.writeControl(protocol.MsgRequestsBlocked, protocol.RequestsBlocked{Limit: limit})
			return 0, ErrRequestsBlocked
		}
		if s.nextRequestID.CompareAndSwap(id, id+2) {
			return id, nil
		}
	}
}

// controlMessage is implemented by every protocol type with an Encode
// method, the same messageEncoder contract protocol.EncodeMessage uses.
type controlMessage interface {
	Encode() []byte
}

func (s *Session) writeControl(msgType protocol.MessageType, msg controlMessage) error {
	frame := protocol.EncodeMessage(msgType, msg)
	s.controlWriteMu.Lock()
	defer s.controlWriteMu.Unlock()
	_, err := s.control.Write(frame)
	return err
}

// controlReadLoop reads bytes off the control stream, frames them, and
// dispatches each decoded message.
func (s *Session) controlReadLoop(ctx context.Context) error {
	var framer protocol.Framer
	buf := make([]byte, 16*1024)

	readSetup := false

	for {
		n, err := s.control.Read(buf)
		if n > 0 {
			framer.Feed(buf[:n])
			for {
				frame, ok, ferr := framer.Next()
				if ferr != nil {
					s.log.Warn("malformed control frame", "error", ferr)
					if s.opts.CloseOnMalformed {
						s.closeProtocolViolation(ferr.Error())
						return nil
					}
					framer.Resync()
					continue
				}
				if !ok {
					break
				}

				if !readSetup {
					if frame.Type != protocol.MsgServerSetup {
						s.setupCh <- fmt.Errorf("session: expected SERVER_SETUP, got %#x", uint64(frame.Type))
						return nil
					}
					if err := s.handleServerSetup(frame.Payload); err != nil {
						s.setupCh <- err
						return nil
					}
					readSetup = true
					s.setupCh <- nil
					continue
				}

				s.dispatch(frame.Type, frame.Payload)
			}
		}
		if err != nil {
			if !readSetup {
				s.setupCh <- fmt.Errorf("session: control stream closed before SERVER_SETUP: %w", err)
			}
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Debug("control read error", "error", err)
			}
			s.teardown(nil)
			return nil
		}
	}
}

func (s *Session) closeProtocolViolation(reason string) {
	s.log.Error("protocol violation, closing session", "reason", reason)
	_ = s.conn.CloseWithError(uint64(protocol.ErrProtocolViolation), reason)
	s.teardown(nil)
}

func (s *Session) handleServerSetup(payload []byte) error {
	ss, err := protocol.DecodeServerSetup(payload)
	if err != nil {
		return fmt.Errorf("session: decode SERVER_SETUP: %w", err)
	}

	supported := false
	for _, v := range s.opts.versions() {
		if v == ss.SelectedVersion {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%w: server selected %#x", ErrVersionMismatch, ss.SelectedVersion)
	}

	s.selectedVersion.Store(ss.SelectedVersion)
	if ss.MaxRequestID != 0 {
		s.peerMaxRequestID.Store(ss.MaxRequestID)
	}
	s.log.Info("moq setup complete", "version", fmt.Sprintf("%#x", ss.SelectedVersion), "max_request_id", ss.MaxRequestID)
	return nil
}

// dispatch routes one decoded control message to its handler. Unknown
// types are skipped, not errors.
func (s *Session) dispatch(msgType protocol.MessageType, payload []byte) {
	msg, err := protocol.Decode(msgType, payload)
	if err != nil {
		var unknown *protocol.ErrUnknownMessage
		if errors.As(err, &unknown) {
			s.log.Debug("skipping unknown control message", "type", fmt.Sprintf("%#x", uint64(msgType)))
			return
		}
		s.log.Warn("malformed control message", "type", fmt.Sprintf("%#x", uint64(msgType)), "error", err)
		if s.opts.CloseOnMalformed {
			s.closeProtocolViolation(err.Error())
		}
		return
	}

	switch m := msg.(type) {
	case protocol.SubscribeOK:
		s.handleSubscribeOK(m)
	case protocol.SubscribeError:
		s.handleSubscribeError(m)
	case protocol.PublishDone:
		s.handlePublishDone(m)
	case protocol.Subscribe:
		s.handleIncomingSubscribe(m)
	case protocol.SubscribeUpdate:
		s.handleIncomingSubscribeUpdate(m)
	case protocol.Unsubscribe:
		s.handleIncomingUnsubscribe(m)

	case protocol.FetchOK:
		s.handleFetchOK(m)
	case protocol.FetchError:
		s.handleFetchError(m)

	case protocol.Publish:
		s.handleIncomingPublish(m)
	case protocol.PublishOK:
		s.handlePublishOK(m)
	case protocol.PublishError:
		s.handlePublishError(m)

	case protocol.PublishNamespace:
		s.handleIncomingPublishNamespace(m)
	case protocol.PublishNamespaceOK:
		s.handlePublishNamespaceOK(m)
	case protocol.PublishNamespaceError:
		s.handlePublishNamespaceError(m)
	case protocol.PublishNamespaceDone:
		s.handlePublishNamespaceDone(m)
	case protocol.PublishNamespaceCancel:
		s.handlePublishNamespaceCancel(m)

	case protocol.SubscribeNamespace:
		s.handleIncomingSubscribeNamespace(m)
	case protocol.SubscribeNamespaceOK:
		s.handleSubscribeNamespaceOK(m)
	case protocol.SubscribeNamespaceError:
		s.handleSubscribeNamespaceError(m)
	case protocol.UnsubscribeNamespace:
		// No local state keys incoming discovery registrations; nothing
		// to tear down on our side.

	case protocol.MaxRequestID:
		s.peerMaxRequestID.Store(m.RequestID)
	case protocol.RequestsBlocked:
		s.log.Debug("peer reports REQUESTS_BLOCKED", "limit", m.Limit)

	case protocol.GoAway:
		s.handleGoAway(m)

	case protocol.TrackStatus:
		s.handleIncomingTrackStatus(m)
	case protocol.TrackStatusOK:
		s.handleTrackStatusOK(m)
	case protocol.TrackStatusError:
		s.handleTrackStatusError(m)

	default:
		s.log.Debug("dispatch: unhandled decoded message", "type", fmt.Sprintf("%#x", uint64(msgType)))
	}
}

func (s *Session) handleGoAway(m protocol.GoAway) {
	ev := GoawayEvent{NewURI: m.NewSessionURI, HasMigrationURI: m.HasURI}
	s.log.Info("received GOAWAY", "new_uri", m.NewSessionURI, "has_migration", m.HasURI)
	s.state.Store(int32(stateDisconnecting))
	s.teardown(&ev)
}

// registerAlias enforces the "alias maps to at most one track" invariant
//. Returns ErrDuplicateTrackAlias
// if alias is already bound to a different track.
func (s *Session) registerAlias(alias uint64, info TrackInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.aliasTable[alias]; ok {
		if !sameTrack(existing, info) {
			return ErrDuplicateTrackAlias
		}
		return nil
	}
	s.aliasTable[alias] = info
	return nil
}

func sameTrack(a, b TrackInfo) bool {
	if a.TrackName != b.TrackName || len(a.Namespace) != len(b.Namespace) {
		return false
	}
	for i := range a.Namespace {
		if a.Namespace[i] != b.Namespace[i] {
			return false
		}
	}
	return true
}

func namespacesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hasPrefix(namespace, prefix []string) bool {
	if len(prefix) > len(namespace) {
		return false
	}
	for i := range prefix {
		if namespace[i] != prefix[i] {
			return false
		}
	}
	return true
}
