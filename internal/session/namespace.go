package session

import (
	"context"
	"fmt"

	"github.com/zsiec/moqc/internal/protocol"
	"github.com/zsiec/moqc/internal/wire"
)

// AnnounceNamespace emits PUBLISH_NAMESPACE and blocks until the peer
// confirms or rejects it.
func (s *Session) AnnounceNamespace(ctx context.Context, namespace []string, params []wire.Param) error {
	reqID, err := s.allocateRequestID()
	if err != nil {
		return err
	}

	na := &namespaceAnnouncement{
		namespace: namespace,
		resultCh:  make(chan error, 1),
	}
	s.mu.Lock()
	s.nsAnnouncements[reqID] = na
	s.mu.Unlock()

	msg := protocol.PublishNamespace{RequestID: reqID, Namespace: namespace, Params: params}
	if err := s.writeControl(protocol.MsgPublishNamespace, msg); err != nil {
		s.mu.Lock()
		delete(s.nsAnnouncements, reqID)
		s.mu.Unlock()
		return fmt.Errorf("session: write PUBLISH_NAMESPACE: %w", err)
	}

	select {
	case err := <-na.resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.doneCh:
		return ErrClosed
	}
}

// CancelNamespace emits PUBLISH_NAMESPACE_CANCEL for a namespace this
// session previously announced.
func (s *Session) CancelNamespace(namespace []string) error {
	return s.writeControl(protocol.MsgPublishNamespaceCancel, protocol.PublishNamespaceCancel{Namespace: namespace})
}

func (s *Session) handlePublishNamespaceOK(m protocol.PublishNamespaceOK) {
	s.mu.Lock()
	na, ok := s.nsAnnouncements[m.RequestID]
	if ok {
		delete(s.nsAnnouncements, m.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		s.log.Warn("PUBLISH_NAMESPACE_OK for unknown request", "request_id", m.RequestID)
		return
	}
	na.resultCh <- nil
}

func (s *Session) handlePublishNamespaceError(m protocol.PublishNamespaceError) {
	s.mu.Lock()
	na, ok := s.nsAnnouncements[m.RequestID]
	if ok {
		delete(s.nsAnnouncements, m.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		s.log.Warn("PUBLISH_NAMESPACE_ERROR for unknown request", "request_id", m.RequestID)
		return
	}
	na.resultCh <- &RequestError{Code: m.ErrorCode, Reason: m.Reason}
}

func (s *Session) handlePublishNamespaceDone(m protocol.PublishNamespaceDone) {
	sendDropOldest(s.events.namespaceDone, NamespaceDoneEvent{Namespace: m.Namespace})
}

func (s *Session) handlePublishNamespaceCancel(m protocol.PublishNamespaceCancel) {
	sendDropOldest(s.events.namespaceDone, NamespaceDoneEvent{Namespace: m.Namespace, Canceled: true})
}

// handleIncomingPublishNamespace surfaces a peer's PUBLISH_NAMESPACE as a
// NamespaceAnnouncedEvent and immediately acknowledges it. This engine
// does not relay announcements to other peers, so there is no accept/reject decision to expose here.
func (s *Session) handleIncomingPublishNamespace(m protocol.PublishNamespace) {
	sendDropOldest(s.events.namespaceAnnounced, NamespaceAnnouncedEvent{Namespace: m.Namespace, RequestID: m.RequestID})
	_ = s.writeControl(protocol.MsgPublishNamespaceOK, protocol.PublishNamespaceOK{RequestID: m.RequestID})
}

// SubscribeNamespace registers interest in namespaces under prefix. It blocks until the peer confirms or rejects the registration.
func (s *Session) SubscribeNamespace(ctx context.Context, prefix []string, params []wire.Param) error {
	reqID, err := s.allocateRequestID()
	if err != nil {
		return err
	}

	ns := &namespaceSubscription{
		prefix:   prefix,
		resultCh: make(chan error, 1),
	}
	s.mu.Lock()
	s.nsSubscriptions[reqID] = ns
	s.mu.Unlock()

	msg := protocol.SubscribeNamespace{RequestID: reqID, Prefix: prefix, Params: params}
	if err := s.writeControl(protocol.MsgSubscribeNamespace, msg); err != nil {
		s.mu.Lock()
		delete(s.nsSubscriptions, reqID)
		s.mu.Unlock()
		return fmt.Errorf("session: write SUBSCRIBE_NAMESPACE: %w", err)
	}

	select {
	case err := <-ns.resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.doneCh:
		return ErrClosed
	}
}

// UnsubscribeNamespace cancels a previously registered prefix.
func (s *Session) UnsubscribeNamespace(reqID uint64) error {
	s.mu.Lock()
	delete(s.nsSubscriptions, reqID)
	s.mu.Unlock()
	return s.writeControl(protocol.MsgUnsubscribeNamespace, protocol.UnsubscribeNamespace{RequestID: reqID})
}

func (s *Session) handleSubscribeNamespaceOK(m protocol.SubscribeNamespaceOK) {
	s.mu.Lock()
	ns, ok := s.nsSubscriptions[m.RequestID]
	s.mu.Unlock()
	if !ok {
		s.log.Warn("SUBSCRIBE_NAMESPACE_OK for unknown request", "request_id", m.RequestID)
		return
	}
	ns.resultCh <- nil
}

func (s *Session) handleSubscribeNamespaceError(m protocol.SubscribeNamespaceError) {
	s.mu.Lock()
	ns, ok := s.nsSubscriptions[m.RequestID]
	if ok {
		delete(s.nsSubscriptions, m.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		s.log.Warn("SUBSCRIBE_NAMESPACE_ERROR for unknown request", "request_id", m.RequestID)
		return
	}
	ns.resultCh <- &RequestError{Code: m.ErrorCode, Reason: m.Reason}
}

// handleIncomingSubscribeNamespace surfaces a peer's discovery
// registration. Nothing is tracked locally for it: this engine has no
// namespaces to report back beyond what it itself announces via
// AnnounceNamespace, and PublishNamespace handling already emits the
// matching event when one arrives.
func (s *Session) handleIncomingSubscribeNamespace(m protocol.SubscribeNamespace) {
	_ = s.writeControl(protocol.MsgSubscribeNamespaceOK, protocol.SubscribeNamespaceOK{RequestID: m.RequestID})
}
