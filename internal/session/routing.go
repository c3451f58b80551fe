package session

import "github.com/zsiec/moqc/internal/wire"

// moqMIMediaTypeParam is this implementation's chosen key for the moq-mi
// media-type extension header. Even per the
// extension-header convention, so
// its value is a plain varint rather than length-prefixed bytes.
const moqMIMediaTypeParam = 0x10

const (
	moqMIVideoCodec = 0x01
	moqMIAudioCodec = 0x02
)

// classifyExtensions inspects an object's extension headers for the
// moq-mi media-type hint. It is retained only as a
// diagnostic tag on the delivered Object per DESIGN NOTES "Media-type-based
// routing" — routing itself goes by track alias (routeByAlias), not by
// this classification.
func classifyExtensions(ext []wire.Param) ObjectKind {
	for _, p := range ext {
		if p.Type != moqMIMediaTypeParam {
			continue
		}
		switch p.VarintValue {
		case moqMIVideoCodec:
			return ObjectKindVideo
		case moqMIAudioCodec:
			return ObjectKindAudio
		}
	}
	return ObjectKindUnknown
}

// routeByAlias finds the subscription(s) registered against alias and
// delivers obj to one of them. Multiple subscriptions can legitimately
// share an alias only if the server reused it for the same track across
// two SUBSCRIBE calls; when more than one matches, only the first one
// found gets obj (subscriptions live in a map, so which one is not
// defined) and a warning is logged.
func (s *Session) routeByAlias(alias uint64, obj Object) {
	s.mu.Lock()
	var matched []*Subscription
	for _, sub := range s.subscriptions {
		sub.mu.Lock()
		hit := sub.state == subActive && sub.assignedAlias == alias
		sub.mu.Unlock()
		if hit {
			matched = append(matched, sub)
		}
	}
	s.mu.Unlock()

	if len(matched) == 0 {
		s.log.Debug("object for unknown track alias, dropping", "alias", alias)
		return
	}
	if len(matched) > 1 {
		s.log.Warn("multiple subscriptions share track alias, delivering to first", "alias", alias, "count", len(matched))
	}
	matched[0].deliver(obj)
}
