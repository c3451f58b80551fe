package protocol

// ErrorCode is a draft-ietf-moq-transport-14 numeric error code. The same
// catalog is reused across SUBSCRIBE_ERROR, PUBLISH_ERROR, FETCH_ERROR,
// PUBLISH_NAMESPACE_ERROR, and session-fatal close reasons.
type ErrorCode uint64

// The full draft-14 catalog, 0x00 INTERNAL_ERROR through 0x1E UNKNOWN_ROLE.
// Names in the middle of the range that the draft text leaves ambiguous
// are this implementation's best-effort reconstruction of the draft's
// session/request error taxonomy.
const (
	ErrInternalError             ErrorCode = 0x00
	ErrUnauthorized              ErrorCode = 0x01
	ErrProtocolViolation         ErrorCode = 0x02
	ErrDuplicateTrackAlias       ErrorCode = 0x03
	ErrParameterLengthMismatch   ErrorCode = 0x04
	ErrTooManyRequests           ErrorCode = 0x05
	ErrInvalidPath               ErrorCode = 0x06
	ErrMalformedPath             ErrorCode = 0x07
	ErrGoAwayTimeout             ErrorCode = 0x08
	ErrControlMessageTimeout     ErrorCode = 0x09
	ErrDataStreamTimeout         ErrorCode = 0x0A
	ErrAuthTokenCacheOverflow    ErrorCode = 0x0B
	ErrDuplicateAuthTokenAlias   ErrorCode = 0x0C
	ErrVersionNotSupported       ErrorCode = 0x0D
	ErrInvalidEncoding           ErrorCode = 0x0E
	ErrParameterValueOutOfRange  ErrorCode = 0x0F
	ErrTrackDoesNotExist         ErrorCode = 0x10
	ErrInvalidRange              ErrorCode = 0x11
	ErrRequestIDOutOfBounds      ErrorCode = 0x12
	ErrExpiredAuthToken          ErrorCode = 0x13
	ErrNamespacePrefixOverlap    ErrorCode = 0x14
	ErrMalformedAuthToken        ErrorCode = 0x15
	ErrUnknownAuthTokenAlias     ErrorCode = 0x16
	ErrTrackNameUnsupported      ErrorCode = 0x17
	ErrMalformedTrackName        ErrorCode = 0x18
	ErrTrackNotExist             ErrorCode = 0x19
	ErrRetryTrackAlias           ErrorCode = 0x1A
	ErrNoTracks                  ErrorCode = 0x1B
	ErrRequestCanceled           ErrorCode = 0x1C
	ErrMalformedAuthTokenRequest ErrorCode = 0x1D
	ErrUnknownRole               ErrorCode = 0x1E
)

// PublishDone / TrackStatus status codes (draft-14 §9.14 family).
const (
	StatusDoneInternalError    uint64 = 0x00
	StatusDoneUnauthorized     uint64 = 0x01
	StatusDoneTrackEnded       uint64 = 0x02
	StatusDoneSubscribeEnded   uint64 = 0x03
	StatusDoneGoingAway        uint64 = 0x04
	StatusDoneExpired          uint64 = 0x05
	StatusDoneTooFarBehind     uint64 = 0x06
	StatusDoneMalformedTrack   uint64 = 0x07
	StatusDoneUnsubscribed     uint64 = 0x08
	StatusDoneInvalidSubgroups uint64 = 0x09
)

// TRACK_STATUS_OK status codes (draft-14 §9.20 family).
const (
	TrackStatusInProgress   uint64 = 0x00
	TrackStatusDoesNotExist uint64 = 0x01
	TrackStatusNotStarted   uint64 = 0x02
	TrackStatusEnded        uint64 = 0x03
	TrackStatusUnknown      uint64 = 0x04
)
