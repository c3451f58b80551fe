// Package webtransport implements the carrier.Connection/Dialer contract
// on top of quic-go's WebTransport implementation
// (github.com/quic-go/webtransport-go), the same library used by this
// project's teacher repo's distribution server.
package webtransport
