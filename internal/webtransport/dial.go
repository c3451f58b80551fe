package webtransport

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/webtransport-go"

	"github.com/zsiec/moqc/internal/carrier"
)

// Dialer dials an outbound WebTransport session to a MoQ server. Insecure skips TLS peer verification, for
// talking to the demo carrier's self-signed certificate.
type Dialer struct {
	Insecure bool
}

var _ carrier.Dialer = Dialer{}

// Dial opens a WebTransport session to urlStr (an https:// URL whose path
// selects the server's MoQ endpoint).
func (d Dialer) Dial(ctx context.Context, urlStr string) (carrier.Connection, error) {
	wtd := webtransport.Dialer{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: d.Insecure}, //nolint:gosec
		QUICConfig: &quic.Config{
			EnableDatagrams: true,
		},
	}

	_, session, err := wtd.Dial(ctx, urlStr, http.Header{})
	if err != nil {
		return nil, err
	}
	return &conn{session: session}, nil
}
