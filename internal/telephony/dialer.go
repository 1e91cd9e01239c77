package telephony

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pbx-connector/internal/config"

	"github.com/go-resty/resty/v2"
)

const (
	dialConnectTimeout = 1 * time.Second
	dialTotalTimeout   = 5 * time.Second
)

// Bodies the PBX answers with when it refuses to originate a call.
var rejectedBodies = map[string]bool{
	"":                       true,
	"Error":                  true,
	"Authentication Failure": true,
}

// TransportError means the origination request never got an HTTP answer.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "pbx transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-200 answer to the origination request.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pbx answered status %d", e.StatusCode)
}

// RejectedResponseError is a 200 answer whose body is a known refusal.
type RejectedResponseError struct {
	Body string
}

func (e *RejectedResponseError) Error() string {
	return fmt.Sprintf("pbx rejected call: %q", e.Body)
}

// Dialer asks the PBX to originate a call from a user's extension to a number.
// One attempt per call, never retried.
type Dialer struct {
	client  *resty.Client
	context string
	secret  string
	log     *slog.Logger
}

func NewDialer(cfg config.PBXConfig, log *slog.Logger) *Dialer {
	if log == nil {
		log = slog.Default()
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: dialConnectTimeout,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}
	client := resty.New().
		SetTransport(transport).
		SetBaseURL(strings.TrimRight(cfg.ServerURL, "/")).
		SetTimeout(dialTotalTimeout).
		SetRetryCount(0).
		SetLogger(restyLogger{log: log})

	return &Dialer{
		client:  client,
		context: cfg.OutboundContext,
		secret:  cfg.SecretKey,
		log:     log,
	}
}

// Call reports whether the PBX accepted the origination request.
// Failures are logged, never returned.
func (d *Dialer) Call(ctx context.Context, extension, number string) bool {
	if err := d.originate(ctx, extension, number); err != nil {
		d.log.Warn("outbound call failed", "from", extension, "to", number, "err", err)
		return false
	}
	d.log.Info("outbound call requested", "from", extension, "to", number)
	return true
}

func (d *Dialer) originate(ctx context.Context, extension, number string) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"event":   "OutgoingCall",
			"secret":  d.secret,
			"from":    extension,
			"to":      number,
			"context": d.context,
		}).
		Post("/makecall")
	if err != nil {
		// The request URL carries the shared secret; keep it out of errors.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return &TransportError{Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode()}
	}
	body := resp.String()
	if rejectedBodies[body] {
		return &RejectedResponseError{Body: body}
	}
	return nil
}

type restyLogger struct {
	log *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) { l.log.Error(fmt.Sprintf(format, v...)) }
func (l restyLogger) Warnf(format string, v ...any)  { l.log.Warn(fmt.Sprintf(format, v...)) }
func (l restyLogger) Debugf(format string, v ...any) { l.log.Debug(fmt.Sprintf(format, v...)) }
