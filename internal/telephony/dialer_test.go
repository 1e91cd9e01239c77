package telephony

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pbx-connector/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDialer(serverURL string) *Dialer {
	return NewDialer(config.PBXConfig{
		ServerURL:       serverURL,
		OutboundContext: "from-crm",
		OutboundTrunk:   "office.trunk",
		SecretKey:       "s3cret",
	}, quietLogger())
}

func TestDialer_SendsOriginationRequest(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = io.WriteString(w, "Success")
	}))
	defer srv.Close()

	if ok := newTestDialer(srv.URL+"/").Call(context.Background(), "1001", "+1 555 0100"); !ok {
		t.Fatalf("expected success")
	}
	if got == nil {
		t.Fatalf("expected request")
	}
	if got.Method != http.MethodPost || got.URL.Path != "/makecall" {
		t.Fatalf("unexpected request %s %s", got.Method, got.URL.Path)
	}
	q := got.URL.Query()
	want := map[string]string{
		"event":   "OutgoingCall",
		"secret":  "s3cret",
		"from":    "1001",
		"to":      "+1 555 0100",
		"context": "from-crm",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Fatalf("query %s = %q, want %q", k, q.Get(k), v)
		}
	}
}

func TestDialer_ResponseBodies(t *testing.T) {
	cases := []struct {
		body   string
		status int
		want   bool
	}{
		{"Error", http.StatusOK, false},
		{"Authentication Failure", http.StatusOK, false},
		{"", http.StatusOK, false},
		{"  \n", http.StatusOK, false},
		{"Originated", http.StatusOK, true},
		{"Originated", http.StatusInternalServerError, false},
		{"Originated", http.StatusAccepted, false},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = io.WriteString(w, tc.body)
		}))
		got := newTestDialer(srv.URL).Call(context.Background(), "1001", "5551234")
		srv.Close()
		if got != tc.want {
			t.Fatalf("body %q status %d: got %v, want %v", tc.body, tc.status, got, tc.want)
		}
	}
}

func TestDialer_TypedErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "Error")
	}))
	d := newTestDialer(srv.URL)
	err := d.originate(context.Background(), "1001", "5551234")
	var rejected *RejectedResponseError
	if !errors.As(err, &rejected) || rejected.Body != "Error" {
		t.Fatalf("expected RejectedResponseError, got %v", err)
	}
	srv.Close()

	err = d.originate(context.Background(), "1001", "5551234")
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if strings.Contains(err.Error(), "s3cret") {
		t.Fatalf("transport error leaks secret: %v", err)
	}
}

func TestDialer_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "Success")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if newTestDialer(srv.URL).Call(ctx, "1001", "5551234") {
		t.Fatalf("expected failure on canceled context")
	}
}
