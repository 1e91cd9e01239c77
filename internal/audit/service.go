package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only: there are no Update or Delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
// Audit is internal-only and callers treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// DialAttempt describes one click-to-call request.
type DialAttempt struct {
	ActorUserID string
	ActorRole   string
	IP          string
	Extension   string
	Number      string
	Success     bool
}

// LogOutboundDial records a click-to-call attempt and its result.
func (s *Service) LogOutboundDial(ctx context.Context, a DialAttempt) error {
	outcome := OutcomeSuccess
	msg := "outbound call requested"
	if !a.Success {
		outcome = OutcomeFailure
		msg = "outbound call not accepted by pbx"
	}
	return s.Append(ctx, Event{
		Type:        EventTypeOutboundDial,
		ActorUserID: a.ActorUserID,
		ActorRole:   a.ActorRole,
		IPAddress:   a.IP,
		Number:      a.Number,
		Outcome:     outcome,
		Message:     msg,
		Metadata:    metadata(map[string]string{"extension": a.Extension}),
	})
}

// LogWebhookRejected records a webhook turned away before reaching call handling.
func (s *Service) LogWebhookRejected(ctx context.Context, ip, event, callID, reason string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeWebhookRejected,
		IPAddress: ip,
		CallID:    callID,
		Outcome:   OutcomeFailure,
		Message:   reason,
		Metadata:  metadata(map[string]string{"event": event}),
	})
}

func metadata(m map[string]string) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
