package reporting

import (
	"context"
	"errors"
	"time"

	"pbx-connector/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting. calls.Repository satisfies it.
type Repository interface {
	List(ctx context.Context, from, to time.Time) ([]calls.Record, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	var direction calls.Direction
	if req.Direction != "" {
		d, ok := calls.ParseDirection(req.Direction)
		if !ok {
			return CallsSummary{}, ErrInvalidRequest
		}
		direction = d
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.List(ctx, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{Range: req.Range, Direction: string(direction), OtherStatuses: map[string]int{}}
	for _, c := range rows {
		if direction != "" && c.Direction != direction {
			continue
		}
		out.TotalCalls++
		out.TotalDurationSeconds += int(c.TotalDuration / time.Second)
		out.BillableDurationSeconds += int(c.BillableDuration / time.Second)
		if c.RecordingURL != "" {
			out.RecordedCalls++
		}
		if c.AssignedUserID == "" {
			out.UnassignedCalls++
		}
		switch c.Direction {
		case calls.DirectionInbound:
			out.InboundCalls++
		case calls.DirectionOutbound:
			out.OutboundCalls++
		}
		switch c.Status {
		case calls.StatusRinging:
			out.RingingCalls++
		case calls.StatusInProgress:
			out.InProgressCalls++
		case calls.StatusCompleted:
			out.CompletedCalls++
		case calls.StatusNoAnswer:
			out.NoAnswerCalls++
		case calls.StatusBusy:
			out.BusyCalls++
		default:
			out.OtherStatuses[string(c.Status)]++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}
