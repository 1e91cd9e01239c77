package telephony

import (
	"context"
	"errors"
	"log/slog"

	"pbx-connector/internal/calls"
	"pbx-connector/internal/directory"
	"pbx-connector/pkg/logger"
)

// CandidateSource lists the numbers an inbound call may be offered to.
type CandidateSource interface {
	UserNumbers(ctx context.Context) ([]directory.RoutingCandidate, error)
}

// Router dispatches PBX events to the call state machine and answers with the
// document the PBX expects. Events of one call are handled one at a time.
type Router struct {
	Machine    *calls.StateMachine
	Candidates CandidateSource
	Responses  ResponseBuilder
	Locks      calls.Locker
}

func NewRouter(machine *calls.StateMachine, candidates CandidateSource, responses ResponseBuilder, locks calls.Locker) *Router {
	if locks == nil {
		locks = calls.NewKeyedLocker()
	}
	if responses.Calls == nil {
		responses.Calls = machine
	}
	return &Router{Machine: machine, Candidates: candidates, Responses: responses, Locks: locks}
}

// Handle always produces a document. Start events get a dial document; every
// other event, and every failure, gets the failure document.
func (r *Router) Handle(ctx context.Context, ev Event) Document {
	kind, ok := ParseEventKind(ev.Name)
	if !ok {
		logger.From(ctx).Warn("unknown pbx event", "event", ev.Name, "call_id", ev.CallID())
		return FailureDocument()
	}

	callID := ev.CallID()
	if kind == EventStart {
		callID = ev.Start().CallID
	}
	log := logger.ForCall(ctx, callID, string(kind))

	if callID != "" {
		unlock, err := r.Locks.Lock(ctx, callID)
		if err != nil {
			log.Error("call lock failed", "err", err)
			return FailureDocument()
		}
		defer unlock()
	}

	doc, err := r.dispatch(ctx, kind, ev)
	if err != nil {
		logEventError(log, err)
		return FailureDocument()
	}
	return doc
}

func (r *Router) dispatch(ctx context.Context, kind EventKind, ev Event) (Document, error) {
	var err error
	switch kind {
	case EventStart:
		return r.start(ctx, ev)
	case EventDial:
		_, err = r.Machine.OnDial(ctx, ev.Dial())
	case EventEnd:
		_, err = r.Machine.OnEnd(ctx, ev.End())
	case EventHangup:
		_, err = r.Machine.OnHangup(ctx, ev.Hangup())
	case EventRecording:
		_, err = r.Machine.OnRecording(ctx, ev.Recording())
	}
	if err != nil {
		return nil, err
	}
	return FailureDocument(), nil
}

func (r *Router) start(ctx context.Context, ev Event) (Document, error) {
	rec, err := r.Machine.OnStart(ctx, ev.Start())
	if err != nil {
		return nil, err
	}
	if rec.Direction == calls.DirectionOutbound {
		return r.Responses.Outbound(rec.CustomerNumber)
	}

	// One directory snapshot per request.
	candidates, err := r.Candidates.UserNumbers(ctx)
	if err != nil {
		return nil, err
	}
	return r.Responses.Inbound(ctx, rec.CallID, ev.CallerNumber(), candidates)
}

func logEventError(log *slog.Logger, err error) {
	var creation *calls.RecordCreationError
	var notFound *calls.NotFoundError
	switch {
	case errors.As(err, &creation):
		log.Warn("call record not created", "err", err)
	case errors.Is(err, calls.ErrDuplicate):
		log.Warn("duplicate start event ignored", "err", err)
	case errors.As(err, &notFound):
		log.Warn("event for unknown call", "err", err)
	default:
		log.Error("pbx event failed", "err", err)
	}
}
