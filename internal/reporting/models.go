package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest selects calls by start time, From inclusive and To exclusive.
// Direction is optional.
type CallsSummaryRequest struct {
	Range     TimeRange `json:"range"`
	Direction string    `json:"direction,omitempty"`
}

type CallsSummary struct {
	Range     TimeRange `json:"range"`
	Direction string    `json:"direction,omitempty"`

	TotalCalls      int `json:"total_calls"`
	InboundCalls    int `json:"inbound_calls"`
	OutboundCalls   int `json:"outbound_calls"`
	RingingCalls    int `json:"ringing_calls"`
	InProgressCalls int `json:"in_progress_calls"`
	CompletedCalls  int `json:"completed_calls"`
	NoAnswerCalls   int `json:"no_answer_calls"`
	BusyCalls       int `json:"busy_calls"`

	// OtherStatuses counts raw hangup causes passed through as status.
	OtherStatuses map[string]int `json:"other_statuses"`

	TotalDurationSeconds    int `json:"total_duration_seconds"`
	BillableDurationSeconds int `json:"billable_duration_seconds"`
	AverageDurationSeconds  int `json:"average_duration_seconds"`

	RecordedCalls   int `json:"recorded_calls"`
	UnassignedCalls int `json:"unassigned_calls"`
}
