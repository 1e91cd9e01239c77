package calls

// Event parameter sets as delivered by the PBX. Values are raw strings;
// the state machine owns their interpretation.

type StartEvent struct {
	CallID    string // SourceUUID
	Direction string
	From      string
	To        string
	StartTime string
}

type DialEvent struct {
	CallID string
	// Caller is the originating party (callerid1).
	Caller string
	// AnsweredBy is the answering party (callerid2).
	AnsweredBy string
}

type EndEvent struct {
	CallID          string
	StartTime       string
	EndTime         string
	Duration        string
	BillableSeconds string
}

type HangupEvent struct {
	CallID string
	// Cause is the textual hangup cause (causetxt).
	Cause string
	// SecondaryCause is the auxiliary code (HangupCause), e.g. "NO ANSWER".
	SecondaryCause string
	EndTime        string
	Duration       string
}

type RecordingEvent struct {
	CallID       string
	RecordingURL string
}
