package telephony

import (
	"bytes"
	"context"
	"encoding/xml"
	"log/slog"
	"strings"

	"pbx-connector/internal/calls"
	"pbx-connector/internal/directory"
	"pbx-connector/internal/rbac"
)

// ContentType is the media type of every document returned to the PBX.
const ContentType = "text/xml; charset=utf-8"

// Document is a rendered XML directive, declaration included.
type Document []byte

func (d Document) String() string { return string(d) }

type xmlResponse struct {
	XMLName        xml.Name `xml:"Response"`
	Authentication string   `xml:"Authentication,omitempty"`
	Dial           *xmlDial `xml:"Dial,omitempty"`
}

type xmlDial struct {
	Authentication   string   `xml:"Authentication"`
	Numbers          []string `xml:"Number"`
	ConfiguredNumber string   `xml:"ConfiguredNumber,omitempty"`
}

var failureDocument = mustRender(xmlResponse{Authentication: "Failure"})

// FailureDocument is the reply when there is no routing decision to hand back.
func FailureDocument() Document {
	return append(Document(nil), failureDocument...)
}

// PermissionChecker is the capability check applied to every routing candidate.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID string, p rbac.Permission) (bool, error)
}

// CallCloser closes a call nobody can be offered.
type CallCloser interface {
	MarkUnanswered(ctx context.Context, callID string) (calls.Record, error)
}

// ResponseBuilder renders dial documents for start events.
type ResponseBuilder struct {
	Permissions PermissionChecker
	Calls       CallCloser

	// Trunk qualifies external numbers in outbound documents.
	Trunk string

	Log *slog.Logger
}

// Inbound offers the call to every candidate except the caller's own number
// and users without the receive-incoming-calls permission. candidates is the
// directory snapshot taken for this request.
//
// With no candidates at all the document carries <ConfiguredNumber>empty</ConfiguredNumber>
// and the call is closed as unanswered.
func (b ResponseBuilder) Inbound(ctx context.Context, callID, callerNumber string, candidates []directory.RoutingCandidate) (Document, error) {
	dial := &xmlDial{Authentication: "Success"}

	if len(candidates) == 0 {
		dial.ConfiguredNumber = "empty"
		if b.Calls != nil {
			if _, err := b.Calls.MarkUnanswered(ctx, callID); err != nil {
				b.log().Error("mark unanswered failed", "call_id", callID, "err", err)
			}
		}
		return render(xmlResponse{Dial: dial})
	}

	caller := strings.TrimSpace(callerNumber)
	for _, c := range candidates {
		number := strings.TrimSpace(c.Number)
		if number == "" || number == caller {
			continue
		}
		if !b.mayReceive(ctx, callID, c.UserID) {
			continue
		}
		dial.Numbers = append(dial.Numbers, FormatNumber(number))
	}
	return render(xmlResponse{Dial: dial})
}

// Outbound hands the PBX the single destination of a click-to-call.
func (b ResponseBuilder) Outbound(to string) (Document, error) {
	return render(xmlResponse{Dial: &xmlDial{
		Authentication: "Success",
		Numbers:        []string{FormatOutbound(to, b.Trunk)},
	}})
}

func (b ResponseBuilder) mayReceive(ctx context.Context, callID, userID string) bool {
	if b.Permissions == nil {
		return true
	}
	ok, err := b.Permissions.HasPermission(ctx, userID, rbac.PermReceiveIncomingCalls)
	if err != nil {
		b.log().Warn("permission check failed, skipping candidate", "call_id", callID, "user_id", userID, "err", err)
		return false
	}
	return ok
}

func (b ResponseBuilder) log() *slog.Logger {
	if b.Log == nil {
		return slog.Default()
	}
	return b.Log
}

func render(r xmlResponse) (Document, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return Document(buf.Bytes()), nil
}

func mustRender(r xmlResponse) Document {
	d, err := render(r)
	if err != nil {
		panic(err)
	}
	return d
}
