// Package server exposes the engine over a JSON line protocol: one
// request object per line in, one response object per line out.
// Requests carry client-chosen ids; responses echo them, so answers may
// arrive out of order and a cancel can name the request it targets.
package server

import (
	spyglass "github.com/mgrier/spyglass"
)

// Request types.
const (
	TypeScan       = "scan"
	TypeDefinition = "definition"
	TypeComplete   = "complete"
	TypeCallTip    = "calltip"
	TypeSearch     = "search"
	TypeRemove     = "remove"
	TypeCancel     = "cancel"
)

// Response statuses.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// Error codes.
const (
	CodeBadRequest      = "bad_request"
	CodeUnknownLanguage = "unknown_language"
	CodeNotIndexed      = "not_indexed"
	CodeUnresolved      = "unresolved"
	CodeAmbiguous       = "ambiguous"
	CodeScanTimeout     = "scan_timeout"
	CodeInternal        = "internal"
)

// Request is one client request.
type Request struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	File     string             `json:"file,omitempty"`
	Language string             `json:"language,omitempty"`
	Source   string             `json:"source,omitempty"`
	Position *spyglass.Position `json:"position,omitempty"`
	Prefix   string             `json:"prefix,omitempty"`
	Limit    int                `json:"limit,omitempty"`
	// TargetID names the request a cancel applies to.
	TargetID string `json:"target_id,omitempty"`
}

// Response is one server answer.
type Response struct {
	ID      string     `json:"id"`
	Status  string     `json:"status"`
	Payload any        `json:"payload,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo carries a machine-readable code plus, for ambiguity, the
// candidate locations so clients can present a pick list.
type ErrorInfo struct {
	Code       string              `json:"code"`
	Message    string              `json:"message"`
	Candidates []spyglass.Location `json:"candidates,omitempty"`
}

// ScanResult is the payload of a scan response.
type ScanResult struct {
	File     string `json:"file"`
	Language string `json:"language"`
	Blobs    int    `json:"blobs"`
	Failures int    `json:"failures"`
}

// CompleteResult is the payload of a complete response.
type CompleteResult struct {
	Candidates []spyglass.Candidate `json:"candidates"`
}

// SearchResult is the payload of a search response.
type SearchResult struct {
	Locations []spyglass.Location `json:"locations"`
}
