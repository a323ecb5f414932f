package types

import (
	"github.com/elys-network/yieldsplit/internal/plan"
)

// ReturnValue is one raw value returned by an operation with its declared type tag.
type ReturnValue struct {
	Bytes []byte `json:"bytes"`
	Type  string `json:"type"`
}

// OperationResult holds the return values of a single operation.
type OperationResult struct {
	ReturnValues []ReturnValue `json:"returnValues"`
}

// Event is a structured record emitted during execution.
type Event struct {
	Type       string         `json:"type"`
	ParsedJSON map[string]any `json:"parsedJson"`
}

// SimulationResult is the outcome of non-committing execution of a plan.
type SimulationResult struct {
	Error   string            `json:"error,omitempty"`
	Results []OperationResult `json:"results"`
	Events  []Event           `json:"events"`
}

// DebugInfo pairs a plan with its simulation and decoded output for diagnostics.
type DebugInfo struct {
	RequestID     string            `json:"request_id"`
	Sender        string            `json:"sender"`
	Plan          *plan.Plan        `json:"plan"`
	Result        *SimulationResult `json:"result,omitempty"`
	DecodedOutput string            `json:"decoded_output,omitempty"`
}
