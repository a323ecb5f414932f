/*

This file contains the serializable plan format handed to the simulation
node and to the signing collaborator: an ordered list of operations, each
naming an entry point, its named arguments and its type parameters.

*/

package plan

import (
	"encoding/json"
	"fmt"
)

// ArgumentKind tells the executor how to resolve an argument.
type ArgumentKind string

const (
	KindPure   ArgumentKind = "pure"   // literal value
	KindObject ArgumentKind = "object" // ledger object reference
	KindGas    ArgumentKind = "gas"    // the sender's gas coin
	KindResult ArgumentKind = "result" // output of an earlier operation
)

// Built-in targets understood by every executor.
const (
	TargetSplitCoins      = "SplitCoins"
	TargetMergeCoins      = "MergeCoins"
	TargetTransferObjects = "TransferObjects"
)

// ResultRef points at output Index of operation Operation.
type ResultRef struct {
	Operation int `json:"operation"`
	Index     int `json:"index"`
}

func (r ResultRef) String() string {
	return fmt.Sprintf("result(%d,%d)", r.Operation, r.Index)
}

// Argument is one named, resolved argument of an operation.
type Argument struct {
	Name     string       `json:"name"`
	Kind     ArgumentKind `json:"kind"`
	Value    any          `json:"value,omitempty"`
	ObjectID string       `json:"objectId,omitempty"`
	Result   *ResultRef   `json:"result,omitempty"`
	ByValue  bool         `json:"byValue,omitempty"` // argument is moved into the call
}

// Output describes one value an operation produces.
type Output struct {
	Label     string `json:"label"`
	Ephemeral bool   `json:"ephemeral,omitempty"` // must be moved or transferred before the plan ends
}

// Operation is a single step of a plan.
type Operation struct {
	Target         string     `json:"target"`
	Arguments      []Argument `json:"arguments"`
	TypeParameters []string   `json:"typeParameters"`
	Outputs        []Output   `json:"outputs,omitempty"`
}

// Plan is an ordered, typed sequence of ledger operations.
type Plan struct {
	Operations []Operation `json:"operations"`
}

// Len returns the number of operations.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Operations)
}

// Marshal encodes the plan in its wire format.
func (p *Plan) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Unmarshal decodes a plan from its wire format.
func Unmarshal(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &p, nil
}

// Targets lists operation targets in order.
func (p *Plan) Targets() []string {
	targets := make([]string, 0, p.Len())
	for _, op := range p.Operations {
		targets = append(targets, op.Target)
	}
	return targets
}

// IndexOf returns the index of the first operation whose target equals target, or -1.
func (p *Plan) IndexOf(target string) int {
	for i, op := range p.Operations {
		if op.Target == target {
			return i
		}
	}
	return -1
}

// Unconsumed inspects the plan statically and returns every ephemeral output
// that is never moved into a later operation.
func (p *Plan) Unconsumed() []ResultRef {
	moved := make(map[ResultRef]bool)
	for _, op := range p.Operations {
		for _, arg := range op.Arguments {
			if arg.Kind == KindResult && arg.Result != nil && arg.ByValue {
				moved[*arg.Result] = true
			}
		}
	}

	var dangling []ResultRef
	for i, op := range p.Operations {
		for j, out := range op.Outputs {
			ref := ResultRef{Operation: i, Index: j}
			if out.Ephemeral && !moved[ref] {
				dangling = append(dangling, ref)
			}
		}
	}
	return dangling
}
