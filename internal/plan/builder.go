package plan

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrUnconsumedValue = errors.New("ephemeral value left unconsumed")
	ErrValueConsumed   = errors.New("value used after it was consumed")
	ErrInvalidArgument = errors.New("invalid plan argument")
)

// Value is a handle to something a plan operation can take as input: the gas
// coin, a ledger object, or the output of an earlier operation. Ephemeral
// handles are linear: they must be moved exactly once.
type Value struct {
	kind     ArgumentKind
	objectID string
	ref      ResultRef
	id       int // non-zero for tracked ephemeral outputs
}

// IsZero reports whether v is the zero handle.
func (v Value) IsZero() bool { return v.kind == "" }

// Ref returns the result reference for result handles.
func (v Value) Ref() (ResultRef, bool) { return v.ref, v.kind == KindResult }

// ObjectID returns the object id for object handles.
func (v Value) ObjectID() string { return v.objectID }

func (v Value) String() string {
	switch v.kind {
	case KindGas:
		return "gas"
	case KindObject:
		return "object(" + v.objectID + ")"
	case KindResult:
		return v.ref.String()
	}
	return "<nil>"
}

// Arg is a named argument waiting to be attached to an operation.
type Arg struct {
	name  string
	pure  any
	value Value
	move  bool
}

// Pure builds a literal argument. Integers are rendered as decimal strings.
func Pure(name string, v any) Arg {
	switch x := v.(type) {
	case sdkmath.Int:
		v = x.String()
	case uint64:
		v = strconv.FormatUint(x, 10)
	case int64:
		v = strconv.FormatInt(x, 10)
	}
	return Arg{name: name, pure: v}
}

// Borrow passes v by reference; the value stays alive.
func Borrow(name string, v Value) Arg { return Arg{name: name, value: v} }

// Move passes v by value, consuming it.
func Move(name string, v Value) Arg { return Arg{name: name, value: v, move: true} }

// Builder assembles a plan and tracks ephemeral values so that a plan with a
// dangling coin or price voucher can never be finalized.
type Builder struct {
	ops             []Operation
	live            map[int]string
	consumed        map[int]string
	consumedObjects map[string]bool
	nextID          int
	err             error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		live:            make(map[int]string),
		consumed:        make(map[int]string),
		consumedObjects: make(map[string]bool),
	}
}

// Gas returns the handle of the sender's gas coin.
func (b *Builder) Gas() Value { return Value{kind: KindGas} }

// Object returns a handle for a ledger object.
func (b *Builder) Object(id string) Value { return Value{kind: KindObject, objectID: id} }

// Len returns the number of operations emitted so far.
func (b *Builder) Len() int { return len(b.ops) }

// Err returns the first-class misuse errors collected so far.
func (b *Builder) Err() error { return b.err }

// Call appends an operation and returns one handle per declared output.
func (b *Builder) Call(target string, typeParams []string, args []Arg, outputs ...Output) []Value {
	opIndex := len(b.ops)
	op := Operation{
		Target:         target,
		Arguments:      make([]Argument, 0, len(args)),
		TypeParameters: append([]string{}, typeParams...),
		Outputs:        append([]Output{}, outputs...),
	}
	if op.TypeParameters == nil {
		op.TypeParameters = []string{}
	}

	for _, a := range args {
		op.Arguments = append(op.Arguments, b.resolve(target, a))
	}
	b.ops = append(b.ops, op)

	values := make([]Value, len(outputs))
	for i, out := range outputs {
		v := Value{kind: KindResult, ref: ResultRef{Operation: opIndex, Index: i}}
		if out.Ephemeral {
			b.nextID++
			v.id = b.nextID
			b.live[v.id] = fmt.Sprintf("%s from %s", out.Label, target)
		}
		values[i] = v
	}
	return values
}

func (b *Builder) resolve(target string, a Arg) Argument {
	if a.value.IsZero() {
		return Argument{Name: a.name, Kind: KindPure, Value: a.pure}
	}

	v := a.value
	arg := Argument{Name: a.name, Kind: v.kind, ByValue: a.move}
	switch v.kind {
	case KindObject:
		arg.ObjectID = v.objectID
		if b.consumedObjects[v.objectID] {
			b.fail(fmt.Errorf("%w: object %s passed to %s", ErrValueConsumed, v.objectID, target))
		}
		if a.move {
			b.consumedObjects[v.objectID] = true
		}
	case KindResult:
		ref := v.ref
		arg.Result = &ref
		if v.id != 0 {
			if label, gone := b.consumed[v.id]; gone {
				b.fail(fmt.Errorf("%w: %s passed to %s", ErrValueConsumed, label, target))
			} else if a.move {
				b.consumed[v.id] = b.live[v.id]
				delete(b.live, v.id)
			}
		}
	case KindGas:
		if a.move {
			b.fail(fmt.Errorf("%w: gas coin cannot be moved into %s", ErrInvalidArgument, target))
		}
	}
	return arg
}

func (b *Builder) fail(err error) {
	b.err = errors.Join(b.err, err)
}

// SplitCoins splits one new coin per amount off coin.
func (b *Builder) SplitCoins(coin Value, amounts ...sdkmath.Int) []Value {
	args := []Arg{Borrow("coin", coin)}
	outputs := make([]Output, len(amounts))
	for i, amount := range amounts {
		if amount.IsNil() || !amount.IsPositive() {
			b.fail(fmt.Errorf("%w: split amount must be positive", ErrInvalidArgument))
		}
		args = append(args, Pure(fmt.Sprintf("amount_%d", i), amount))
		outputs[i] = Output{Label: "split_coin", Ephemeral: true}
	}
	return b.Call(TargetSplitCoins, nil, args, outputs...)
}

// MergeCoins merges sources into destination, consuming the sources.
func (b *Builder) MergeCoins(destination Value, sources ...Value) {
	if len(sources) == 0 {
		return
	}
	args := []Arg{Borrow("destination", destination)}
	for i, src := range sources {
		args = append(args, Move(fmt.Sprintf("source_%d", i), src))
	}
	b.Call(TargetMergeCoins, nil, args)
}

// TransferObjects sends objects to recipient, consuming them.
func (b *Builder) TransferObjects(recipient string, objects ...Value) {
	if len(objects) == 0 {
		return
	}
	if recipient == "" {
		b.fail(fmt.Errorf("%w: transfer recipient is empty", ErrInvalidArgument))
	}
	args := make([]Arg, 0, len(objects)+1)
	for i, obj := range objects {
		args = append(args, Move(fmt.Sprintf("object_%d", i), obj))
	}
	args = append(args, Pure("recipient", recipient))
	b.Call(TargetTransferObjects, nil, args)
}

// Live returns descriptions of ephemeral values not yet consumed, sorted.
func (b *Builder) Live() []string {
	labels := make([]string, 0, len(b.live))
	for _, label := range b.live {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Finalize returns the plan, or an error when values were misused or left unconsumed.
func (b *Builder) Finalize() (*Plan, error) {
	if b.err != nil {
		return nil, b.err
	}
	if live := b.Live(); len(live) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnconsumedValue, strings.Join(live, ", "))
	}
	ops := make([]Operation, len(b.ops))
	copy(ops, b.ops)
	return &Plan{Operations: ops}, nil
}
