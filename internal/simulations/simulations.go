package simulations

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elys-network/yieldsplit/internal/config"
	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/observability"
	"github.com/elys-network/yieldsplit/internal/plan"
	"github.com/elys-network/yieldsplit/internal/rpc"
	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/google/uuid"
)

var simLogger = logger.GetForComponent("plan_simulator")

var (
	ErrSimulationFailed = errors.New("simulation request failed")
	ErrMalformedResult  = errors.New("malformed simulation result")
)

// SimulationError is a simulation that produced no usable result (transport
// failure or malformed response), with the plan that was sent.
type SimulationError struct {
	Err   error
	Debug *types.DebugInfo
}

func (e *SimulationError) Error() string {
	if errors.Is(e.Err, ErrSimulationFailed) {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSimulationFailed, e.Err)
}

func (e *SimulationError) Unwrap() error { return e.Err }

func (e *SimulationError) Is(target error) bool { return target == ErrSimulationFailed }

// DebugOf returns the DebugInfo attached to a simulation, contract or
// missing-output error, or nil.
func DebugOf(err error) *types.DebugInfo {
	var simErr *SimulationError
	if errors.As(err, &simErr) {
		return simErr.Debug
	}
	var contractErr *types.ContractError
	if errors.As(err, &contractErr) {
		return contractErr.Debug
	}
	var missing *types.MissingOutputError
	if errors.As(err, &missing) {
		return missing.Debug
	}
	return nil
}

// Simulator executes a plan without committing it.
type Simulator interface {
	Simulate(ctx context.Context, sender string, p *plan.Plan) (*types.SimulationResult, error)
}

// --- Wire Structures ---

// wireResult mirrors the node's response. Return values arrive as
// [bytes, typeTag] pairs with bytes as an array of numbers.
type wireResult struct {
	Error   string `json:"error,omitempty"`
	Results []struct {
		ReturnValues []json.RawMessage `json:"returnValues"`
	} `json:"results"`
	Events []types.Event `json:"events"`
}

func (w wireResult) decode() (*types.SimulationResult, error) {
	res := &types.SimulationResult{
		Error:   w.Error,
		Results: make([]types.OperationResult, len(w.Results)),
		Events:  w.Events,
	}
	for i, op := range w.Results {
		values := make([]types.ReturnValue, len(op.ReturnValues))
		for j, raw := range op.ReturnValues {
			var pair []json.RawMessage
			if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
				return nil, fmt.Errorf("%w: return value %d of operation %d is not a [bytes, type] pair", ErrMalformedResult, j, i)
			}
			var ints []int
			if err := json.Unmarshal(pair[0], &ints); err != nil {
				return nil, fmt.Errorf("%w: return value %d of operation %d: %w", ErrMalformedResult, j, i, err)
			}
			buf := make([]byte, len(ints))
			for k, b := range ints {
				if b < 0 || b > 255 {
					return nil, fmt.Errorf("%w: byte %d out of range", ErrMalformedResult, b)
				}
				buf[k] = byte(b)
			}
			var tag string
			if err := json.Unmarshal(pair[1], &tag); err != nil {
				return nil, fmt.Errorf("%w: type tag of return value %d: %w", ErrMalformedResult, j, err)
			}
			values[j] = types.ReturnValue{Bytes: buf, Type: tag}
		}
		res.Results[i] = types.OperationResult{ReturnValues: values}
	}
	return res, nil
}

// --- Simulation Client ---

// Client simulates plans through a node JSON-RPC method.
type Client struct {
	caller  rpc.Caller
	method  string
	metrics *observability.EngineMetrics
}

// NewClient returns a simulator calling method on caller; an empty method
// uses the default.
func NewClient(caller rpc.Caller, method string) *Client {
	if method == "" {
		method = config.DefaultSimulationMethod
	}
	return &Client{caller: caller, method: method, metrics: observability.Engine()}
}

// Simulate posts [sender, base64(plan)] and decodes the node's result.
func (c *Client) Simulate(ctx context.Context, sender string, p *plan.Plan) (*types.SimulationResult, error) {
	data, err := p.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}

	var wire wireResult
	params := []any{sender, base64.StdEncoding.EncodeToString(data)}
	if err := c.caller.Call(ctx, c.method, params, &wire); err != nil {
		c.metrics.ObserveSimulation("transport_error")
		return nil, errors.Join(ErrSimulationFailed, err)
	}
	return wire.decode()
}

// Run simulates p and turns a ledger-reported failure into a ContractError
// and any other failure into a SimulationError. The returned DebugInfo is
// populated on success and failure alike.
func Run(ctx context.Context, sim Simulator, sender string, p *plan.Plan) (*types.SimulationResult, *types.DebugInfo, error) {
	debug := &types.DebugInfo{RequestID: uuid.NewString(), Sender: sender, Plan: p}
	metrics := observability.Engine()

	res, err := sim.Simulate(ctx, sender, p)
	if err != nil {
		simLogger.Warn().Err(err).Str("requestId", debug.RequestID).Msg("Simulation request failed")
		return nil, debug, &SimulationError{Err: err, Debug: debug}
	}
	debug.Result = res

	if res.Error != "" {
		metrics.ObserveSimulation("contract_error")
		simLogger.Debug().
			Str("requestId", debug.RequestID).
			Str("error", res.Error).
			Int("operations", p.Len()).
			Msg("Plan rejected by ledger")
		return res, debug, &types.ContractError{Message: res.Error, Debug: debug}
	}

	metrics.ObserveSimulation("ok")
	return res, debug, nil
}
