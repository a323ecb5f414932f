/*

This file contains the JSON-RPC transport to the ledger node. Every read the
engine performs (coins, owned objects, market objects, plan simulation) goes
through Client.Call, which rate limits, times and logs the round trip.

*/

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/observability"
	"golang.org/x/time/rate"
)

const (
	rpcTimeout = 20 * time.Second
)

var rpcLogger = logger.GetForComponent("node_rpc")

var (
	ErrRPC          = errors.New("node returned a JSON-RPC error")
	ErrEmptyResult  = errors.New("node returned an empty result")
	ErrHTTPStatus   = errors.New("node returned a non-success HTTP status")
	ErrNoEndpoint   = errors.New("node RPC endpoint is not configured")
	ErrRateLimiting = errors.New("rate limiter wait failed")
)

// --- Shared JSON-RPC Structures ---

// JSONRPCRequest defines the structure of a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// JSONRPCResponse defines the structure of a JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError defines the structure of a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("RPC error: %s (code %d)", e.Message, e.Code)
}

func (e *JSONRPCError) Is(target error) bool { return target == ErrRPC }

// Caller is the transport the engine's collaborators depend on.
type Caller interface {
	Call(ctx context.Context, method string, params any, result any) error
}

// Client is a rate-limited JSON-RPC client for one node endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.EngineMetrics
	nextID     atomic.Int64
}

// NewClient returns a client for endpoint allowing ratePerSecond requests with
// the given burst. A non-positive rate disables limiting.
func NewClient(endpoint string, ratePerSecond float64, burst int) *Client {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: rpcTimeout},
		limiter:    rate.NewLimiter(limit, burst),
		metrics:    observability.Engine(),
	}
}

// Endpoint returns the node URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Call invokes method with params and decodes the result into result.
func (c *Client) Call(ctx context.Context, method string, params any, result any) (err error) {
	if c.endpoint == "" {
		return ErrNoEndpoint
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Join(ErrRateLimiting, err)
	}

	start := time.Now()
	defer func() { c.metrics.ObserveRPC(method, err, time.Since(start)) }()

	jsonRPCReq := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	jsonData, err := json.Marshal(jsonRPCReq)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON-RPC request: %w", err)
	}

	rpcLogger.Debug().
		Str("endpoint", c.endpoint).
		Str("method", method).
		Int64("id", jsonRPCReq.ID).
		Msg("Executing RPC call")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		rpcLogger.Error().Err(err).Str("method", method).Msg("Failed to send HTTP request")
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d %s", ErrHTTPStatus, resp.StatusCode, truncate(respBodyBytes))
	}

	var jsonRPCResp JSONRPCResponse
	if err := json.Unmarshal(respBodyBytes, &jsonRPCResp); err != nil {
		rpcLogger.Error().Err(err).Str("body", truncate(respBodyBytes)).Msg("Failed to unmarshal JSON-RPC response")
		return fmt.Errorf("failed to unmarshal JSON-RPC response: %w", err)
	}

	if jsonRPCResp.Error != nil {
		rpcLogger.Warn().
			Int("code", jsonRPCResp.Error.Code).
			Str("message", jsonRPCResp.Error.Message).
			Str("method", method).
			Msg("RPC error received")
		return jsonRPCResp.Error
	}

	if len(jsonRPCResp.Result) == 0 || string(jsonRPCResp.Result) == "null" {
		return fmt.Errorf("%w: %s", ErrEmptyResult, method)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(jsonRPCResp.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

func truncate(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
