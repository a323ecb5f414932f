package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, handle func(req JSONRPCRequest) any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req JSONRPCRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handle(req))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCallDecodesResult(t *testing.T) {
	srv := rpcServer(t, func(req JSONRPCRequest) any {
		assert.Equal(t, "suix_getCoins", req.Method)
		return map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": map[string]any{"value": 42}}
	})

	var out struct {
		Value int `json:"value"`
	}
	c := NewClient(srv.URL, 0, 0)
	require.NoError(t, c.Call(context.Background(), "suix_getCoins", []any{"0x1"}, &out))
	assert.Equal(t, 42, out.Value)
}

func TestCallSurfacesRPCError(t *testing.T) {
	srv := rpcServer(t, func(req JSONRPCRequest) any {
		return map[string]any{"jsonrpc": "2.0", "id": req.ID, "error": map[string]any{"code": -32602, "message": "bad params"}}
	})

	err := NewClient(srv.URL, 0, 0).Call(context.Background(), "sui_getObject", nil, nil)
	require.ErrorIs(t, err, ErrRPC)

	var rpcErr *JSONRPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
}

func TestCallEmptyResultAndStatus(t *testing.T) {
	srv := rpcServer(t, func(req JSONRPCRequest) any {
		return map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": nil}
	})
	err := NewClient(srv.URL, 0, 0).Call(context.Background(), "sui_getObject", nil, nil)
	require.ErrorIs(t, err, ErrEmptyResult)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer down.Close()
	err = NewClient(down.URL, 0, 0).Call(context.Background(), "sui_getObject", nil, nil)
	require.ErrorIs(t, err, ErrHTTPStatus)

	err = NewClient("", 0, 0).Call(context.Background(), "sui_getObject", nil, nil)
	require.ErrorIs(t, err, ErrNoEndpoint)
}

func TestCallHonoursCancellation(t *testing.T) {
	srv := rpcServer(t, func(req JSONRPCRequest) any {
		return map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": 1}
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewClient(srv.URL, 1, 1).Call(ctx, "sui_getObject", nil, nil)
	require.Error(t, err)
}
