/*
This file contains the shapes of the node's object and coin responses and the
field parsing shared by the coin, position and market readers.

Move integers arrive either as JSON strings ("1000") or plain numbers, and
nested structs are wrapped as {"type": ..., "fields": {...}}.
*/

package datafetcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/rpc"
)

var fetchLogger = logger.GetForComponent("node_fetcher")

var (
	ErrInvalidObject   = errors.New("invalid object data")
	ErrMissingField    = errors.New("missing required object field")
	ErrObjectNotFound  = errors.New("object not found")
	ErrInvalidResponse = errors.New("invalid node response")
)

const pageLimit = 50

// Fetcher reads coins, positions and market reserves from the node.
type Fetcher struct {
	caller rpc.Caller
}

// NewFetcher returns a Fetcher over caller.
func NewFetcher(caller rpc.Caller) *Fetcher {
	return &Fetcher{caller: caller}
}

type moveStruct struct {
	Type   string                     `json:"type"`
	Fields map[string]json.RawMessage `json:"fields"`
}

type objectContent struct {
	DataType string                     `json:"dataType"`
	Type     string                     `json:"type"`
	Fields   map[string]json.RawMessage `json:"fields"`
}

type objectData struct {
	ObjectID string         `json:"objectId"`
	Version  string         `json:"version"`
	Type     string         `json:"type"`
	Owner    json.RawMessage `json:"owner,omitempty"`
	Content  *objectContent `json:"content,omitempty"`
}

type objectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id,omitempty"`
}

type objectResponse struct {
	Data  *objectData  `json:"data,omitempty"`
	Error *objectError `json:"error,omitempty"`
}

type objectOptions struct {
	ShowType    bool `json:"showType"`
	ShowContent bool `json:"showContent"`
	ShowOwner   bool `json:"showOwner"`
}

var contentOptions = objectOptions{ShowType: true, ShowContent: true}

// intField parses a Move integer field.
func intField(fields map[string]json.RawMessage, name string) (sdkmath.Int, error) {
	raw, ok := fields[name]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return sdkmath.Int{}, fmt.Errorf("%w: %s: %w", ErrInvalidObject, name, err)
		}
	}
	v, ok := sdkmath.NewIntFromString(text)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %s is not an integer: %q", ErrInvalidObject, name, text)
	}
	return v, nil
}

// intFieldOrZero parses an optional Move integer field.
func intFieldOrZero(fields map[string]json.RawMessage, name string) (sdkmath.Int, error) {
	if _, ok := fields[name]; !ok {
		return sdkmath.ZeroInt(), nil
	}
	return intField(fields, name)
}

// int64Field parses a Move u64 that must fit an int64, such as a timestamp.
func int64Field(fields map[string]json.RawMessage, name string) (int64, error) {
	v, err := intField(fields, name)
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidObject, name)
	}
	return v.Int64(), nil
}

// stringField parses a string field. Object ids wrapped as {"id": "0x.."} are unwrapped.
func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var wrapped struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.ID != "" {
		return wrapped.ID, nil
	}
	var nested moveStruct
	if err := json.Unmarshal(raw, &nested); err == nil {
		// TypeName { name: "..." } as emitted for type_name::get
		if inner, ok := nested.Fields["name"]; ok {
			if err := json.Unmarshal(inner, &s); err == nil {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s is not a string", ErrInvalidObject, name)
}

func boolField(fields map[string]json.RawMessage, name string) (bool, error) {
	raw, ok := fields[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseBool(s); err == nil {
			return parsed, nil
		}
	}
	return false, fmt.Errorf("%w: %s is not a bool", ErrInvalidObject, name)
}

// structList parses a vector of Move structs, returning their fields.
func structList(fields map[string]json.RawMessage, name string) ([]map[string]json.RawMessage, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, nil
	}
	var items []moveStruct
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s is not a struct vector: %w", ErrInvalidObject, name, err)
	}
	out := make([]map[string]json.RawMessage, 0, len(items))
	for _, item := range items {
		out = append(out, item.Fields)
	}
	return out, nil
}
