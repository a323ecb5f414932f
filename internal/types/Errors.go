/*

This file contains the error taxonomy shared by every planning, simulation and
pricing package. Sentinels are matched with errors.Is; the structured types
carry the details a caller needs to react (top-up amount, missing output,
ledger message and debug bundle, missing configuration field).

*/

package types

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInsufficientPosition = errors.New("insufficient position balance")
	ErrBelowMinimumDeposit  = errors.New("amount is below the protocol minimum deposit")
	ErrUnsupportedProtocol  = errors.New("unsupported protocol")
	ErrMissingOutput        = errors.New("expected simulation output is missing")
	ErrContractError        = errors.New("ledger rejected the plan")
	ErrConfiguration        = errors.New("pool configuration error")
	ErrMarketCapExceeded    = errors.New("deposit exceeds the market capacity")
)

// BelowMinimumDepositError reports how far a deposit is from a protocol minimum.
type BelowMinimumDepositError struct {
	Protocol ProtocolTag
	Minimum  sdkmath.Int
	Amount   sdkmath.Int
}

// TopUp is the amount that must be added to reach the minimum.
func (e *BelowMinimumDepositError) TopUp() sdkmath.Int {
	return e.Minimum.Sub(e.Amount)
}

func (e *BelowMinimumDepositError) Error() string {
	return fmt.Sprintf("%s: %s requires at least %s, got %s (top up %s)",
		ErrBelowMinimumDeposit, e.Protocol, e.Minimum, e.Amount, e.TopUp())
}

func (e *BelowMinimumDepositError) Is(target error) bool { return target == ErrBelowMinimumDeposit }

// MarketCapExceededError reports a deposit that would lift the SY reserve
// above the market's capacity ceiling.
type MarketCapExceededError struct {
	Cap       sdkmath.Int
	TotalSy   sdkmath.Int
	Requested sdkmath.Int // SY units
}

// Available is the SY the market can still take.
func (e *MarketCapExceededError) Available() sdkmath.Int {
	if e.TotalSy.GTE(e.Cap) {
		return sdkmath.ZeroInt()
	}
	return e.Cap.Sub(e.TotalSy)
}

func (e *MarketCapExceededError) Error() string {
	return fmt.Sprintf("%s: requested %s SY, %s available under cap %s",
		ErrMarketCapExceeded, e.Requested, e.Available(), e.Cap)
}

func (e *MarketCapExceededError) Is(target error) bool { return target == ErrMarketCapExceeded }

// MissingOutputError names the simulation output that was expected but absent.
type MissingOutputError struct {
	Expected string
	Debug    *DebugInfo
}

func (e *MissingOutputError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingOutput, e.Expected)
}

func (e *MissingOutputError) Is(target error) bool { return target == ErrMissingOutput }

// ContractError carries the ledger-reported failure together with the plan
// and simulation that produced it.
type ContractError struct {
	Message string
	Debug   *DebugInfo
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s", ErrContractError, e.Message)
}

func (e *ContractError) Is(target error) bool { return target == ErrContractError }

// ConfigurationError names a required pool-config field that is missing or invalid.
type ConfigurationError struct {
	Pool   string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is required"
	}
	return fmt.Sprintf("%s: pool %q field %q %s", ErrConfiguration, e.Pool, e.Field, reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// MissingField is shorthand for a ConfigurationError on an absent field.
func MissingField(pool, field string) error {
	return &ConfigurationError{Pool: pool, Field: field}
}
