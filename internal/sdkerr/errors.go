// Package sdkerr defines the error kinds surfaced by the liquidity pipeline.
//
// Every error carries the operation that failed and a human readable cause.
// Callers branch on the kind with errors.Is against the Err* sentinels.
package sdkerr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline error
type Kind int

const (
	KindInputValidation Kind = iota + 1
	KindPoolType
	KindUnsupportedChain
	KindProtocolVersion
	KindQuery
	KindSigning
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindInputValidation:
		return "Input Validation"
	case KindPoolType:
		return "Pool Type"
	case KindUnsupportedChain:
		return "Unsupported Chain"
	case KindProtocolVersion:
		return "Protocol Version"
	case KindQuery:
		return "Query"
	case KindSigning:
		return "Signing"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is. A PoolType error also matches ErrInputValidation.
var (
	ErrInputValidation  = errors.New("input validation error")
	ErrPoolType         = errors.New("pool type error")
	ErrUnsupportedChain = errors.New("unsupported chain")
	ErrProtocolVersion  = errors.New("protocol version error")
	ErrQuery            = errors.New("query error")
	ErrSigning          = errors.New("signing error")
)

// Error is a classified pipeline error
type Error struct {
	Kind      Kind
	Operation string // e.g. "Create Pool", "Add Liquidity Unbalanced"
	Cause     string
	Detail    string // optional context, e.g. the wrapped collaborator message
	Err       error  // underlying collaborator error, if any
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Kind, e.Operation, e.Cause)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInputValidation:
		return e.Kind == KindInputValidation || e.Kind == KindPoolType
	case ErrPoolType:
		return e.Kind == KindPoolType
	case ErrUnsupportedChain:
		return e.Kind == KindUnsupportedChain
	case ErrProtocolVersion:
		return e.Kind == KindProtocolVersion
	case ErrQuery:
		return e.Kind == KindQuery
	case ErrSigning:
		return e.Kind == KindSigning
	}
	return false
}

// InputValidation reports a malformed request
func InputValidation(operation, cause string, detail ...string) error {
	e := &Error{Kind: KindInputValidation, Operation: operation, Cause: cause}
	if len(detail) > 0 {
		e.Detail = detail[0]
	}
	return e
}

// PoolType reports an operation the pool type does not allow. alternative
// names the operation the caller should use instead.
func PoolType(operation, poolType, alternative string) error {
	return &Error{
		Kind:      KindPoolType,
		Operation: operation,
		Cause:     fmt.Sprintf("%s not supported for pool type %s", operation, poolType),
		Detail:    alternative,
	}
}

// UnsupportedChain reports a chain id outside the recognized set
func UnsupportedChain(chainID uint64) error {
	return &Error{
		Kind:      KindUnsupportedChain,
		Operation: "Input Validation",
		Cause:     fmt.Sprintf("Unsupported chainId: %d", chainID),
	}
}

// ProtocolVersion reports an operation gated to a specific protocol version
func ProtocolVersion(operation string, version int, cause string) error {
	return &Error{
		Kind:      KindProtocolVersion,
		Operation: operation,
		Cause:     cause,
		Detail:    fmt.Sprintf("got protocol version %d", version),
	}
}

// Query wraps a node or simulation failure
func Query(operation string, err error) error {
	return &Error{Kind: KindQuery, Operation: operation, Cause: "simulation failed", Err: err}
}

// Signing wraps a signer failure
func Signing(operation string, err error) error {
	return &Error{Kind: KindSigning, Operation: operation, Cause: "signature request failed", Err: err}
}
