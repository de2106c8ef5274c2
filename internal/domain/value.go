package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

type (
	valueKind uint8

	// Value is a call argument: either a literal or a reference to the address
	// recorded under another name. The zero Value means "no value".
	Value struct {
		kind valueKind
		ref  Name
		lit  any
	}
)

const (
	valueNone valueKind = iota
	valueLiteral
	valueRef
)

// Lit wraps a literal argument passed to the ABI encoder as is.
func Lit(v any) Value {
	return Value{kind: valueLiteral, lit: v}
}

// Ref refers to the address recorded under name.
func Ref(name Name) Value {
	return Value{kind: valueRef, ref: name}
}

// IsZero reports whether v carries nothing.
func (v Value) IsZero() bool {
	return v.kind == valueNone
}

// RefName returns the referenced name, if v is a reference.
func (v Value) RefName() (Name, bool) {
	return v.ref, v.kind == valueRef
}

// Resolve returns the concrete argument, looking references up in rec.
func (v Value) Resolve(rec Record) (any, error) {
	switch v.kind {
	case valueLiteral:
		return v.lit, nil
	case valueRef:
		addr, ok := rec.Address(v.ref)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not recorded", ErrUnresolvedDependency, v.ref)
		}
		return addr, nil
	default:
		return nil, nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case valueLiteral:
		return fmt.Sprint(v.lit)
	case valueRef:
		return "${" + string(v.ref) + "}"
	default:
		return "<none>"
	}
}

// Resolve resolves every value in order. The first unresolved reference aborts.
func Resolve(rec Record, values []Value) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		resolved, err := v.Resolve(rec)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = resolved
	}
	return out, nil
}

// Refs lists the names referenced by values.
func Refs(values ...Value) []Name {
	var names []Name
	for _, v := range values {
		if name, ok := v.RefName(); ok {
			names = append(names, name)
		}
	}
	return names
}

// Ether converts a decimal ether amount ("0.0001") into wei.
func Ether(amount string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(amount))
	if !ok {
		return nil, fmt.Errorf("invalid ether amount %q", amount)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("negative ether amount %q", amount)
	}

	r.Mul(r, new(big.Rat).SetInt(big.NewInt(params.Ether)))
	if !r.IsInt() {
		return nil, fmt.Errorf("ether amount %q is finer than one wei", amount)
	}

	return new(big.Int).Set(r.Num()), nil
}
