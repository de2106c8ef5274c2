package rollout

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common"

	"github.com/minertopia/rollout/internal/chain"
	"github.com/minertopia/rollout/internal/domain"
)

type (
	// Wirer issues the one-time setup calls that bind deployed contracts together.
	Wirer struct {
		env    *Env
		force  bool
		verify bool
	}

	WirerOption func(*Wirer)
)

// WithForce re-issues calls the journal already lists as confirmed. Only safe
// when the target contract accepts repeated setup.
func WithForce(force bool) WirerOption {
	return func(w *Wirer) { w.force = force }
}

// WithReadBack runs the call's read-back checks after confirmation.
func WithReadBack(verify bool) WirerOption {
	return func(w *Wirer) { w.verify = verify }
}

func NewWirer(env *Env, opts ...WirerOption) *Wirer {
	w := &Wirer{env: env}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wire sends one setup call. It never writes the record. A call found in the
// journal is skipped unless the Wirer was built WithForce.
func (w *Wirer) Wire(ctx context.Context, call domain.WireCall) (skipped bool, err error) {
	log := w.env.Logger.With("call", call.ID())

	rec, err := w.env.Store.Read()
	if err != nil {
		return false, fmt.Errorf("failed to read record: %w", err)
	}

	target, ok := rec.Address(call.Name)
	if !ok {
		return false, fmt.Errorf("%w: %q", domain.ErrMissingRecord, call.Name)
	}

	if tx, done := w.env.Journal.Done(call.ID()); done {
		if !w.force {
			log.With("tx_hash", tx.Hex()).Warn("already wired in a previous run, skipping")
			return true, nil
		}
		log.With("tx_hash", tx.Hex()).Warn("already wired in a previous run, re-issuing as forced")
	}

	args, err := domain.Resolve(rec, call.Args)
	if err != nil {
		return false, err
	}

	value, err := resolveWei(rec, call.Value)
	if err != nil {
		return false, err
	}

	h, err := w.env.Chain.Attach(call.Kind, target)
	if err != nil {
		return false, fmt.Errorf("failed to attach %s at %s: %w", call.Kind, target.Hex(), err)
	}

	log.With("address", target.Hex()).With("args", args).Info("wiring")
	tx, err := w.env.Chain.Send(ctx, h, call.Method, value, args)
	if err != nil {
		return false, err
	}

	if err := w.env.Journal.Mark(call.ID(), tx); err != nil {
		return false, fmt.Errorf("wired in %s but %w", tx.Hex(), err)
	}

	log.With("tx_hash", tx.Hex()).Info("wired")

	if w.verify {
		if err := w.readBack(ctx, rec, h, call); err != nil {
			return false, err
		}
	}

	return false, nil
}

func (w *Wirer) readBack(ctx context.Context, rec domain.Record, h chain.Handle, call domain.WireCall) error {
	checked := 0
	for _, check := range call.Checks {
		want, err := check.Want.Resolve(rec)
		if err != nil {
			return err
		}

		out, err := w.env.Chain.Call(ctx, h, check.Method, nil)
		if errors.Is(err, chain.ErrUnknownMethod) {
			w.env.Logger.With("call", call.ID()).With("method", check.Method).Warn("contract has no getter, read back skipped")
			continue
		}
		if err != nil {
			return err
		}
		if len(out) != 1 || !sameValue(out[0], want) {
			return fmt.Errorf("%w: %s.%s() returned %v, want %v", domain.ErrReadBackMismatch, call.Name, check.Method, out, want)
		}
		checked++
	}

	if checked > 0 {
		w.env.Logger.With("call", call.ID()).With("checks", checked).Info("wiring read back")
	}

	return nil
}

func resolveWei(rec domain.Record, v domain.Value) (*big.Int, error) {
	if v.IsZero() {
		return nil, nil
	}

	resolved, err := v.Resolve(rec)
	if err != nil {
		return nil, err
	}

	wei, ok := resolved.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("call value must be an amount of wei, got %T", resolved)
	}
	return wei, nil
}

func sameValue(got, want any) bool {
	switch w := want.(type) {
	case common.Address:
		g, ok := got.(common.Address)
		return ok && g == w
	case *big.Int:
		g, ok := got.(*big.Int)
		return ok && g.Cmp(w) == 0
	default:
		return reflect.DeepEqual(got, want)
	}
}
