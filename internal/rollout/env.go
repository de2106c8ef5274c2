package rollout

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/minertopia/rollout/internal/chain"
	"github.com/minertopia/rollout/internal/domain"
)

type (
	// RecordStore is the durable name -> address record.
	RecordStore interface {
		Read() (domain.Record, error)
		ReadOrEmpty() (domain.Record, error)
		Write(rec domain.Record) error
	}

	// WiringJournal remembers confirmed setup calls across runs.
	WiringJournal interface {
		Done(id string) (common.Hash, bool)
		Mark(id string, tx common.Hash) error
	}

	// ChainClient submits transactions and blocks until they are confirmed.
	ChainClient interface {
		DeployProxy(ctx context.Context, kind domain.Kind, args []any) (common.Address, error)
		DeployPlain(ctx context.Context, kind domain.Kind, args []any) (common.Address, error)
		Attach(kind domain.Kind, addr common.Address) (chain.Handle, error)
		Send(ctx context.Context, h chain.Handle, method string, value *big.Int, args []any) (common.Hash, error)
		Call(ctx context.Context, h chain.Handle, method string, args []any) ([]any, error)
		UpgradeProxy(ctx context.Context, proxy common.Address, kind domain.Kind) (common.Address, error)
	}

	// Pacer suspends the run between transactions.
	Pacer interface {
		Wait(ctx context.Context) error
	}

	// Env carries everything one run needs. It is built once by the caller and
	// shared by reference with every component of that run.
	Env struct {
		Store   RecordStore
		Journal WiringJournal
		Chain   ChainClient
		Pacer   Pacer
		Logger  *slog.Logger
	}
)
