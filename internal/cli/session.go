package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/minertopia/rollout/configs"
	"github.com/minertopia/rollout/internal/chain"
	"github.com/minertopia/rollout/internal/logger"
	"github.com/minertopia/rollout/internal/pacing"
	"github.com/minertopia/rollout/internal/plan"
	"github.com/minertopia/rollout/internal/rollout"
	"github.com/minertopia/rollout/internal/store"
)

// session is everything one command invocation opened. It is built once and
// closed once; the Env inside is shared by every component of the run.
type session struct {
	plan    plan.Plan
	store   *store.Store
	journal *store.Journal
	chain   *chain.Client
	env     *rollout.Env
	logger  *slog.Logger
}

// openLocal opens the record and journal without touching the network.
func openLocal(cfg configs.Config) (*session, error) {
	if err := cfg.Rollout.Validate(); err != nil {
		return nil, err
	}

	p, err := plan.Build(cfg.Plan)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Rollout.StorePath)
	if err != nil {
		return nil, err
	}

	journal, err := store.LoadJournal(store.JournalPath(cfg.Rollout.StorePath))
	if err != nil {
		return nil, errors.Join(err, st.Close())
	}

	return &session{
		plan:    p,
		store:   st,
		journal: journal,
		logger:  logger.Named("rollout"),
	}, nil
}

// open additionally connects to the selected network and prepares the run Env.
func open(ctx context.Context, cfg configs.Config) (*session, error) {
	s, err := openLocal(cfg)
	if err != nil {
		return nil, err
	}

	if err := s.connect(ctx, cfg); err != nil {
		return nil, errors.Join(err, s.Close())
	}

	return s, nil
}

func (s *session) connect(ctx context.Context, cfg configs.Config) error {
	mode, err := pacing.ParseMode(cfg.Rollout.Mode)
	if err != nil {
		return err
	}

	network, err := cfg.Selected()
	if err != nil {
		return err
	}
	if err := network.Validate(cfg.Rollout.Network); err != nil {
		return err
	}

	artifacts, err := chain.LoadArtifacts(cfg.Rollout.ArtifactsDir)
	if err != nil {
		return err
	}
	if err := artifacts.Require(s.plan.Kinds()...); err != nil {
		return err
	}

	var admin common.Address
	if network.Admin != "" {
		admin = common.HexToAddress(network.Admin)
	}

	client, err := chain.Dial(ctx, network.RPCURL, chain.Config{
		ChainID:        network.ChainIDBig(),
		PrivateKey:     network.PrivateKey(),
		Factory:        common.HexToAddress(network.Factory),
		Admin:          admin,
		GasLimit:       network.GasLimit,
		ConfirmTimeout: network.ConfirmTimeout,
	}, artifacts)
	if err != nil {
		return fmt.Errorf("failed to connect to network %s: %w", cfg.Rollout.Network, err)
	}
	s.chain = client

	scheduler := pacing.NewScheduler(mode, cfg.Rollout.Intervals())

	s.logger.
		With("network", cfg.Rollout.Network).
		With("mode", mode).
		With("wait", scheduler.Interval().String()).
		With("store", s.store.Path()).
		Info("rollout session ready")

	s.env = &rollout.Env{
		Store:   s.store,
		Journal: s.journal,
		Chain:   client,
		Pacer:   scheduler,
		Logger:  s.logger,
	}

	return nil
}

func (s *session) runner(cfg configs.Config) *rollout.Runner {
	return rollout.NewRunner(s.env,
		rollout.WithForce(cfg.Rollout.ForceRewire),
		rollout.WithReadBack(cfg.Rollout.VerifyWiring),
	)
}

func (s *session) Close() error {
	if s.chain != nil {
		s.chain.Close()
	}
	return s.store.Close()
}
