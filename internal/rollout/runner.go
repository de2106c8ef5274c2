package rollout

import (
	"context"
	"fmt"

	"github.com/minertopia/rollout/internal/domain"
	"github.com/minertopia/rollout/internal/plan"
)

// Runner executes step lists strictly in order and halts on the first error.
// Whatever was persisted before the failure stays persisted; running the same
// lists again resumes from the first incomplete deployment.
type Runner struct {
	env      *Env
	deployer *Deployer
	wirer    *Wirer
	upgrader *Upgrader

	// owed is set once a transaction was confirmed and the pacing delay has not
	// been observed yet.
	owed bool
}

func NewRunner(env *Env, opts ...WirerOption) *Runner {
	return &Runner{
		env:      env,
		deployer: NewDeployer(env),
		wirer:    NewWirer(env, opts...),
		upgrader: NewUpgrader(env),
	}
}

// Deploy runs every deployment step and returns the resulting record.
func (r *Runner) Deploy(ctx context.Context, steps []domain.DeploymentStep) (domain.Record, error) {
	r.env.Logger.With("steps", len(steps)).Info("deployment started")

	for _, step := range steps {
		if err := r.pace(ctx); err != nil {
			return nil, err
		}

		_, skipped, err := r.deployer.Deploy(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("failed to deploy %s: %w", step.Name, err)
		}
		r.owed = !skipped
	}

	rec, err := r.env.Store.ReadOrEmpty()
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	r.env.Logger.With("contracts", len(rec)).Info("deployment finished")

	return rec, nil
}

// Wire issues every setup call.
func (r *Runner) Wire(ctx context.Context, calls []domain.WireCall) error {
	r.env.Logger.With("calls", len(calls)).Info("wiring started")

	for _, call := range calls {
		if err := r.pace(ctx); err != nil {
			return err
		}

		skipped, err := r.wirer.Wire(ctx, call)
		if err != nil {
			return fmt.Errorf("failed to wire %s: %w", call.ID(), err)
		}
		r.owed = !skipped
	}

	r.env.Logger.Info("wiring finished")

	return nil
}

// Upgrade upgrades every listed proxy in place.
func (r *Runner) Upgrade(ctx context.Context, steps []domain.UpgradeStep) error {
	r.env.Logger.With("steps", len(steps)).Info("upgrade started")

	for _, step := range steps {
		if err := r.pace(ctx); err != nil {
			return err
		}

		if _, err := r.upgrader.Upgrade(ctx, step); err != nil {
			return fmt.Errorf("failed to upgrade %s: %w", step.Name, err)
		}
		r.owed = true
	}

	r.env.Logger.Info("upgrade finished")

	return nil
}

// All deploys and then wires. Wiring never starts if any deployment failed.
func (r *Runner) All(ctx context.Context, p plan.Plan) (domain.Record, error) {
	rec, err := r.Deploy(ctx, p.Deploy)
	if err != nil {
		return nil, err
	}

	if err := r.Wire(ctx, p.Wire); err != nil {
		return nil, err
	}

	return rec, nil
}

func (r *Runner) pace(ctx context.Context) error {
	if !r.owed {
		return nil
	}

	if err := r.env.Pacer.Wait(ctx); err != nil {
		return fmt.Errorf("interrupted while pacing: %w", err)
	}
	r.owed = false

	return nil
}
