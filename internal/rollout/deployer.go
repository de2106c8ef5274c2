package rollout

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/minertopia/rollout/internal/domain"
)

// Deployer creates contracts and records their addresses.
type Deployer struct {
	env *Env
}

func NewDeployer(env *Env) *Deployer {
	return &Deployer{env: env}
}

// Deploy runs one deployment step. A name that already has an address is not
// deployed again: the recorded address is returned with skipped set.
//
// The new address is persisted before Deploy returns, so a crash at any later
// point never causes the step to run twice.
func (d *Deployer) Deploy(ctx context.Context, step domain.DeploymentStep) (addr common.Address, skipped bool, err error) {
	log := d.env.Logger.With("name", step.Name).With("kind", step.Kind.String())

	rec, err := d.env.Store.ReadOrEmpty()
	if err != nil {
		return common.Address{}, false, fmt.Errorf("failed to read record: %w", err)
	}

	if existing, ok := rec.Address(step.Name); ok {
		log.With("address", existing.Hex()).Info("already deployed, skipping")
		return existing, true, nil
	}

	args, err := domain.Resolve(rec, step.Args)
	if err != nil {
		return common.Address{}, false, err
	}

	log.With("args", args).Info("deploying")
	if step.Kind.Proxied() {
		addr, err = d.env.Chain.DeployProxy(ctx, step.Kind, args)
	} else {
		addr, err = d.env.Chain.DeployPlain(ctx, step.Kind, args)
	}
	if err != nil {
		return common.Address{}, false, err
	}

	if err := d.env.Store.Write(rec.With(step.Name, addr)); err != nil {
		return common.Address{}, false, fmt.Errorf("deployed at %s but %w", addr.Hex(), err)
	}

	log.With("address", addr.Hex()).Info("deployed")

	return addr, false, nil
}
