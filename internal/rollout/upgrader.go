package rollout

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/minertopia/rollout/internal/domain"
)

// Upgrader replaces the implementation behind recorded proxies.
//
// Upgrades are applied one contract at a time. When an upgrade changes the calls
// contracts make to each other, the operator has to upgrade the whole set before
// it is used again; nothing here checks ABI compatibility.
type Upgrader struct {
	env *Env
}

func NewUpgrader(env *Env) *Upgrader {
	return &Upgrader{env: env}
}

// Upgrade swaps the implementation of step.Name to step.Kind and returns the
// proxy address, which is the one already recorded. The record is not written.
func (u *Upgrader) Upgrade(ctx context.Context, step domain.UpgradeStep) (common.Address, error) {
	if !step.Kind.Proxied() {
		return common.Address{}, fmt.Errorf("%s is not deployed behind a proxy", step.Kind)
	}

	rec, err := u.env.Store.Read()
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to read record: %w", err)
	}

	proxy, ok := rec.Address(step.Name)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %q", domain.ErrMissingRecord, step.Name)
	}

	log := u.env.Logger.With("name", step.Name).With("kind", step.Kind.String()).With("proxy", proxy.Hex())
	log.Info("upgrading")

	got, err := u.env.Chain.UpgradeProxy(ctx, proxy, step.Kind)
	if err != nil {
		return common.Address{}, err
	}
	if got != proxy {
		return common.Address{}, fmt.Errorf("upgrade of %q moved the proxy from %s to %s", step.Name, proxy.Hex(), got.Hex())
	}

	log.Info("upgraded")

	return proxy, nil
}
