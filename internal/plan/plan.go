package plan

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/minertopia/rollout/internal/domain"
)

type (
	// Plan is the static program of a rollout: what to deploy, how to wire it and
	// what to upgrade, each in execution order.
	Plan struct {
		Deploy  []domain.DeploymentStep
		Wire    []domain.WireCall
		Upgrade []domain.UpgradeStep
	}

	// Params are the literal arguments of the plan. Amounts are decimal ether.
	Params struct {
		TokenName   string `mapstructure:"token-name"`
		TokenSymbol string `mapstructure:"token-symbol"`
		NFTName     string `mapstructure:"nft-name"`
		NFTSymbol   string `mapstructure:"nft-symbol"`

		BankCoin  string `mapstructure:"bank-coin"`
		BankToken string `mapstructure:"bank-token"`

		NFTPrice     string `mapstructure:"nft-price"`
		NFTMaxSupply int64  `mapstructure:"nft-max-supply"`

		// VaultPeriod is in seconds.
		VaultPeriod int64 `mapstructure:"vault-period"`
	}
)

func DefaultParams() Params {
	return Params{
		TokenName:    "Minertopia Token",
		TokenSymbol:  "MTK",
		NFTName:      "Minertopia Citizen",
		NFTSymbol:    "MINERTOPIA",
		BankCoin:     "0.0001",
		BankToken:    "10000",
		NFTPrice:     "0.0001",
		NFTMaxSupply: 3333,
		VaultPeriod:  86400,
	}
}

// Build expands params into the Minertopia rollout plan.
func Build(p Params) (Plan, error) {
	bankCoin, err := domain.Ether(p.BankCoin)
	if err != nil {
		return Plan{}, fmt.Errorf("plan.bank-coin: %w", err)
	}
	bankToken, err := domain.Ether(p.BankToken)
	if err != nil {
		return Plan{}, fmt.Errorf("plan.bank-token: %w", err)
	}
	nftPrice, err := domain.Ether(p.NFTPrice)
	if err != nil {
		return Plan{}, fmt.Errorf("plan.nft-price: %w", err)
	}
	if p.NFTMaxSupply <= 0 {
		return Plan{}, errors.New("plan.nft-max-supply must be positive")
	}
	if p.VaultPeriod <= 0 {
		return Plan{}, errors.New("plan.vault-period must be positive")
	}

	var (
		ref       = domain.Ref
		maxSupply = big.NewInt(p.NFTMaxSupply)
		period    = big.NewInt(p.VaultPeriod)
	)

	pl := Plan{
		Deploy: []domain.DeploymentStep{
			{Name: domain.NameBank, Kind: domain.KindBankV0},
			{Name: domain.NameToken, Kind: domain.KindToken, Args: []domain.Value{
				ref(domain.NameBank), domain.Lit(p.TokenName), domain.Lit(p.TokenSymbol),
			}},
			{Name: domain.NameGuard, Kind: domain.KindGuardV0},
			{Name: domain.NameNFTReward, Kind: domain.KindNFTRewardV0},
			{Name: domain.NameNFT, Kind: domain.KindNFTV0, Args: []domain.Value{
				domain.Lit(p.NFTName), domain.Lit(p.NFTSymbol),
			}},
			{Name: domain.NamePool, Kind: domain.KindPoolV0},
			{Name: domain.NameVault, Kind: domain.KindVaultV0},
		},
		Wire: []domain.WireCall{
			{
				Name: domain.NameBank, Kind: domain.KindBankV1, Method: "setup",
				Args:  []domain.Value{domain.Lit(bankToken), ref(domain.NameToken), ref(domain.NamePool)},
				Value: domain.Lit(bankCoin),
				Checks: []domain.Check{
					{Method: "token", Want: ref(domain.NameToken)},
					{Method: "pool", Want: ref(domain.NamePool)},
				},
			},
			{
				Name: domain.NameNFTReward, Kind: domain.KindNFTRewardV1, Method: "setup",
				Args: []domain.Value{ref(domain.NameNFT), ref(domain.NameToken), ref(domain.NamePool)},
				Checks: []domain.Check{
					{Method: "nft", Want: ref(domain.NameNFT)},
					{Method: "token", Want: ref(domain.NameToken)},
					{Method: "pool", Want: ref(domain.NamePool)},
				},
			},
			{
				Name: domain.NameNFT, Kind: domain.KindNFTV1, Method: "setup",
				Args: []domain.Value{ref(domain.NamePool), ref(domain.NameNFTReward), domain.Lit(nftPrice), domain.Lit(maxSupply)},
				Checks: []domain.Check{
					{Method: "pool", Want: ref(domain.NamePool)},
					{Method: "price", Want: domain.Lit(nftPrice)},
					{Method: "maxSupply", Want: domain.Lit(maxSupply)},
				},
			},
			{
				Name: domain.NamePool, Kind: domain.KindPoolV1, Method: "setup",
				Args: []domain.Value{ref(domain.NameToken), ref(domain.NameBank), ref(domain.NameNFTReward), ref(domain.NameVault)},
				Checks: []domain.Check{
					{Method: "token", Want: ref(domain.NameToken)},
					{Method: "bank", Want: ref(domain.NameBank)},
					{Method: "vault", Want: ref(domain.NameVault)},
				},
			},
			{
				Name: domain.NameVault, Kind: domain.KindVaultV1, Method: "setup",
				Args: []domain.Value{ref(domain.NameToken), ref(domain.NameToken), ref(domain.NamePool), domain.Lit(period), domain.Lit(period)},
				Checks: []domain.Check{
					{Method: "pool", Want: ref(domain.NamePool)},
				},
			},
		},
		Upgrade: []domain.UpgradeStep{
			{Name: domain.NameBank, Kind: domain.KindBankV1},
			{Name: domain.NameNFTReward, Kind: domain.KindNFTRewardV1},
			{Name: domain.NameNFT, Kind: domain.KindNFTV1},
			{Name: domain.NamePool, Kind: domain.KindPoolV1},
			{Name: domain.NameVault, Kind: domain.KindVaultV1},
		},
	}

	if err := pl.Validate(); err != nil {
		return Plan{}, err
	}

	return pl, nil
}

// Validate checks the ordering the operator encoded in the lists: a deployment
// step may only reference names deployed before it, wiring and upgrades may only
// target deployed names, and upgrades only apply to proxied kinds.
func (p Plan) Validate() error {
	var (
		errs     []error
		deployed = make(map[domain.Name]domain.Kind, len(p.Deploy))
	)

	for i, step := range p.Deploy {
		if step.Kind == domain.KindUnknown {
			errs = append(errs, fmt.Errorf("deploy[%d] %q: unknown kind", i, step.Name))
		}
		if _, dup := deployed[step.Name]; dup {
			errs = append(errs, fmt.Errorf("deploy[%d] %q: deployed twice", i, step.Name))
		}
		for _, ref := range domain.Refs(step.Args...) {
			if _, ok := deployed[ref]; !ok {
				errs = append(errs, fmt.Errorf("deploy[%d] %q: references %q before it is deployed", i, step.Name, ref))
			}
		}
		deployed[step.Name] = step.Kind
	}

	for i, call := range p.Wire {
		if _, ok := deployed[call.Name]; !ok {
			errs = append(errs, fmt.Errorf("wire[%d] %s: target is never deployed", i, call.ID()))
		}
		refs := append(domain.Refs(call.Args...), domain.Refs(call.Value)...)
		for _, check := range call.Checks {
			refs = append(refs, domain.Refs(check.Want)...)
		}
		for _, ref := range refs {
			if _, ok := deployed[ref]; !ok {
				errs = append(errs, fmt.Errorf("wire[%d] %s: references %q which is never deployed", i, call.ID(), ref))
			}
		}
	}

	for i, step := range p.Upgrade {
		kind, ok := deployed[step.Name]
		if !ok {
			errs = append(errs, fmt.Errorf("upgrade[%d] %q: target is never deployed", i, step.Name))
			continue
		}
		if !kind.Proxied() || !step.Kind.Proxied() {
			errs = append(errs, fmt.Errorf("upgrade[%d] %q: %s -> %s is not a proxy upgrade", i, step.Name, kind, step.Kind))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("plan validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// Kinds lists every contract kind the plan touches, in first-use order.
func (p Plan) Kinds() []domain.Kind {
	var (
		out  []domain.Kind
		seen = make(map[domain.Kind]bool)
	)
	add := func(k domain.Kind) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}

	for _, step := range p.Deploy {
		add(step.Kind)
	}
	for _, call := range p.Wire {
		add(call.Kind)
	}
	for _, step := range p.Upgrade {
		add(step.Kind)
	}

	return out
}
