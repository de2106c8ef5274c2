package configs

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/minertopia/rollout/internal/logger"
	"github.com/minertopia/rollout/internal/pacing"
	"github.com/minertopia/rollout/internal/plan"
)

var Values Config

type (
	NetworkName string

	Config struct {
		Rollout  Rollout                 `mapstructure:"rollout"`
		Networks map[NetworkName]Network `mapstructure:"networks"`
		Plan     plan.Params             `mapstructure:"plan"`
		Fork     Fork                    `mapstructure:"fork"`
	}

	Rollout struct {
		Mode         string        `mapstructure:"mode"`
		Network      NetworkName   `mapstructure:"network"`
		StorePath    string        `mapstructure:"store-path"`
		ArtifactsDir string        `mapstructure:"artifacts-dir"`
		LogLevel     string        `mapstructure:"log-level"`
		ForkDelay    time.Duration `mapstructure:"fork-delay"`
		LiveDelay    time.Duration `mapstructure:"live-delay"`
		VerifyWiring bool          `mapstructure:"verify-wiring"`
		ForceRewire  bool          `mapstructure:"force-rewire"`
	}

	Network struct {
		ChainID int64  `mapstructure:"chain-id"`
		RPCURL  string `mapstructure:"rpc-url"`

		// PrivateKeyEnv names the environment variable holding the deployer key.
		PrivateKeyEnv  string        `mapstructure:"private-key-env"`
		Factory        string        `mapstructure:"factory"`
		Admin          string        `mapstructure:"admin"`
		GasLimit       uint64        `mapstructure:"gas-limit"`
		ConfirmTimeout time.Duration `mapstructure:"confirm-timeout"`
	}

	Fork struct {
		Image         string        `mapstructure:"image"`
		ContainerName string        `mapstructure:"container-name"`
		Port          int           `mapstructure:"port"`
		ForkURL       string        `mapstructure:"fork-url"`
		ForkBlock     int64         `mapstructure:"fork-block"`
		ChainID       int64         `mapstructure:"chain-id"`
		ReadyTimeout  time.Duration `mapstructure:"ready-timeout"`
	}
)

func (c *Rollout) Validate() error {
	var errs []error

	if _, err := pacing.ParseMode(c.Mode); err != nil {
		errs = append(errs, fmt.Errorf("rollout.mode: %w", err))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("rollout.log-level: %w", err))
	}
	if c.Network == "" {
		errs = append(errs, errors.New("rollout.network is required"))
	}
	if c.StorePath == "" {
		errs = append(errs, errors.New("rollout.store-path is required"))
	}
	if c.ArtifactsDir == "" {
		errs = append(errs, errors.New("rollout.artifacts-dir is required"))
	}
	if err := c.Intervals().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("rollout.fork-delay/live-delay: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("rollout configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// Intervals are the pacing delays of both modes.
func (c *Rollout) Intervals() pacing.Intervals {
	return pacing.Intervals{Fork: c.ForkDelay, Live: c.LiveDelay}
}

// Selected returns the network profile chosen by rollout.network.
func (c *Config) Selected() (Network, error) {
	network, ok := c.Networks[c.Rollout.Network]
	if !ok {
		return Network{}, fmt.Errorf("networks.%s is not configured", c.Rollout.Network)
	}
	return network, nil
}

// Validate checks the network profile and that its private key is present in
// the environment.
func (c *Network) Validate(name NetworkName) error {
	var errs []error

	if c.RPCURL == "" {
		errs = append(errs, fmt.Errorf("networks.%s.rpc-url is required", name))
	}
	if c.PrivateKeyEnv == "" {
		errs = append(errs, fmt.Errorf("networks.%s.private-key-env is required", name))
	} else if c.PrivateKey() == "" {
		errs = append(errs, fmt.Errorf("environment variable %s (networks.%s.private-key-env) is not set", c.PrivateKeyEnv, name))
	}
	if !common.IsHexAddress(c.Factory) {
		errs = append(errs, fmt.Errorf("networks.%s.factory must be an address, got %q", name, c.Factory))
	}
	if c.Admin != "" && !common.IsHexAddress(c.Admin) {
		errs = append(errs, fmt.Errorf("networks.%s.admin must be an address, got %q", name, c.Admin))
	}
	if c.ChainID < 0 {
		errs = append(errs, fmt.Errorf("networks.%s.chain-id must not be negative", name))
	}

	if len(errs) > 0 {
		return fmt.Errorf("network configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// PrivateKey reads the deployer key from the environment.
func (c *Network) PrivateKey() string {
	return strings.TrimSpace(os.Getenv(c.PrivateKeyEnv))
}

// ChainIDBig returns the expected chain id, nil when unset.
func (c *Network) ChainIDBig() *big.Int {
	if c.ChainID == 0 {
		return nil
	}
	return big.NewInt(c.ChainID)
}

func (c *Fork) Validate() error {
	var errs []error

	if c.Image == "" {
		errs = append(errs, errors.New("fork.image is required"))
	}
	if c.ContainerName == "" {
		errs = append(errs, errors.New("fork.container-name is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("fork.port must be a valid port, got %d", c.Port))
	}
	if c.ForkURL == "" {
		errs = append(errs, errors.New("fork.fork-url is required"))
	}
	if c.ForkBlock < 0 {
		errs = append(errs, errors.New("fork.fork-block must not be negative"))
	}
	if c.ReadyTimeout <= 0 {
		errs = append(errs, errors.New("fork.ready-timeout must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("fork configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}
