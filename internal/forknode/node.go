package forknode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/minertopia/rollout/internal/logger"
)

const pollInterval = 500 * time.Millisecond

// ErrNotRunning is returned when the fork container does not exist.
var ErrNotRunning = errors.New("fork node is not running")

type (
	// Config describes the anvil container forking a remote network.
	Config struct {
		Image         string
		ContainerName string
		Port          int
		ForkURL       string
		ForkBlock     int64
		ChainID       int64
		ReadyTimeout  time.Duration
	}

	// Node manages a local anvil fork in docker so FORK mode has something to
	// talk to at 127.0.0.1.
	Node struct {
		cfg    Config
		docker *dockerClient
		logger *slog.Logger
	}
)

func New(cfg Config) (*Node, error) {
	l := logger.Named("fork_node")

	docker, err := newDockerClient(l)
	if err != nil {
		return nil, err
	}

	return &Node{cfg: cfg, docker: docker, logger: l}, nil
}

func (n *Node) Close() error {
	return n.docker.Close()
}

// RPCURL is where the fork answers once it is up.
func (n *Node) RPCURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", n.cfg.Port)
}

// Up starts the fork container unless it already runs, pulling the image when
// it is missing, and waits until the RPC answers.
func (n *Node) Up(ctx context.Context) error {
	log := n.logger.With("container", n.cfg.ContainerName)

	info, found, err := n.docker.inspect(ctx, n.cfg.ContainerName)
	if err != nil {
		return err
	}
	if found && info.State != nil && info.State.Running {
		log.Info("fork node already running")
		return n.waitReady(ctx)
	}
	if found {
		log.Info("removing stopped fork node")
		if err := n.docker.remove(ctx, info.ID); err != nil {
			return err
		}
	}

	exists, err := n.docker.imageExists(ctx, n.cfg.Image)
	if err != nil {
		return fmt.Errorf("failed to check image %s: %w", n.cfg.Image, err)
	}
	if !exists {
		if err := n.docker.pullImage(ctx, n.cfg.Image); err != nil {
			return err
		}
	}

	id, err := n.docker.run(ctx, n.cfg.ContainerName, n.cfg.Image, []string{"anvil"}, anvilArgs(n.cfg), n.cfg.Port)
	if err != nil {
		return err
	}
	log.With("id", id).With("fork_url", n.cfg.ForkURL).Info("fork node started")

	return n.waitReady(ctx)
}

// Down removes the fork container. A node that is not running is not an error.
func (n *Node) Down(ctx context.Context) error {
	info, found, err := n.docker.inspect(ctx, n.cfg.ContainerName)
	if err != nil {
		return err
	}
	if !found {
		n.logger.With("container", n.cfg.ContainerName).Info("fork node not running")
		return nil
	}

	if err := n.docker.remove(ctx, info.ID); err != nil {
		return err
	}

	n.logger.With("container", n.cfg.ContainerName).Info("fork node removed")
	return nil
}

// Logs copies the anvil output to stdout and stderr.
func (n *Node) Logs(ctx context.Context, stdout, stderr io.Writer, follow bool) error {
	info, found, err := n.docker.inspect(ctx, n.cfg.ContainerName)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotRunning, n.cfg.ContainerName)
	}

	return n.docker.logs(ctx, info.ID, stdout, stderr, follow)
}

func (n *Node) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		chainID, err := probe(ctx, n.RPCURL())
		if err == nil {
			n.logger.With("rpc_url", n.RPCURL()).With("chain_id", chainID).Info("fork node ready")
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("fork node at %s not ready: %w", n.RPCURL(), errors.Join(ctx.Err(), err))
		case <-ticker.C:
		}
	}
}

func probe(ctx context.Context, url string) (*big.Int, error) {
	eth, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	defer eth.Close()

	return eth.ChainID(ctx)
}

func anvilArgs(cfg Config) []string {
	args := []string{
		"--host", "0.0.0.0",
		"--port", strconv.Itoa(cfg.Port),
		"--fork-url", cfg.ForkURL,
	}
	if cfg.ForkBlock > 0 {
		args = append(args, "--fork-block-number", strconv.FormatInt(cfg.ForkBlock, 10))
	}
	if cfg.ChainID > 0 {
		args = append(args, "--chain-id", strconv.FormatInt(cfg.ChainID, 10))
	}
	return args
}
