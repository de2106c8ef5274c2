package chain

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/minertopia/rollout/internal/domain"
)

type (
	// Artifact is a compiled contract ready to deploy or attach to.
	Artifact struct {
		ABI      abi.ABI
		RawABI   string
		Bytecode []byte
	}

	// Artifacts indexes compiled contracts by the kind they implement.
	Artifacts map[domain.Kind]Artifact
)

// LoadArtifacts walks a Hardhat artifacts directory and loads every contract
// that backs a known kind. Debug files (*.dbg.json) and unrelated contracts are ignored.
func LoadArtifacts(dir string) (Artifacts, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("artifacts directory not found. Directory: '%s': %w", dir, err)
	}

	loaded := make(Artifacts)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" || strings.HasSuffix(path, ".dbg.json") {
			return nil
		}

		kind, err := domain.ParseKind(strings.TrimSuffix(d.Name(), ".json"))
		if err != nil {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read artifact %s: %w", path, err)
		}

		artifact, err := parseArtifact(data)
		if err != nil {
			return fmt.Errorf("failed to parse artifact %s: %w", path, err)
		}
		loaded[kind] = artifact

		return nil
	})
	if err != nil {
		return nil, err
	}

	return loaded, nil
}

// parseArtifact parses one Hardhat artifact file
func parseArtifact(data []byte) (Artifact, error) {
	var raw struct {
		ABI      json.RawMessage `json:"abi"`
		Bytecode string          `json:"bytecode"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return Artifact{}, err
	}

	parsedABI, err := abi.JSON(strings.NewReader(string(raw.ABI)))
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to parse ABI: %w", err)
	}

	return Artifact{
		ABI:      parsedABI,
		RawABI:   string(raw.ABI),
		Bytecode: common.FromHex(raw.Bytecode),
	}, nil
}

// Get returns the artifact of kind.
func (a Artifacts) Get(kind domain.Kind) (Artifact, error) {
	artifact, ok := a[kind]
	if !ok {
		return Artifact{}, fmt.Errorf("no compiled artifact for %s", kind)
	}
	return artifact, nil
}

// Require checks that every kind has an artifact.
func (a Artifacts) Require(kinds ...domain.Kind) error {
	var missing []string
	for _, kind := range kinds {
		if _, ok := a[kind]; !ok {
			missing = append(missing, kind.String())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing compiled artifacts: %s", strings.Join(missing, ", "))
	}
	return nil
}
