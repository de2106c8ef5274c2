package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

type (
	// Name is the logical key a contract is recorded under (bank, token, pool...).
	Name string

	// Record maps logical names to deployed addresses. It is the whole content of the
	// config store and is always replaced as a unit.
	Record map[Name]common.Address

	// DeploymentStep creates one contract. Args may reference earlier steps.
	DeploymentStep struct {
		Name Name
		Kind Kind
		Args []Value
	}

	// UpgradeStep swaps the implementation behind the proxy recorded under Name.
	UpgradeStep struct {
		Name Name
		Kind Kind
	}

	// WireCall is a one-time setup transaction against an already deployed contract.
	// Value is the amount of wei attached to the call, nil for none.
	WireCall struct {
		Name   Name
		Kind   Kind
		Method string
		Args   []Value
		Value  Value
		Checks []Check
	}

	// Check reads Method back from the wired contract and expects Want.
	Check struct {
		Method string
		Want   Value
	}
)

const (
	NameBank      Name = "bank"
	NameToken     Name = "token"
	NameGuard     Name = "guard"
	NameNFTReward Name = "nftreward"
	NameNFT       Name = "nft"
	NamePool      Name = "pool"
	NameVault     Name = "vault"
)

// ID identifies the wiring call in the progress journal, e.g. "pool.setup".
func (w WireCall) ID() string {
	return fmt.Sprintf("%s.%s", w.Name, w.Method)
}

// Address returns the recorded address for name.
func (r Record) Address(name Name) (common.Address, bool) {
	addr, ok := r[name]
	return addr, ok
}

// With returns a copy of the record with name set to addr.
func (r Record) With(name Name, addr common.Address) Record {
	next := make(Record, len(r)+1)
	maps.Copy(next, r)
	next[name] = addr
	return next
}

// Names returns the recorded names in lexical order.
func (r Record) Names() []Name {
	names := make([]Name, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(r))
	for name, addr := range r {
		out[string(name)] = addr.Hex()
	}
	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rec := make(Record, len(raw))
	for name, value := range raw {
		if !common.IsHexAddress(value) {
			return fmt.Errorf("value of %q is not an address: %q", name, value)
		}
		rec[Name(name)] = common.HexToAddress(value)
	}
	*r = rec

	return nil
}
