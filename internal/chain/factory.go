package chain

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
)

// ERC1967Factory entry points. The factory owns proxy admin rights, so both
// creation and upgrades go through it.
var (
	funcDeploy = w3.MustNewFunc(
		"deploy(address,address)", "address",
	)
	funcDeployAndCall = w3.MustNewFunc(
		"deployAndCall(address,address,bytes)", "address",
	)
	funcUpgrade = w3.MustNewFunc(
		"upgrade(address,address)", "",
	)
	funcAdminOf = w3.MustNewFunc(
		"adminOf(address)", "address",
	)
	eventDeployed = w3.MustNewEvent(
		"Deployed(address indexed,address indexed,address indexed)",
	)
)

// implementationSlot is the ERC-1967 storage slot holding the implementation address.
var implementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")

// proxyAddressFromReceipt finds the proxy announced by factory in receipt.
func proxyAddressFromReceipt(receipt *types.Receipt, factory common.Address) (common.Address, error) {
	for _, log := range receipt.Logs {
		if log.Address != factory {
			continue
		}

		var (
			proxy          common.Address
			implementation common.Address
			admin          common.Address
		)
		if err := eventDeployed.DecodeArgs(log, &proxy, &implementation, &admin); err == nil {
			return proxy, nil
		}
	}
	return common.Address{}, errors.New("Deployed event not found in receipt logs")
}
