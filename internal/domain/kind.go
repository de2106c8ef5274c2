package domain

import "fmt"

// Kind enumerates the contracts the rollout knows how to deploy, attach to and upgrade.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindBankV0
	KindBankV1
	KindToken
	KindGuardV0
	KindGuardV1
	KindNFTRewardV0
	KindNFTRewardV1
	KindNFTV0
	KindNFTV1
	KindPoolV0
	KindPoolV1
	KindVaultV0
	KindVaultV1
)

var kindArtifacts = map[Kind]string{
	KindBankV0:      "BankV0",
	KindBankV1:      "BankV1",
	KindToken:       "Token",
	KindGuardV0:     "GuardV0",
	KindGuardV1:     "GuardV1",
	KindNFTRewardV0: "NFTRewardV0",
	KindNFTRewardV1: "NFTRewardV1",
	KindNFTV0:       "NFTV0",
	KindNFTV1:       "NFTV1",
	KindPoolV0:      "PoolV0",
	KindPoolV1:      "PoolV1",
	KindVaultV0:     "VaultV0",
	KindVaultV1:     "VaultV1",
}

// Kinds returns every known kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindArtifacts))
	for k := KindBankV0; k <= KindVaultV1; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind maps an artifact name back to its kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindArtifacts {
		if name == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown contract kind %q", s)
}

// Artifact is the compiled contract name backing the kind.
func (k Kind) Artifact() string {
	return kindArtifacts[k]
}

// Proxied reports whether the kind lives behind an upgradeable proxy.
// Token is the only contract deployed directly with constructor arguments.
func (k Kind) Proxied() bool {
	return k != KindToken && k != KindUnknown
}

func (k Kind) String() string {
	if name, ok := kindArtifacts[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}
