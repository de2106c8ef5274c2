package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	kinds := Kinds()
	require.Len(t, kinds, len(kindArtifacts))

	for _, k := range kinds {
		parsed, err := ParseKind(k.Artifact())
		require.NoError(t, err)
		require.Equal(t, k, parsed)
		require.Equal(t, k.Artifact(), k.String())
	}

	_, err := ParseKind("Lock")
	require.Error(t, err)
}

func TestKindProxied(t *testing.T) {
	require.False(t, KindToken.Proxied())
	require.False(t, KindUnknown.Proxied())
	require.True(t, KindGuardV0.Proxied())
	require.True(t, KindVaultV1.Proxied())
	require.Equal(t, "Kind(200)", Kind(200).String())
}
