package rollout

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/minertopia/rollout/internal/domain"
)

func TestDeployerPersistsBeforeReturning(t *testing.T) {
	st := newMemStore(nil)
	ch := newFakeChain()
	env, _, _ := newTestEnv(st, ch)

	addr, skipped, err := NewDeployer(env).Deploy(context.Background(), domain.DeploymentStep{
		Name: domain.NameBank,
		Kind: domain.KindBankV0,
	})
	require.NoError(t, err)
	require.False(t, skipped)
	require.Equal(t, 1, st.writes)
	require.Equal(t, domain.Record{domain.NameBank: addr}, st.rec)
	require.Len(t, ch.ops("deployProxy"), 1)
}

func TestDeployerUsesPlainDeploymentForToken(t *testing.T) {
	bank := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	st := newMemStore(domain.Record{domain.NameBank: bank})
	ch := newFakeChain()
	env, _, _ := newTestEnv(st, ch)

	_, _, err := NewDeployer(env).Deploy(context.Background(), domain.DeploymentStep{
		Name: domain.NameToken,
		Kind: domain.KindToken,
		Args: []domain.Value{domain.Ref(domain.NameBank), domain.Lit("Minertopia Token"), domain.Lit("MTK")},
	})
	require.NoError(t, err)

	plain := ch.ops("deployPlain")
	require.Len(t, plain, 1)
	require.Empty(t, ch.ops("deployProxy"))
	require.Equal(t, []any{bank, "Minertopia Token", "MTK"}, plain[0].args)
}

func TestDeployerSkipsRecordedName(t *testing.T) {
	existing := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	st := newMemStore(domain.Record{domain.NameBank: existing})
	ch := newFakeChain()
	env, _, _ := newTestEnv(st, ch)

	addr, skipped, err := NewDeployer(env).Deploy(context.Background(), domain.DeploymentStep{
		Name: domain.NameBank,
		Kind: domain.KindBankV0,
	})
	require.NoError(t, err)
	require.True(t, skipped)
	require.Equal(t, existing, addr)
	require.Empty(t, ch.calls)
	require.Zero(t, st.writes)
}

func TestDeployerUnresolvedDependencyWritesNothing(t *testing.T) {
	st := newMemStore(domain.Record{})
	ch := newFakeChain()
	env, _, _ := newTestEnv(st, ch)

	_, _, err := NewDeployer(env).Deploy(context.Background(), domain.DeploymentStep{
		Name: domain.NameToken,
		Kind: domain.KindToken,
		Args: []domain.Value{domain.Ref(domain.NameBank)},
	})
	require.ErrorIs(t, err, domain.ErrUnresolvedDependency)
	require.ErrorContains(t, err, `"bank"`)
	require.Empty(t, ch.calls)
	require.Zero(t, st.writes)

	_, ok := st.rec.Address(domain.NameToken)
	require.False(t, ok)
}

func TestDeployerTransactionFailureWritesNothing(t *testing.T) {
	st := newMemStore(nil)
	ch := newFakeChain()
	ch.deployErr[domain.KindPoolV0] = domain.ErrTransactionFailure
	env, _, _ := newTestEnv(st, ch)

	_, _, err := NewDeployer(env).Deploy(context.Background(), domain.DeploymentStep{
		Name: domain.NamePool,
		Kind: domain.KindPoolV0,
	})
	require.ErrorIs(t, err, domain.ErrTransactionFailure)
	require.Zero(t, st.writes)
	require.False(t, st.exists)
}
