package rollout

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/minertopia/rollout/internal/domain"
)

var (
	tokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	poolAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	bankAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a3")
)

func bankSetup() domain.WireCall {
	return domain.WireCall{
		Name:   domain.NameBank,
		Kind:   domain.KindBankV1,
		Method: "setup",
		Args:   []domain.Value{domain.Lit(big.NewInt(10)), domain.Ref(domain.NameToken), domain.Ref(domain.NamePool)},
		Value:  domain.Lit(big.NewInt(7)),
		Checks: []domain.Check{{Method: "pool", Want: domain.Ref(domain.NamePool)}},
	}
}

func deployedRecord() domain.Record {
	return domain.Record{
		domain.NameBank:  bankAddr,
		domain.NameToken: tokenAddr,
		domain.NamePool:  poolAddr,
	}
}

func TestWirerSendsResolvedArguments(t *testing.T) {
	st := newMemStore(deployedRecord())
	ch := newFakeChain()
	env, journal, _ := newTestEnv(st, ch)

	skipped, err := NewWirer(env).Wire(context.Background(), bankSetup())
	require.NoError(t, err)
	require.False(t, skipped)

	sends := ch.ops("send")
	require.Len(t, sends, 1)
	require.Equal(t, bankAddr, sends[0].addr)
	require.Equal(t, domain.KindBankV1, sends[0].kind)
	require.Equal(t, "setup", sends[0].method)
	require.Equal(t, []any{big.NewInt(10), tokenAddr, poolAddr}, sends[0].args)
	require.Zero(t, sends[0].value.Cmp(big.NewInt(7)))

	_, done := journal.Done("bank.setup")
	require.True(t, done)
	require.Zero(t, st.writes, "wiring never writes the record")
}

func TestWirerFailsWithoutRecord(t *testing.T) {
	env, _, _ := newTestEnv(newMemStore(nil), newFakeChain())

	_, err := NewWirer(env).Wire(context.Background(), bankSetup())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWirerFailsForUndeployedTarget(t *testing.T) {
	st := newMemStore(domain.Record{domain.NameToken: tokenAddr})
	ch := newFakeChain()
	env, _, _ := newTestEnv(st, ch)

	_, err := NewWirer(env).Wire(context.Background(), bankSetup())
	require.ErrorIs(t, err, domain.ErrMissingRecord)
	require.Empty(t, ch.calls)
}

func TestWirerFailsForUnresolvedArgument(t *testing.T) {
	st := newMemStore(domain.Record{domain.NameBank: bankAddr, domain.NameToken: tokenAddr})
	ch := newFakeChain()
	env, journal, _ := newTestEnv(st, ch)

	_, err := NewWirer(env).Wire(context.Background(), bankSetup())
	require.ErrorIs(t, err, domain.ErrUnresolvedDependency)
	require.Empty(t, ch.calls)
	require.Empty(t, journal.entries)
}

func TestWirerSkipsJournaledCall(t *testing.T) {
	ch := newFakeChain()
	env, journal, _ := newTestEnv(newMemStore(deployedRecord()), ch)
	require.NoError(t, journal.Mark("bank.setup", common.HexToHash("0x01")))

	skipped, err := NewWirer(env).Wire(context.Background(), bankSetup())
	require.NoError(t, err)
	require.True(t, skipped)
	require.Empty(t, ch.calls)
}

func TestWirerForceReissuesJournaledCall(t *testing.T) {
	ch := newFakeChain()
	env, journal, _ := newTestEnv(newMemStore(deployedRecord()), ch)
	require.NoError(t, journal.Mark("bank.setup", common.HexToHash("0x01")))

	skipped, err := NewWirer(env, WithForce(true)).Wire(context.Background(), bankSetup())
	require.NoError(t, err)
	require.False(t, skipped)
	require.Len(t, ch.ops("send"), 1)

	tx, _ := journal.Done("bank.setup")
	require.NotEqual(t, common.HexToHash("0x01"), tx)
}

func TestWirerAlreadyConfiguredIsNotJournaled(t *testing.T) {
	ch := newFakeChain()
	ch.sendErr["setup"] = domain.ErrAlreadyConfigured
	env, journal, _ := newTestEnv(newMemStore(deployedRecord()), ch)

	_, err := NewWirer(env).Wire(context.Background(), bankSetup())
	require.ErrorIs(t, err, domain.ErrAlreadyConfigured)
	require.Empty(t, journal.entries)
}

func TestWirerReadBack(t *testing.T) {
	tests := []struct {
		name    string
		getters map[string][]any
		wantErr error
	}{
		{
			name:    "matching value",
			getters: map[string][]any{"pool": {poolAddr}},
		},
		{
			name:    "mismatching value",
			getters: map[string][]any{"pool": {tokenAddr}},
			wantErr: domain.ErrReadBackMismatch,
		},
		{
			name:    "missing getter is skipped",
			getters: map[string][]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := newFakeChain()
			ch.getters = tt.getters
			env, journal, _ := newTestEnv(newMemStore(deployedRecord()), ch)

			_, err := NewWirer(env, WithReadBack(true)).Wire(context.Background(), bankSetup())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			_, done := journal.Done("bank.setup")
			require.True(t, done, "a confirmed call is journaled whatever the read back says")
		})
	}
}

func TestSameValue(t *testing.T) {
	require.True(t, sameValue(big.NewInt(5), big.NewInt(5)))
	require.False(t, sameValue(big.NewInt(5), big.NewInt(6)))
	require.False(t, sameValue(uint64(5), big.NewInt(5)))
	require.True(t, sameValue(poolAddr, poolAddr))
	require.False(t, sameValue(poolAddr, tokenAddr))
	require.True(t, sameValue("MTK", "MTK"))
}
