package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/minertopia/rollout/internal/domain"
)

var (
	testFactory = common.HexToAddress("0x0000000000006396FF2a80c067f99B3d2Ab4Df24")
	testProxy   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	testImpl    = common.HexToAddress("0x00000000000000000000000000000000000000c2")
	testAdmin   = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func deployedLog(emitter common.Address) *types.Log {
	return &types.Log{
		Address: emitter,
		Topics: []common.Hash{
			eventDeployed.Topic0,
			common.BytesToHash(testProxy.Bytes()),
			common.BytesToHash(testImpl.Bytes()),
			common.BytesToHash(testAdmin.Bytes()),
		},
	}
}

func TestProxyAddressFromReceipt(t *testing.T) {
	receipt := &types.Receipt{Logs: []*types.Log{
		{Address: testImpl, Topics: []common.Hash{common.HexToHash("0x01")}},
		deployedLog(testFactory),
	}}

	proxy, err := proxyAddressFromReceipt(receipt, testFactory)
	require.NoError(t, err)
	require.Equal(t, testProxy, proxy)
}

func TestProxyAddressFromReceiptIgnoresOtherEmitters(t *testing.T) {
	receipt := &types.Receipt{Logs: []*types.Log{deployedLog(testImpl)}}

	_, err := proxyAddressFromReceipt(receipt, testFactory)
	require.Error(t, err)
}

func TestEncodeProxyCreation(t *testing.T) {
	plain, err := encodeProxyCreation(testImpl, testAdmin, nil)
	require.NoError(t, err)
	require.Equal(t, funcDeploy.Selector[:], plain[:4])

	withInit, err := encodeProxyCreation(testImpl, testAdmin, []byte{0xde, 0xad})
	require.NoError(t, err)
	require.Equal(t, funcDeployAndCall.Selector[:], withInit[:4])
}

func TestEncodeInitializer(t *testing.T) {
	a, err := parseArtifact([]byte(nftArtifact))
	require.NoError(t, err)

	data, err := encodeInitializer(a.ABI, []any{"Minertopia Citizen", "MINERTOPIA"})
	require.NoError(t, err)
	require.Equal(t, a.ABI.Methods["initialize"].ID, data[:4])

	_, err = encodeInitializer(a.ABI, []any{"only one"})
	require.Error(t, err)

	b, err := parseArtifact([]byte(`{"abi": [], "bytecode": "0x00"}`))
	require.NoError(t, err)

	data, err = encodeInitializer(b.ABI, nil)
	require.NoError(t, err)
	require.Nil(t, data)

	_, err = encodeInitializer(b.ABI, []any{big.NewInt(1)})
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{msg: "execution reverted: Bank: already setup", want: domain.ErrAlreadyConfigured},
		{msg: "execution reverted: Initializable: contract is already initialized", want: domain.ErrAlreadyConfigured},
		{msg: "already known", want: domain.ErrTransactionFailure},
		{msg: "execution reverted", want: domain.ErrTransactionFailure},
		{msg: "insufficient funds for gas * price + value", want: domain.ErrTransactionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			cause := errors.New(tt.msg)
			err := classify(cause)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, cause)
		})
	}
}

func TestCallUnknownMethod(t *testing.T) {
	a, err := parseArtifact([]byte(nftArtifact))
	require.NoError(t, err)

	h := Handle{
		Kind:     domain.KindNFTV0,
		Address:  testProxy,
		abi:      a.ABI,
		contract: bind.NewBoundContract(testProxy, a.ABI, nil, nil, nil),
	}

	_, err = (&Client{}).Call(context.Background(), h, "maxSupply", nil)
	require.ErrorIs(t, err, ErrUnknownMethod)

	_, err = (&Client{}).Call(context.Background(), Handle{Kind: domain.KindNFTV0}, "pool", nil)
	require.Error(t, err)
}
