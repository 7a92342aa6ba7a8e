package chain_test

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/TimzAjes16/echoID/internal/chain"
)

type mockWallet struct {
	mock.Mock
}

func (m *mockWallet) Connect(ctx context.Context, supportedChainIDs []*big.Int) (*chain.WalletSession, error) {
	args := m.Called(ctx, supportedChainIDs)
	if session := args.Get(0); session != nil {
		return session.(*chain.WalletSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWallet) SendTransaction(ctx context.Context, tx *chain.TxDescriptor) (string, error) {
	args := m.Called(ctx, tx)
	return args.String(0), args.Error(1)
}

func (m *mockWallet) SignTypedData(ctx context.Context, domain, types, message []byte) (string, error) {
	args := m.Called(ctx, domain, types, message)
	return args.String(0), args.Error(1)
}

func (m *mockWallet) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) ConsentIDByTx(ctx context.Context, txHash string) (uint64, error) {
	args := m.Called(ctx, txHash)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockLedger) ConsentStatus(ctx context.Context, consentID uint64) (string, error) {
	args := m.Called(ctx, consentID)
	return args.String(0), args.Error(1)
}

const contractAddr = "0x00000000000000000000000000000000000000c1"

func mintParams() *chain.MintParams {
	return &chain.MintParams{
		ParticipantB: "0x00000000000000000000000000000000000000b2",
		VoiceHash:    "0x" + strings.Repeat("11", 32),
		FaceHash:     "0x" + strings.Repeat("22", 32),
		DeviceHash:   "0x" + strings.Repeat("33", 32),
		GeoHash:      "0x" + strings.Repeat("44", 32),
		UnlockMode:   "one-shot",
		FeeWei:       big.NewInt(1000),
	}
}

func TestWalletBackedTransportCreateConsentResolvesID(t *testing.T) {
	wallet := &mockWallet{}
	ledger := &mockLedger{}
	transport := chain.NewWalletBackedTransport(wallet, ledger, contractAddr, big.NewInt(8453))

	wallet.On("SendTransaction", mock.Anything, mock.MatchedBy(func(tx *chain.TxDescriptor) bool {
		return tx.To == contractAddr &&
			tx.Value.Cmp(big.NewInt(1000)) == 0 &&
			len(tx.Data) > 0
	})).Return("0xtxhash", nil)
	ledger.On("ConsentIDByTx", mock.Anything, "0xtxhash").Return(uint64(7), nil)

	receipt, err := transport.CreateConsent(context.Background(), mintParams())
	require.NoError(t, err)

	assert.Equal(t, "0xtxhash", receipt.TxHash)
	assert.Equal(t, uint64(7), receipt.ConsentID)
	wallet.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestWalletBackedTransportRequiresLedgerReader(t *testing.T) {
	wallet := &mockWallet{}
	transport := chain.NewWalletBackedTransport(wallet, nil, contractAddr, big.NewInt(8453))

	// Rejected before dispatch: a mint whose id can never be read back
	// must not reach the chain at all.
	_, err := transport.CreateConsent(context.Background(), mintParams())
	assert.True(t, errors.Is(err, chain.ErrTransportUnavailable))
	wallet.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

func TestWalletBackedTransportFailsWhenIDResolutionFails(t *testing.T) {
	wallet := &mockWallet{}
	ledger := &mockLedger{}
	transport := chain.NewWalletBackedTransport(wallet, ledger, contractAddr, big.NewInt(8453))

	wallet.On("SendTransaction", mock.Anything, mock.Anything).Return("0xtxhash", nil)
	ledger.On("ConsentIDByTx", mock.Anything, "0xtxhash").Return(uint64(0), errors.New("rpc unavailable"))

	_, err := transport.CreateConsent(context.Background(), mintParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0xtxhash")
}

func TestWalletBackedTransportRejectsZeroConsentID(t *testing.T) {
	wallet := &mockWallet{}
	ledger := &mockLedger{}
	transport := chain.NewWalletBackedTransport(wallet, ledger, contractAddr, big.NewInt(8453))

	wallet.On("SendTransaction", mock.Anything, mock.Anything).Return("0xtxhash", nil)
	ledger.On("ConsentIDByTx", mock.Anything, "0xtxhash").Return(uint64(0), nil)

	_, err := transport.CreateConsent(context.Background(), mintParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no consent id")
}

func TestWalletBackedTransportLifecycleCalls(t *testing.T) {
	wallet := &mockWallet{}
	transport := chain.NewWalletBackedTransport(wallet, &mockLedger{}, contractAddr, big.NewInt(8453))

	wallet.On("SendTransaction", mock.Anything, mock.Anything).Return("0xlifecycle", nil)

	txHash, err := transport.RequestUnlock(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "0xlifecycle", txHash)

	txHash, err = transport.WithdrawConsent(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "0xlifecycle", txHash)
}

func TestWalletBackedTransportRequiresContract(t *testing.T) {
	wallet := &mockWallet{}
	transport := chain.NewWalletBackedTransport(wallet, &mockLedger{}, "", big.NewInt(8453))

	_, err := transport.CreateConsent(context.Background(), mintParams())
	assert.True(t, errors.Is(err, chain.ErrTransportUnavailable))

	_, err = transport.PauseConsent(context.Background(), 7)
	assert.True(t, errors.Is(err, chain.ErrTransportUnavailable))

	wallet.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

func TestWalletBackedTransportPropagatesDispatchErrors(t *testing.T) {
	wallet := &mockWallet{}
	transport := chain.NewWalletBackedTransport(wallet, &mockLedger{}, contractAddr, big.NewInt(8453))

	wallet.On("SendTransaction", mock.Anything, mock.Anything).Return("", errors.New("insufficient funds"))

	_, err := transport.CreateConsent(context.Background(), mintParams())
	require.Error(t, err)
	assert.Equal(t, chain.ReasonInsufficientFunds, chain.ClassifyError(err))
}

func TestWalletBackedTransportConsentStatus(t *testing.T) {
	ledger := &mockLedger{}
	transport := chain.NewWalletBackedTransport(&mockWallet{}, ledger, contractAddr, big.NewInt(8453))

	ledger.On("ConsentStatus", mock.Anything, uint64(7)).Return("withdrawn", nil)

	status, err := transport.ConsentStatus(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "withdrawn", status)
}

func TestUnavailableTransportRejectsEverything(t *testing.T) {
	transport := chain.NewUnavailableTransport("no wallet connected")

	_, err := transport.CreateConsent(context.Background(), mintParams())
	assert.True(t, errors.Is(err, chain.ErrTransportUnavailable))

	_, err = transport.ConsentStatus(context.Background(), 1)
	assert.True(t, errors.Is(err, chain.ErrTransportUnavailable))
}
