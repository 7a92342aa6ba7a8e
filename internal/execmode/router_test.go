package execmode_test

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/TimzAjes16/echoID/internal/chain"
	"github.com/TimzAjes16/echoID/internal/execmode"
)

// memModeStore is an in-memory ModeStore.
type memModeStore struct {
	mu      sync.Mutex
	enabled bool
	set     bool
}

func (s *memModeStore) GetSimulatedMode(ctx context.Context) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled, s.set, nil
}

func (s *memModeStore) SetSimulatedMode(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	s.set = true
	return nil
}

// MockTransport is a mock implementation of chain.Transport.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) CreateConsent(ctx context.Context, p *chain.MintParams) (*chain.MintReceipt, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.MintReceipt), args.Error(1)
}

func (m *MockTransport) RequestUnlock(ctx context.Context, consentID uint64) (string, error) {
	args := m.Called(ctx, consentID)
	return args.String(0), args.Error(1)
}

func (m *MockTransport) ApproveUnlock(ctx context.Context, consentID uint64) (string, error) {
	args := m.Called(ctx, consentID)
	return args.String(0), args.Error(1)
}

func (m *MockTransport) WithdrawConsent(ctx context.Context, consentID uint64) (string, error) {
	args := m.Called(ctx, consentID)
	return args.String(0), args.Error(1)
}

func (m *MockTransport) PauseConsent(ctx context.Context, consentID uint64) (string, error) {
	args := m.Called(ctx, consentID)
	return args.String(0), args.Error(1)
}

func (m *MockTransport) ResumeConsent(ctx context.Context, consentID uint64) (string, error) {
	args := m.Called(ctx, consentID)
	return args.String(0), args.Error(1)
}

func (m *MockTransport) ConsentStatus(ctx context.Context, consentID uint64) (string, error) {
	args := m.Called(ctx, consentID)
	return args.String(0), args.Error(1)
}

func mintParams() *chain.MintParams {
	return &chain.MintParams{
		ParticipantA:  "0x000000000000000000000000000000000000aaaa",
		ParticipantB:  "0x000000000000000000000000000000000000bbbb",
		VoiceHash:     "0x" + strings.Repeat("11", 32),
		FaceHash:      "0x" + strings.Repeat("22", 32),
		DeviceHash:    "0x" + strings.Repeat("33", 32),
		GeoHash:       "0x" + strings.Repeat("44", 32),
		UnlockMode:    "one-shot",
		WindowMinutes: 0,
		FeeWei:        big.NewInt(1),
	}
}

func TestDefaultsToSimulatedWhenUnset(t *testing.T) {
	r := execmode.NewRouter(&memModeStore{}, new(MockTransport), 0)

	simulated, err := r.SimulatedMode(context.Background())
	require.NoError(t, err)
	assert.True(t, simulated)
}

func TestSetSimulatedModePersists(t *testing.T) {
	store := &memModeStore{}
	r := execmode.NewRouter(store, new(MockTransport), 0)
	ctx := context.Background()

	require.NoError(t, r.SetSimulatedMode(ctx, false))

	simulated, err := r.SimulatedMode(ctx)
	require.NoError(t, err)
	assert.False(t, simulated)
}

func TestSimulatedMintIsIdempotent(t *testing.T) {
	r := execmode.NewRouter(&memModeStore{}, new(MockTransport), 0)
	ctx := context.Background()

	a, err := r.MintConsent(ctx, mintParams())
	require.NoError(t, err)
	b, err := r.MintConsent(ctx, mintParams())
	require.NoError(t, err)

	assert.True(t, a.Simulated)
	assert.False(t, a.FallbackFromLive)
	assert.NotZero(t, a.ConsentID)
	assert.NotEmpty(t, a.TxHash)
	assert.Equal(t, a.ConsentID, b.ConsentID)
	assert.Equal(t, a.TxHash, b.TxHash)
}

func TestSimulatedMintSensitiveToEvidence(t *testing.T) {
	r := execmode.NewRouter(&memModeStore{}, new(MockTransport), 0)
	ctx := context.Background()

	a, err := r.MintConsent(ctx, mintParams())
	require.NoError(t, err)

	p := mintParams()
	p.VoiceHash = "0x" + strings.Repeat("ff", 32)
	b, err := r.MintConsent(ctx, p)
	require.NoError(t, err)

	assert.NotEqual(t, a.ConsentID, b.ConsentID)
}

func TestLiveMintPassesThrough(t *testing.T) {
	store := &memModeStore{}
	transport := new(MockTransport)
	r := execmode.NewRouter(store, transport, 0)
	ctx := context.Background()
	require.NoError(t, r.SetSimulatedMode(ctx, false))

	transport.On("CreateConsent", ctx, mock.Anything).Return(&chain.MintReceipt{ConsentID: 7, TxHash: "0xlive"}, nil).Once()

	res, err := r.MintConsent(ctx, mintParams())
	require.NoError(t, err)
	assert.False(t, res.Simulated)
	assert.False(t, res.FallbackFromLive)
	assert.Equal(t, uint64(7), res.ConsentID)
	assert.Equal(t, "0xlive", res.TxHash)
	transport.AssertExpectations(t)
}

func TestLiveMintFailureFallsBackTagged(t *testing.T) {
	store := &memModeStore{}
	transport := new(MockTransport)
	r := execmode.NewRouter(store, transport, 0)
	ctx := context.Background()
	require.NoError(t, r.SetSimulatedMode(ctx, false))

	transport.On("CreateConsent", ctx, mock.Anything).Return(nil, errors.New("no contract code at given address")).Once()

	res, err := r.MintConsent(ctx, mintParams())
	require.NoError(t, err)
	assert.True(t, res.Simulated)
	assert.True(t, res.FallbackFromLive)
	assert.Equal(t, chain.ReasonContractMissing, res.FailureReason)
	assert.NotZero(t, res.ConsentID)
	transport.AssertExpectations(t)
}

func TestLiveMintWithoutConsentIDFallsBackTagged(t *testing.T) {
	store := &memModeStore{}
	transport := new(MockTransport)
	r := execmode.NewRouter(store, transport, 0)
	ctx := context.Background()
	require.NoError(t, r.SetSimulatedMode(ctx, false))

	// A receipt without a ledger-assigned id must never be persisted as a
	// live mint; every later lifecycle call would target consent 0.
	transport.On("CreateConsent", ctx, mock.Anything).Return(&chain.MintReceipt{TxHash: "0xlive"}, nil).Once()

	res, err := r.MintConsent(ctx, mintParams())
	require.NoError(t, err)
	assert.True(t, res.Simulated)
	assert.True(t, res.FallbackFromLive)
	assert.NotZero(t, res.ConsentID)
	transport.AssertExpectations(t)
}

func TestLiveLifecycleFailureDoesNotFallBack(t *testing.T) {
	store := &memModeStore{}
	transport := new(MockTransport)
	r := execmode.NewRouter(store, transport, 0)
	ctx := context.Background()
	require.NoError(t, r.SetSimulatedMode(ctx, false))

	transport.On("RequestUnlock", ctx, uint64(9)).Return("", errors.New("insufficient funds")).Once()

	_, err := r.RequestUnlock(ctx, 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "funds")
	transport.AssertExpectations(t)
}

func TestSimulatedLifecycleSynthesizesTxHash(t *testing.T) {
	r := execmode.NewRouter(&memModeStore{}, new(MockTransport), 0)
	ctx := context.Background()

	a, err := r.ApproveUnlock(ctx, 9)
	require.NoError(t, err)
	b, err := r.RequestUnlock(ctx, 9)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "0x"))
	assert.NotEqual(t, a, b)
}
