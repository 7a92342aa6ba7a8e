package identity_test

import (
	"context"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimzAjes16/echoID/internal/identity"
)

// memKeyStore is an in-memory KeyStore for tests.
type memKeyStore struct {
	mu   sync.Mutex
	keys map[string][]byte
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{keys: map[string][]byte{}}
}

func (s *memKeyStore) SaveKey(ctx context.Context, label string, material []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[label] = append([]byte(nil), material...)
	return nil
}

func (s *memKeyStore) GetKey(ctx context.Context, label string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[label], nil
}

func (s *memKeyStore) HasKey(ctx context.Context, label string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[label]
	return ok, nil
}

func TestSoftwareGenerateAndSign(t *testing.T) {
	m := identity.NewSoftwareDeviceKeyManager(newMemKeyStore())
	ctx := context.Background()

	key, err := m.Generate(ctx, "device-1")
	require.NoError(t, err)
	assert.False(t, key.HardwareBacked)
	assert.NotEmpty(t, key.PublicKey)

	digest := crypto.Keccak256([]byte("consent payload"))
	sig, err := m.Sign(ctx, digest, "device-1")
	require.NoError(t, err)

	ok, err := identity.VerifyDeviceSignature(key.PublicKey, digest, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignWithoutGenerateFails(t *testing.T) {
	m := identity.NewSoftwareDeviceKeyManager(newMemKeyStore())

	_, err := m.Sign(context.Background(), []byte("digest"), "never-generated")
	assert.ErrorIs(t, err, identity.ErrKeyNotFound)
}

func TestGenerateIsIdempotentPerLabel(t *testing.T) {
	m := identity.NewSoftwareDeviceKeyManager(newMemKeyStore())
	ctx := context.Background()

	first, err := m.Generate(ctx, "device-1")
	require.NoError(t, err)
	second, err := m.Generate(ctx, "device-1")
	require.NoError(t, err)

	assert.Equal(t, first.PublicKey, second.PublicKey)
}

func TestConcurrentGenerateDoesNotSplitKeys(t *testing.T) {
	m := identity.NewSoftwareDeviceKeyManager(newMemKeyStore())
	ctx := context.Background()

	const goroutines = 8
	results := make([][]byte, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key, err := m.Generate(ctx, "shared-label")
			require.NoError(t, err)
			results[i] = key.PublicKey
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Equal(t, results[0], results[i])
	}
}

func TestPublicKeyLookup(t *testing.T) {
	m := identity.NewSoftwareDeviceKeyManager(newMemKeyStore())
	ctx := context.Background()

	generated, err := m.Generate(ctx, "device-1")
	require.NoError(t, err)

	looked, err := m.PublicKey(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, generated.PublicKey, looked.PublicKey)

	_, err = m.PublicKey(ctx, "missing")
	assert.ErrorIs(t, err, identity.ErrKeyNotFound)
}

func TestFallbackManagerIsSoftware(t *testing.T) {
	// No hardware store present at all.
	m := identity.NewDeviceKeyManager(nil, newMemKeyStore())

	key, err := m.Generate(context.Background(), "device-1")
	require.NoError(t, err)
	assert.False(t, key.HardwareBacked)
}
