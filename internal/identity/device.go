package identity

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DeviceKey is the public half of a device-bound keypair. HardwareBacked
// reports honestly whether the private key lives in hardware-isolated
// storage; a software fallback never pretends otherwise.
type DeviceKey struct {
	PublicKey      []byte
	Label          string
	HardwareBacked bool
}

// DeviceKeyManager manages the device-bound keypair used to bind consents
// to a physical device.
type DeviceKeyManager interface {
	// Generate creates the keypair for label, or returns the existing one.
	// Concurrent calls for the same label are serialized; an existing key
	// is never silently overwritten.
	Generate(ctx context.Context, label string) (*DeviceKey, error)

	// Sign signs digest with the key stored under label. Fails with
	// ErrKeyNotFound when Generate was never called for label.
	Sign(ctx context.Context, digest []byte, label string) ([]byte, error)

	// PublicKey returns the stored key for label without generating one.
	PublicKey(ctx context.Context, label string) (*DeviceKey, error)
}

// HardwareKeyStore is the platform capability for hardware-isolated keys
// (secure element, enclave). Absent hardware is reported via Available,
// never by silently degrading.
type HardwareKeyStore interface {
	Available() bool
	Generate(ctx context.Context, label string) ([]byte, error)
	Sign(ctx context.Context, digest []byte, label string) ([]byte, error)
	PublicKey(ctx context.Context, label string) ([]byte, error)
}

// KeyStore persists raw private key material. Implementations must write
// atomically: either the full blob lands or nothing does.
type KeyStore interface {
	SaveKey(ctx context.Context, label string, material []byte) error
	GetKey(ctx context.Context, label string) ([]byte, error)
	HasKey(ctx context.Context, label string) (bool, error)
}

// NewDeviceKeyManager returns a hardware-backed manager when the platform
// store is present and available, otherwise falls back to software keys.
// The fallback is logged and every DeviceKey it returns carries
// HardwareBacked=false so callers cannot mistake it for isolated storage.
func NewDeviceKeyManager(hw HardwareKeyStore, keys KeyStore) DeviceKeyManager {
	if hw != nil && hw.Available() {
		return &hardwareDeviceKeyManager{hw: hw}
	}
	log.Warn().Msg("no hardware-isolated key store available, falling back to software device keys")
	return &SoftwareDeviceKeyManager{keys: keys}
}

type hardwareDeviceKeyManager struct {
	hw HardwareKeyStore
	mu sync.Mutex
}

func (m *hardwareDeviceKeyManager) Generate(ctx context.Context, label string) (*DeviceKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pub, err := m.hw.Generate(ctx, label)
	if err != nil {
		return nil, errors.Wrap(err, "hardware key generation failed")
	}
	return &DeviceKey{PublicKey: pub, Label: label, HardwareBacked: true}, nil
}

func (m *hardwareDeviceKeyManager) Sign(ctx context.Context, digest []byte, label string) ([]byte, error) {
	sig, err := m.hw.Sign(ctx, digest, label)
	if err != nil {
		return nil, errors.Wrap(err, "hardware signing failed")
	}
	return sig, nil
}

func (m *hardwareDeviceKeyManager) PublicKey(ctx context.Context, label string) (*DeviceKey, error) {
	pub, err := m.hw.PublicKey(ctx, label)
	if err != nil {
		return nil, errors.Wrap(err, "hardware public key lookup failed")
	}
	return &DeviceKey{PublicKey: pub, Label: label, HardwareBacked: true}, nil
}

// SoftwareDeviceKeyManager keeps secp256k1 device keys in the encrypted
// local KeyStore. Used on simulators and devices without a secure element.
type SoftwareDeviceKeyManager struct {
	keys KeyStore
	mu   sync.Mutex
}

// NewSoftwareDeviceKeyManager creates the software fallback manager
// directly, bypassing hardware probing.
func NewSoftwareDeviceKeyManager(keys KeyStore) *SoftwareDeviceKeyManager {
	return &SoftwareDeviceKeyManager{keys: keys}
}

func (m *SoftwareDeviceKeyManager) Generate(ctx context.Context, label string) (*DeviceKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent: a second Generate for the same label returns the stored
	// key instead of overwriting it.
	if existing, err := m.loadKey(ctx, label); err == nil {
		log.Debug().Str("label", label).Msg("device key already exists, returning stored key")
		return &DeviceKey{
			PublicKey:      existing.PubKey().SerializeCompressed(),
			Label:          label,
			HardwareBacked: false,
		}, nil
	} else if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(ErrEntropyUnavailable, err.Error())
	}

	if err := m.keys.SaveKey(ctx, label, priv.Serialize()); err != nil {
		return nil, errors.Wrapf(ErrStorage, "failed to persist device key %q: %v", label, err)
	}

	log.Info().Str("label", label).Msg("generated software device key")
	return &DeviceKey{
		PublicKey:      priv.PubKey().SerializeCompressed(),
		Label:          label,
		HardwareBacked: false,
	}, nil
}

func (m *SoftwareDeviceKeyManager) Sign(ctx context.Context, digest []byte, label string) ([]byte, error) {
	priv, err := m.loadKey(ctx, label)
	if err != nil {
		return nil, err
	}
	sig := btcecdsa.Sign(priv, digest)
	return sig.Serialize(), nil
}

func (m *SoftwareDeviceKeyManager) PublicKey(ctx context.Context, label string) (*DeviceKey, error) {
	priv, err := m.loadKey(ctx, label)
	if err != nil {
		return nil, err
	}
	return &DeviceKey{
		PublicKey:      priv.PubKey().SerializeCompressed(),
		Label:          label,
		HardwareBacked: false,
	}, nil
}

func (m *SoftwareDeviceKeyManager) loadKey(ctx context.Context, label string) (*btcec.PrivateKey, error) {
	has, err := m.keys.HasKey(ctx, label)
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "failed to probe device key %q: %v", label, err)
	}
	if !has {
		return nil, errors.Wrapf(ErrKeyNotFound, "no device key for label %q", label)
	}

	material, err := m.keys.GetKey(ctx, label)
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "failed to load device key %q: %v", label, err)
	}

	priv, _ := btcec.PrivKeyFromBytes(material)
	return priv, nil
}

// VerifyDeviceSignature checks a DER signature produced by Sign against a
// compressed public key. Used when validating invite payloads from peers.
func VerifyDeviceSignature(pubKey, digest, signature []byte) (bool, error) {
	pub, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false, errors.Wrap(err, "failed to parse device public key")
	}
	sig, err := btcecdsa.ParseDERSignature(signature)
	if err != nil {
		return false, errors.Wrap(err, "failed to parse signature")
	}
	return sig.Verify(digest, pub), nil
}
