// Package storage provides the persisted local state backends: an
// encrypted filesystem store for devices and a Redis store for hosted
// deployments. Only the consent state machine mutates consent records.
package storage

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"

	"github.com/TimzAjes16/echoID/internal/consent"
)

const (
	consentsDir  = "consents"
	keysDir      = "keys"
	settingsFile = "settings.json"
)

// settings is the small plain-JSON settings blob. The execution-mode flag
// is tri-state: a missing field means "never set" and must not default to
// live.
type settings struct {
	SimulatedMode *bool `json:"simulatedMode,omitempty"`
}

// FileStore persists consents and key material under a base path. Values
// are AES-GCM encrypted with a scrypt-derived key; every write goes to a
// temp file first and is renamed into place, so a failed write never
// leaves partial state behind.
type FileStore struct {
	basePath      string
	encryptionKey []byte

	mu sync.Mutex
}

// NewFileStore derives the encryption key from secret and prepares the
// directory layout.
func NewFileStore(basePath, secret string) (*FileStore, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive encryption key")
	}

	for _, dir := range []string{basePath, filepath.Join(basePath, consentsDir), filepath.Join(basePath, keysDir)} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, errors.Wrapf(err, "failed to create %s", dir)
		}
	}

	return &FileStore{
		basePath:      basePath,
		encryptionKey: key,
	}, nil
}

func deriveKey(secret string) ([]byte, error) {
	// Fixed salt: the store protects data at rest on a single device, not
	// against dictionary attacks on the secret itself.
	salt := []byte("echoid-local-store-salt")
	return scrypt.Key([]byte(secret), salt, 32768, 8, 1, 32)
}

// SaveConsent encrypts and persists a consent record keyed by local id.
func (s *FileStore) SaveConsent(ctx context.Context, c *consent.Consent) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal consent")
	}
	return s.writeEncrypted(s.consentPath(c.ID), data)
}

// GetConsent loads a consent by local id.
func (s *FileStore) GetConsent(ctx context.Context, id string) (*consent.Consent, error) {
	data, err := s.readEncrypted(s.consentPath(id))
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(consent.ErrConsentNotFound, "%s", id)
		}
		return nil, err
	}

	var c consent.Consent
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal consent")
	}
	return &c, nil
}

// ListConsents loads every locally known consent.
func (s *FileStore) ListConsents(ctx context.Context) ([]*consent.Consent, error) {
	entries, err := os.ReadDir(filepath.Join(s.basePath, consentsDir))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list consent files")
	}

	consents := make([]*consent.Consent, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".enc") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".enc")
		c, err := s.GetConsent(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load consent %s", id)
		}
		consents = append(consents, c)
	}
	return consents, nil
}

// SaveKey persists private key material under a label. Wallet private keys
// and the mnemonic never co-locate: the mnemonic is never stored at all.
func (s *FileStore) SaveKey(ctx context.Context, label string, material []byte) error {
	return s.writeEncrypted(s.keyPath(label), material)
}

// GetKey loads key material by label.
func (s *FileStore) GetKey(ctx context.Context, label string) ([]byte, error) {
	data, err := s.readEncrypted(s.keyPath(label))
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(err, "no key material for %q", label)
		}
		return nil, err
	}
	return data, nil
}

// HasKey reports whether key material exists for a label.
func (s *FileStore) HasKey(ctx context.Context, label string) (bool, error) {
	_, err := os.Stat(s.keyPath(label))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to stat key %q", label)
}

// GetSimulatedMode reads the execution-mode flag. set=false means the flag
// was never written.
func (s *FileStore) GetSimulatedMode(ctx context.Context) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.readSettings()
	if err != nil {
		return false, false, err
	}
	if cfg.SimulatedMode == nil {
		return false, false, nil
	}
	return *cfg.SimulatedMode, true, nil
}

// SetSimulatedMode persists the execution-mode flag.
func (s *FileStore) SetSimulatedMode(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.readSettings()
	if err != nil {
		return err
	}
	cfg.SimulatedMode = &enabled

	data, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal settings")
	}
	return atomicWrite(filepath.Join(s.basePath, settingsFile), data)
}

func (s *FileStore) readSettings() (*settings, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, settingsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &settings{}, nil
		}
		return nil, errors.Wrap(err, "failed to read settings")
	}
	var cfg settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal settings")
	}
	return &cfg, nil
}

func (s *FileStore) consentPath(id string) string {
	return filepath.Join(s.basePath, consentsDir, id+".enc")
}

func (s *FileStore) keyPath(label string) string {
	return filepath.Join(s.basePath, keysDir, label+".enc")
}

func (s *FileStore) writeEncrypted(path string, plaintext []byte) error {
	ciphertext, err := s.encrypt(plaintext)
	if err != nil {
		return err
	}
	return atomicWrite(path, ciphertext)
}

func (s *FileStore) readEncrypted(path string) ([]byte, error) {
	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return s.decrypt(ciphertext)
}

func (s *FileStore) encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GCM")
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "failed to generate nonce")
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *FileStore) decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GCM")
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext shorter than nonce")
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt (wrong secret or corrupted file)")
	}
	return plaintext, nil
}

// atomicWrite lands data at path via a temp file and rename, so readers
// never observe a partial write.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to close temp file")
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to chmod temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to move file into place")
	}
	return nil
}
