package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimzAjes16/echoID/internal/consent"
	"github.com/TimzAjes16/echoID/internal/storage"
)

func newFileStore(t *testing.T) *storage.FileStore {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir(), "unit-test-secret")
	require.NoError(t, err)
	return store
}

func sampleConsent(id string) *consent.Consent {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &consent.Consent{
		ID:           id,
		ConsentID:    42,
		Simulated:    true,
		ParticipantA: "0x000000000000000000000000000000000000aaaa",
		ParticipantB: "0x000000000000000000000000000000000000bbbb",
		TemplateType: consent.TemplateSexNDA,
		UnlockMode:   consent.UnlockModeOneShot,
		Status:       consent.StatusLocked,
		CreatedAt:    created,
		LockedUntil:  created.Add(24 * time.Hour),
	}
}

func TestSaveAndGetConsentRoundTrip(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	original := sampleConsent("c-1")
	require.NoError(t, store.SaveConsent(ctx, original))

	loaded, err := store.GetConsent(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestGetConsentNotFound(t *testing.T) {
	store := newFileStore(t)

	_, err := store.GetConsent(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, consent.ErrConsentNotFound))
}

func TestListConsents(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConsent(ctx, sampleConsent("c-1")))
	require.NoError(t, store.SaveConsent(ctx, sampleConsent("c-2")))

	consents, err := store.ListConsents(ctx)
	require.NoError(t, err)
	assert.Len(t, consents, 2)
}

func TestConsentFileIsNotPlaintext(t *testing.T) {
	base := t.TempDir()
	store, err := storage.NewFileStore(base, "unit-test-secret")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.SaveConsent(ctx, sampleConsent("c-1")))

	raw, err := os.ReadFile(filepath.Join(base, "consents", "c-1.enc"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "0x000000000000000000000000000000000000aaaa")
	assert.NotContains(t, string(raw), "locked")
}

func TestWrongSecretFailsToDecrypt(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()

	store, err := storage.NewFileStore(base, "secret-a")
	require.NoError(t, err)
	require.NoError(t, store.SaveConsent(ctx, sampleConsent("c-1")))

	other, err := storage.NewFileStore(base, "secret-b")
	require.NoError(t, err)

	_, err = other.GetConsent(ctx, "c-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypt")
}

func TestKeyMaterialRoundTrip(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	has, err := store.HasKey(ctx, "wallet")
	require.NoError(t, err)
	assert.False(t, has)

	material := []byte{0x01, 0x02, 0x03, 0x04}
	require.NoError(t, store.SaveKey(ctx, "wallet", material))

	has, err = store.HasKey(ctx, "wallet")
	require.NoError(t, err)
	assert.True(t, has)

	loaded, err := store.GetKey(ctx, "wallet")
	require.NoError(t, err)
	assert.Equal(t, material, loaded)
}

func TestSimulatedModeDefaultsToUnset(t *testing.T) {
	store := newFileStore(t)

	_, set, err := store.GetSimulatedMode(context.Background())
	require.NoError(t, err)
	assert.False(t, set)
}

func TestSimulatedModePersistsAcrossInstances(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()

	store, err := storage.NewFileStore(base, "unit-test-secret")
	require.NoError(t, err)
	require.NoError(t, store.SetSimulatedMode(ctx, false))

	reopened, err := storage.NewFileStore(base, "unit-test-secret")
	require.NoError(t, err)

	enabled, set, err := reopened.GetSimulatedMode(ctx)
	require.NoError(t, err)
	assert.True(t, set)
	assert.False(t, enabled)
}

func TestStatusTransitionSurvivesRoundTrip(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	c := sampleConsent("c-1")
	require.NoError(t, store.SaveConsent(ctx, c))

	c.Status = consent.StatusPendingUnlock
	c.UnlockRequestFrom = c.ParticipantA
	c.Audit = append(c.Audit, consent.StatusAudit{
		From:  consent.StatusLocked,
		To:    consent.StatusPendingUnlock,
		Actor: c.ParticipantA,
		At:    c.LockedUntil,
	})
	require.NoError(t, store.SaveConsent(ctx, c))

	loaded, err := store.GetConsent(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, consent.StatusPendingUnlock, loaded.Status)
	require.Len(t, loaded.Audit, 1)
	assert.Equal(t, c.ParticipantA, loaded.Audit[0].Actor)
}
