package handshake_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimzAjes16/echoID/internal/chain"
	"github.com/TimzAjes16/echoID/internal/coercion"
	"github.com/TimzAjes16/echoID/internal/commit"
	"github.com/TimzAjes16/echoID/internal/consent"
	"github.com/TimzAjes16/echoID/internal/execmode"
	"github.com/TimzAjes16/echoID/internal/handshake"
	"github.com/TimzAjes16/echoID/internal/identity"
)

const (
	partyA = "0x000000000000000000000000000000000000aaaa"
	partyB = "0x000000000000000000000000000000000000bbbb"
)

type fakeAudio struct {
	data []byte
	err  error
}

func (f *fakeAudio) ReadAudio(ctx context.Context) ([]byte, error) { return f.data, f.err }

type fakeFace struct {
	embedding []float64
	err       error
}

func (f *fakeFace) ReadFaceEmbedding(ctx context.Context) ([]float64, error) {
	return f.embedding, f.err
}

type fakeGeo struct {
	lat, lng float64
	err      error
}

func (f *fakeGeo) ReadLocation(ctx context.Context) (float64, float64, error) {
	return f.lat, f.lng, f.err
}

type fakeFeatures struct {
	features coercion.Features
	err      error
}

func (f *fakeFeatures) Extract(ctx context.Context, audio []byte) (coercion.Features, error) {
	return f.features, f.err
}

type fakeBlobs struct {
	cid string
	err error
}

func (f *fakeBlobs) Upload(ctx context.Context, data []byte) (string, error) { return f.cid, f.err }

func (f *fakeBlobs) Download(ctx context.Context, cid string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

type memStore struct {
	mu       sync.Mutex
	consents map[string]*consent.Consent
}

func newMemStore() *memStore {
	return &memStore{consents: map[string]*consent.Consent{}}
}

func (s *memStore) SaveConsent(ctx context.Context, c *consent.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.consents[c.ID] = &cp
	return nil
}

func (s *memStore) GetConsent(ctx context.Context, id string) (*consent.Consent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consents[id]
	if !ok {
		return nil, errors.Wrapf(consent.ErrConsentNotFound, "%s", id)
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) ListConsents(ctx context.Context) ([]*consent.Consent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*consent.Consent, 0, len(s.consents))
	for _, c := range s.consents {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

type memKeyStore struct {
	mu   sync.Mutex
	keys map[string][]byte
}

func (s *memKeyStore) SaveKey(ctx context.Context, label string, material []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys == nil {
		s.keys = map[string][]byte{}
	}
	s.keys[label] = material
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

type memModeStore struct{}

func (memModeStore) GetSimulatedMode(ctx context.Context) (bool, bool, error) {
	return true, true, nil
}

func (memModeStore) SetSimulatedMode(ctx context.Context, enabled bool) error { return nil }

type fixture struct {
	orch  *handshake.Orchestrator
	store *memStore
	clock *time2.MockClock
}

type fixtureOpts struct {
	audio    *fakeAudio
	face     *fakeFace
	geo      *fakeGeo
	features *fakeFeatures
	blobs    *fakeBlobs
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()

	if opts.audio == nil {
		opts.audio = &fakeAudio{data: []byte("pcm audio sample")}
	}
	if opts.face == nil {
		opts.face = &fakeFace{embedding: []float64{0.1, 0.2, 0.3}}
	}
	if opts.geo == nil {
		opts.geo = &fakeGeo{lat: 52.520008, lng: 13.404954}
	}
	if opts.features == nil {
		opts.features = &fakeFeatures{features: coercion.Features{SpeechRateWPM: 120}}
	}

	clock := time2.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := newMemStore()
	router := execmode.NewRouter(memModeStore{}, chain.NewUnavailableTransport("no wallet connected"), 0)
	machine := consent.NewStateMachine(store, router, clock)

	cfg := handshake.Config{
		Audio:          opts.audio,
		Face:           opts.face,
		Geo:            opts.geo,
		Features:       opts.features,
		Keys:           identity.NewSoftwareDeviceKeyManager(&memKeyStore{}),
		Estimator:      coercion.NewEstimator(coercion.DefaultConfig()),
		Router:         router,
		Machine:        machine,
		Clock:          clock,
		LockDuration:   24 * time.Hour,
		DeviceKeyLabel: "echoid-device",
		ChainParams: handshake.ChainParams{
			ChainID:  big.NewInt(8453),
			FeeWei:   big.NewInt(1),
			Treasury: "0x000000000000000000000000000000000000cccc",
		},
	}
	if opts.blobs != nil {
		cfg.Blobs = opts.blobs
	}

	return &fixture{orch: handshake.New(cfg), store: store, clock: clock}
}

func baseRequest() *handshake.Request {
	return &handshake.Request{
		ParticipantA: partyA,
		ParticipantB: partyB,
		TemplateType: consent.TemplateNDA,
		Purpose:      "mutual nda",
		UnlockMode:   consent.UnlockModeOneShot,
	}
}

func TestRunHappyPath(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	c, err := f.orch.Run(ctx, baseRequest())
	require.NoError(t, err)

	assert.Equal(t, consent.StatusLocked, c.Status)
	assert.Equal(t, c.CreatedAt.Add(24*time.Hour), c.LockedUntil)
	assert.True(t, c.Simulated)
	assert.False(t, c.FallbackFromLive)
	assert.NotZero(t, c.ConsentID)
	assert.NotEmpty(t, c.MintTxHash)
	assert.Equal(t, coercion.LevelGreen, c.CoercionLevel)
	assert.False(t, c.LocalData.Fallbacks.Any())

	for _, digest := range []string{c.Handshake.VoiceHash, c.Handshake.FaceHash, c.Handshake.DeviceHash, c.Handshake.GeoHash} {
		assert.True(t, commit.IsDigest(digest))
	}

	persisted, err := f.store.GetConsent(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Handshake, persisted.Handshake)
}

func TestAudioFailureFallsBackMarked(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		audio: &fakeAudio{err: errors.New("no microphone permission")},
	})

	c, err := f.orch.Run(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.True(t, c.LocalData.Fallbacks.Voice)
	assert.Equal(t, commit.HashBytes([]byte("echoid:evidence:voice:unavailable")), c.Handshake.VoiceHash)
}

func TestGeoFailureUsesTimeOnlyDigest(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		geo: &fakeGeo{err: errors.New("location services disabled")},
	})

	c, err := f.orch.Run(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.True(t, c.LocalData.Fallbacks.Geo)
	assert.Equal(t, commit.FallbackGeoDigest(c.CreatedAt), c.Handshake.GeoHash)
}

func TestFeatureFailureScoresGreenZero(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		features: &fakeFeatures{err: errors.New("extractor crashed")},
	})

	c, err := f.orch.Run(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.True(t, c.LocalData.Fallbacks.Features)
	assert.Equal(t, coercion.LevelGreen, c.CoercionLevel)
	assert.Zero(t, c.CoercionScore)
}

func TestBlobUploadFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		blobs: &fakeBlobs{err: errors.New("gateway unreachable")},
	})

	req := baseRequest()
	req.UploadEvidence = true

	c, err := f.orch.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, c.Attachments)
	assert.True(t, c.LocalData.Fallbacks.Attachments)
}

func TestBlobUploadRecordsAttachment(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		blobs: &fakeBlobs{cid: "bafy123"},
	})

	req := baseRequest()
	req.UploadEvidence = true

	c, err := f.orch.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"bafy123"}, c.Attachments)
	assert.False(t, c.LocalData.Fallbacks.Attachments)
}

func TestMintRetryReusesCapturedEvidence(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	ev, err := f.orch.CaptureEvidence(ctx)
	require.NoError(t, err)
	require.True(t, ev.Handshake.Complete())

	first, err := f.orch.Mint(ctx, baseRequest(), ev)
	require.NoError(t, err)
	second, err := f.orch.Mint(ctx, baseRequest(), ev)
	require.NoError(t, err)

	assert.Equal(t, first.Handshake, second.Handshake)
	assert.Equal(t, first.ConsentID, second.ConsentID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestMintRejectsIncompleteEvidence(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	_, err := f.orch.Mint(context.Background(), baseRequest(), &handshake.Evidence{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")
}
