// Package handshake sequences a consent creation end to end: evidence
// capture, commitment derivation, risk scoring, chain submission and local
// persistence. Single evidence channels degrade to marked fallbacks instead
// of aborting the whole flow.
package handshake

import (
	"context"
	"math/big"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/TimzAjes16/echoID/internal/blob"
	"github.com/TimzAjes16/echoID/internal/chain"
	"github.com/TimzAjes16/echoID/internal/coercion"
	"github.com/TimzAjes16/echoID/internal/commit"
	"github.com/TimzAjes16/echoID/internal/consent"
	"github.com/TimzAjes16/echoID/internal/execmode"
	"github.com/TimzAjes16/echoID/internal/identity"
)

// AudioSource provides the raw voice recording bytes.
type AudioSource interface {
	ReadAudio(ctx context.Context) ([]byte, error)
}

// FaceSource provides a numeric face embedding derived from capture bytes.
type FaceSource interface {
	ReadFaceEmbedding(ctx context.Context) ([]float64, error)
}

// GeoSource provides the device location.
type GeoSource interface {
	ReadLocation(ctx context.Context) (lat, lng float64, err error)
}

// FeatureExtractor derives the audio feature set the risk estimator scores.
type FeatureExtractor interface {
	Extract(ctx context.Context, audio []byte) (coercion.Features, error)
}

// voicePlaceholder is hashed in place of audio when capture fails. Fixed
// and clearly marked so a fallback handshake is recognizable from the
// digest alone, given the placeholder.
var voicePlaceholder = []byte("echoid:evidence:voice:unavailable")

// mockFaceEmbedding stands in when no embedding could be derived.
var mockFaceEmbedding = []float64{0, 0, 0, 0, 0, 0, 0, 0}

// ChainParams are the ledger constants bundled into every mint call.
type ChainParams struct {
	ChainID  *big.Int
	FeeWei   *big.Int
	Treasury string
}

// Request describes the consent to create. Evidence is captured separately
// so a failed mint can be retried from the review step without recapturing.
type Request struct {
	ParticipantA  string
	ParticipantB  string
	TemplateType  consent.TemplateType
	Purpose       string
	UnlockMode    consent.UnlockMode
	WindowMinutes int

	// UploadEvidence pins raw evidence to the blob store. Best-effort; a
	// failed upload keeps the evidence device-local.
	UploadEvidence bool
}

// Evidence is the captured, committed evidence bundle. Fallbacks records
// which channels degraded; that must stay visible after the fact because a
// consent minted from fallback data is weaker evidence.
type Evidence struct {
	Handshake consent.Handshake
	Fallbacks consent.FallbackFlags

	Assessment coercion.Assessment
	CapturedAt time.Time

	audio []byte
}

// Orchestrator wires the capture sources to the commitment, risk, routing
// and persistence layers.
type Orchestrator struct {
	audio    AudioSource
	face     FaceSource
	geo      GeoSource
	features FeatureExtractor

	keys      identity.DeviceKeyManager
	estimator *coercion.Estimator
	router    *execmode.Router
	machine   *consent.StateMachine
	blobs     blob.Store
	clock     time2.Clock

	lockDuration   time.Duration
	deviceKeyLabel string
	chainParams    ChainParams
}

// Config bundles the orchestrator's collaborators and constants.
type Config struct {
	Audio    AudioSource
	Face     FaceSource
	Geo      GeoSource
	Features FeatureExtractor

	Keys      identity.DeviceKeyManager
	Estimator *coercion.Estimator
	Router    *execmode.Router
	Machine   *consent.StateMachine
	Blobs     blob.Store
	Clock     time2.Clock

	LockDuration   time.Duration
	DeviceKeyLabel string
	ChainParams    ChainParams
}

// New creates a handshake orchestrator.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		audio:          cfg.Audio,
		face:           cfg.Face,
		geo:            cfg.Geo,
		features:       cfg.Features,
		keys:           cfg.Keys,
		estimator:      cfg.Estimator,
		router:         cfg.Router,
		machine:        cfg.Machine,
		blobs:          cfg.Blobs,
		clock:          cfg.Clock,
		lockDuration:   cfg.LockDuration,
		deviceKeyLabel: cfg.DeviceKeyLabel,
		chainParams:    cfg.ChainParams,
	}
}

// Run captures evidence and mints in one pass. UI retries after a mint
// failure should call CaptureEvidence once and Mint per attempt instead.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*consent.Consent, error) {
	ev, err := o.CaptureEvidence(ctx)
	if err != nil {
		return nil, err
	}
	return o.Mint(ctx, req, ev)
}

// CaptureEvidence runs the capture and commitment steps in order. Audio,
// face, geo and feature extraction degrade to marked fallbacks; only the
// device key step is fatal, because without it there is nothing binding
// the handshake to this device.
func (o *Orchestrator) CaptureEvidence(ctx context.Context) (*Evidence, error) {
	now := o.clock.Now()
	ev := &Evidence{CapturedAt: now}

	audio, err := o.audio.ReadAudio(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("audio capture failed, using placeholder")
		ev.Fallbacks.Voice = true
		audio = voicePlaceholder
	}
	ev.audio = audio
	ev.Handshake.VoiceHash = commit.HashBytes(audio)

	embedding, err := o.face.ReadFaceEmbedding(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("face embedding failed, using mock embedding")
		ev.Fallbacks.Face = true
		embedding = mockFaceEmbedding
	}
	ev.Handshake.FaceHash = commit.HashFaceEmbedding(embedding)

	deviceKey, err := o.keys.Generate(ctx, o.deviceKeyLabel)
	if err != nil {
		return nil, errors.Wrap(err, "device key unavailable")
	}
	ev.Handshake.DeviceHash = commit.HashBytes(deviceKey.PublicKey)

	lat, lng, err := o.geo.ReadLocation(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("location capture failed, using time-only fallback digest")
		ev.Fallbacks.Geo = true
		ev.Handshake.GeoHash = commit.FallbackGeoDigest(now)
	} else {
		ev.Handshake.GeoHash = commit.HashGeo(lat, lng, now)
	}

	features, err := o.features.Extract(ctx, audio)
	if err != nil {
		log.Warn().Err(err).Msg("feature extraction failed, scoring with safe default")
		ev.Fallbacks.Features = true
		ev.Assessment = coercion.SafeDefault()
	} else {
		ev.Assessment = o.estimator.Estimate(features)
	}

	if ev.Fallbacks.Any() {
		log.Warn().
			Bool("voice", ev.Fallbacks.Voice).
			Bool("face", ev.Fallbacks.Face).
			Bool("geo", ev.Fallbacks.Geo).
			Bool("features", ev.Fallbacks.Features).
			Msg("handshake captured with fallback evidence")
	}
	return ev, nil
}

// Mint submits the mint call and persists the resulting consent. No
// partial record exists before the mint succeeds, live or simulated.
func (o *Orchestrator) Mint(ctx context.Context, req *Request, ev *Evidence) (*consent.Consent, error) {
	if !ev.Handshake.Complete() {
		return nil, errors.New("evidence bundle is incomplete")
	}

	var attachments []string
	var attachmentFallback bool
	if req.UploadEvidence && o.blobs != nil {
		if cid, err := o.blobs.Upload(ctx, ev.audio); err != nil {
			log.Warn().Err(err).Msg("evidence upload failed, keeping evidence device-local")
			attachmentFallback = true
		} else {
			attachments = append(attachments, cid)
		}
	}

	result, err := o.router.MintConsent(ctx, &chain.MintParams{
		ParticipantA:  req.ParticipantA,
		ParticipantB:  req.ParticipantB,
		VoiceHash:     ev.Handshake.VoiceHash,
		FaceHash:      ev.Handshake.FaceHash,
		DeviceHash:    ev.Handshake.DeviceHash,
		GeoHash:       ev.Handshake.GeoHash,
		UnlockMode:    string(req.UnlockMode),
		WindowMinutes: uint64(req.WindowMinutes),
		ChainID:       o.chainParams.ChainID,
		FeeWei:        o.chainParams.FeeWei,
		Treasury:      o.chainParams.Treasury,
	})
	if err != nil {
		return nil, errors.Wrap(err, "mint failed")
	}

	fallbacks := ev.Fallbacks
	fallbacks.Attachments = attachmentFallback

	createdAt := o.clock.Now()
	c := &consent.Consent{
		ID:               uuid.NewString(),
		ConsentID:        result.ConsentID,
		Simulated:        result.Simulated,
		FallbackFromLive: result.FallbackFromLive,
		MintTxHash:       result.TxHash,
		ParticipantA:     req.ParticipantA,
		ParticipantB:     req.ParticipantB,
		TemplateType:     req.TemplateType,
		Purpose:          req.Purpose,
		Handshake:        ev.Handshake,
		CoercionLevel:    ev.Assessment.Level,
		CoercionScore:    ev.Assessment.Score,
		CreatedAt:        createdAt,
		LockedUntil:      createdAt.Add(o.lockDuration),
		UnlockMode:       req.UnlockMode,
		WindowMinutes:    req.WindowMinutes,
		Status:           consent.StatusLocked,
		Attachments:      attachments,
		LocalData:        consent.LocalData{Fallbacks: fallbacks},
	}

	if err := o.machine.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
