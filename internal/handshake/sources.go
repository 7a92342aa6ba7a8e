package handshake

import (
	"context"

	"github.com/pkg/errors"

	"github.com/TimzAjes16/echoID/internal/coercion"
)

// CaptureSources bundles the evidence providers for one handshake run.
// On-device they wrap live sensors; behind the HTTP API they wrap the
// evidence carried in the request.
type CaptureSources struct {
	Audio    AudioSource
	Face     FaceSource
	Geo      GeoSource
	Features FeatureExtractor
}

// StaticAudio serves fixed audio bytes. Empty bytes read as a capture
// failure so the documented voice fallback applies.
type StaticAudio []byte

func (a StaticAudio) ReadAudio(ctx context.Context) ([]byte, error) {
	if len(a) == 0 {
		return nil, errors.New("no audio provided")
	}
	return a, nil
}

// StaticEmbedding serves a fixed face embedding, empty meaning unavailable.
type StaticEmbedding []float64

func (e StaticEmbedding) ReadFaceEmbedding(ctx context.Context) ([]float64, error) {
	if len(e) == 0 {
		return nil, errors.New("no face embedding provided")
	}
	return e, nil
}

// StaticLocation serves a fixed coordinate pair.
type StaticLocation struct {
	Lat, Lng float64
	Valid    bool
}

func (l StaticLocation) ReadLocation(ctx context.Context) (float64, float64, error) {
	if !l.Valid {
		return 0, 0, errors.New("no location provided")
	}
	return l.Lat, l.Lng, nil
}

// StaticFeatures serves a pre-extracted audio feature set.
type StaticFeatures struct {
	Features coercion.Features
	Valid    bool
}

func (f StaticFeatures) Extract(ctx context.Context, audio []byte) (coercion.Features, error) {
	if !f.Valid {
		return coercion.Features{}, errors.New("no audio features provided")
	}
	return f.Features, nil
}
