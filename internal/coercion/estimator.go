package coercion

import "fmt"

// Level is the discrete coercion risk band assigned to a voice recording.
type Level string

const (
	LevelGreen Level = "green"
	LevelAmber Level = "amber"
	LevelRed   Level = "red"
)

// Features is the structured audio feature set produced by an upstream
// extractor. The estimator never captures audio itself.
type Features struct {
	SpeechRateWPM   float64 `json:"speechRateWpm"`
	PauseCount      int     `json:"pauseCount"`
	AvgPauseMs      float64 `json:"avgPauseMs"`
	Jitter          float64 `json:"jitter"`
	VolumeVariation float64 `json:"volumeVariation"`
}

// Config carries the scoring thresholds and weights so they can be tuned
// without touching the scoring logic.
type Config struct {
	SpeechRateHighWPM     float64
	SpeechRateHighPoints  int
	SpeechRateLowWPM      float64
	SpeechRateLowPoints   int
	PauseCountMax         int
	PauseCountPoints      int
	AvgPauseMaxMs         float64
	AvgPausePoints        int
	JitterMax             float64
	JitterPoints          int
	VolumeVariationMax    float64
	VolumeVariationPoints int

	AmberScore int
	RedScore   int
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		SpeechRateHighWPM:     180,
		SpeechRateHighPoints:  20,
		SpeechRateLowWPM:      80,
		SpeechRateLowPoints:   15,
		PauseCountMax:         10,
		PauseCountPoints:      15,
		AvgPauseMaxMs:         2000,
		AvgPausePoints:        20,
		JitterMax:             0.3,
		JitterPoints:          25,
		VolumeVariationMax:    0.4,
		VolumeVariationPoints: 15,
		AmberScore:            30,
		RedScore:              60,
	}
}

// Assessment is the full scoring output. The raw features and triggered
// warnings are retained for auditability, not just the band.
type Assessment struct {
	Score    int      `json:"score"`
	Level    Level    `json:"level"`
	Warnings []string `json:"warnings,omitempty"`
	Features Features `json:"features"`
}

// Estimator maps audio features to a coercion risk band using additive
// heuristic scoring. It never fails; callers with no feature set must use
// SafeDefault instead of guessing.
type Estimator struct {
	cfg Config
}

// NewEstimator creates an estimator with the given scoring configuration.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Estimate scores the feature set, clamps to [0,100] and maps the total to
// a band.
func (e *Estimator) Estimate(f Features) Assessment {
	score := 0
	var warnings []string

	if f.SpeechRateWPM > e.cfg.SpeechRateHighWPM {
		score += e.cfg.SpeechRateHighPoints
		warnings = append(warnings, fmt.Sprintf("speech rate %.0f wpm exceeds %.0f wpm", f.SpeechRateWPM, e.cfg.SpeechRateHighWPM))
	} else if f.SpeechRateWPM > 0 && f.SpeechRateWPM < e.cfg.SpeechRateLowWPM {
		score += e.cfg.SpeechRateLowPoints
		warnings = append(warnings, fmt.Sprintf("speech rate %.0f wpm below %.0f wpm", f.SpeechRateWPM, e.cfg.SpeechRateLowWPM))
	}

	if f.PauseCount > e.cfg.PauseCountMax {
		score += e.cfg.PauseCountPoints
		warnings = append(warnings, fmt.Sprintf("%d pauses exceed %d", f.PauseCount, e.cfg.PauseCountMax))
	}

	if f.AvgPauseMs > e.cfg.AvgPauseMaxMs {
		score += e.cfg.AvgPausePoints
		warnings = append(warnings, fmt.Sprintf("average pause %.0fms exceeds %.0fms", f.AvgPauseMs, e.cfg.AvgPauseMaxMs))
	}

	if f.Jitter > e.cfg.JitterMax {
		score += e.cfg.JitterPoints
		warnings = append(warnings, fmt.Sprintf("jitter %.2f exceeds %.2f", f.Jitter, e.cfg.JitterMax))
	}

	if f.VolumeVariation > e.cfg.VolumeVariationMax {
		score += e.cfg.VolumeVariationPoints
		warnings = append(warnings, fmt.Sprintf("volume variation %.2f exceeds %.2f", f.VolumeVariation, e.cfg.VolumeVariationMax))
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return Assessment{
		Score:    score,
		Level:    e.band(score),
		Warnings: warnings,
		Features: f,
	}
}

func (e *Estimator) band(score int) Level {
	switch {
	case score >= e.cfg.RedScore:
		return LevelRed
	case score >= e.cfg.AmberScore:
		return LevelAmber
	default:
		return LevelGreen
	}
}

// SafeDefault is the assessment callers must substitute when the upstream
// feature extractor produced nothing.
func SafeDefault() Assessment {
	return Assessment{Score: 0, Level: LevelGreen}
}
