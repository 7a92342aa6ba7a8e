// Package consent owns the consent record and its lifecycle state machine.
package consent

import (
	"context"
	"time"

	"github.com/TimzAjes16/echoID/internal/coercion"
)

// Status is the lifecycle state of a consent.
type Status string

const (
	StatusLocked        Status = "locked"
	StatusPendingUnlock Status = "pending-unlock"
	StatusUnlocked      Status = "unlocked"
	StatusPaused        Status = "paused"
	StatusWithdrawn     Status = "withdrawn"
)

// UnlockMode selects the unlock policy variant.
type UnlockMode string

const (
	UnlockModeOneShot   UnlockMode = "one-shot"
	UnlockModeWindowed  UnlockMode = "windowed"
	UnlockModeScheduled UnlockMode = "scheduled"
)

// TemplateType is the closed set of consent agreement templates.
type TemplateType string

const (
	TemplateSexNDA       TemplateType = "sex-nda"
	TemplateNDA          TemplateType = "nda"
	TemplateCreative     TemplateType = "creative"
	TemplateCollab       TemplateType = "collab"
	TemplateConversation TemplateType = "conversation"
)

// ValidTemplateType reports whether t is in the closed template set.
func ValidTemplateType(t TemplateType) bool {
	switch t {
	case TemplateSexNDA, TemplateNDA, TemplateCreative, TemplateCollab, TemplateConversation:
		return true
	}
	return false
}

// ValidUnlockMode reports whether m is a known unlock mode.
func ValidUnlockMode(m UnlockMode) bool {
	switch m {
	case UnlockModeOneShot, UnlockModeWindowed, UnlockModeScheduled:
		return true
	}
	return false
}

// Handshake is the bundle of evidence commitments. Immutable once set; a
// dispute requires a new consent, never a recomputation.
type Handshake struct {
	VoiceHash  string `json:"voiceHash"`
	FaceHash   string `json:"faceHash"`
	DeviceHash string `json:"deviceHash"`
	GeoHash    string `json:"geoHash"`
}

// Complete reports whether all four commitments are present.
func (h Handshake) Complete() bool {
	return h.VoiceHash != "" && h.FaceHash != "" && h.DeviceHash != "" && h.GeoHash != ""
}

// FallbackFlags records which evidence channels degraded to placeholder
// data during capture. A consent minted with fallbacks is weaker evidence,
// and that must stay visible after the fact.
type FallbackFlags struct {
	Voice       bool `json:"voice,omitempty"`
	Face        bool `json:"face,omitempty"`
	Geo         bool `json:"geo,omitempty"`
	Features    bool `json:"features,omitempty"`
	Attachments bool `json:"attachments,omitempty"`
}

// Any reports whether at least one channel fell back.
func (f FallbackFlags) Any() bool {
	return f.Voice || f.Face || f.Geo || f.Features || f.Attachments
}

// LocalData is device-local cache that never leaves the device and is not
// part of the canonical protocol state.
type LocalData struct {
	AudioPath   string        `json:"audioPath,omitempty"`
	FacePath    string        `json:"facePath,omitempty"`
	ChatHistory []string      `json:"chatHistory,omitempty"`
	Fallbacks   FallbackFlags `json:"fallbacks,omitempty"`
}

// StatusAudit is one entry of the append-only local transition trail.
type StatusAudit struct {
	From   Status    `json:"from"`
	To     Status    `json:"to"`
	Actor  string    `json:"actor,omitempty"`
	Reason string    `json:"reason,omitempty"`
	TxHash string    `json:"txHash,omitempty"`
	At     time.Time `json:"at"`
}

// Consent is the central entity. ID exists before any chain call succeeds;
// ConsentID is assigned at most once, on the first successful or simulated
// mint, and never reassigned.
type Consent struct {
	ID        string `json:"id"`
	ConsentID uint64 `json:"consentId"`

	// Simulated marks records minted on the simulated path;
	// FallbackFromLive additionally marks mints that started live and fell
	// back, so fake identifiers are never presented as real.
	Simulated        bool   `json:"simulated"`
	FallbackFromLive bool   `json:"fallbackFromLive,omitempty"`
	MintTxHash       string `json:"mintTxHash"`

	ParticipantA string `json:"participantA"`
	ParticipantB string `json:"participantB"`

	TemplateType TemplateType `json:"templateType"`
	Purpose      string       `json:"purpose"`

	Handshake Handshake `json:"handshake"`

	CoercionLevel coercion.Level `json:"coercionLevel"`
	CoercionScore int            `json:"coercionScore"`

	CreatedAt   time.Time `json:"createdAt"`
	LockedUntil time.Time `json:"lockedUntil"`

	UnlockMode    UnlockMode `json:"unlockMode"`
	WindowMinutes int        `json:"windowMinutes,omitempty"`

	Status            Status   `json:"status"`
	UnlockRequestFrom string   `json:"unlockRequestFrom,omitempty"`
	UnlockApprovedBy  []string `json:"unlockApprovedBy,omitempty"`

	Attachments []string `json:"attachments,omitempty"`

	LocalData LocalData     `json:"localData,omitempty"`
	Audit     []StatusAudit `json:"audit,omitempty"`
}

// IsParticipant reports whether addr is one of the two original parties.
func (c *Consent) IsParticipant(addr string) bool {
	return addr != "" && (addr == c.ParticipantA || addr == c.ParticipantB)
}

// HasApproval reports whether addr already approved the current unlock
// request. UnlockApprovedBy has set semantics; duplicates are forbidden.
func (c *Consent) HasApproval(addr string) bool {
	for _, a := range c.UnlockApprovedBy {
		if a == addr {
			return true
		}
	}
	return false
}

// Store is the persisted consent store mutated only by the state machine,
// and only after the corresponding chain call confirmed.
type Store interface {
	SaveConsent(ctx context.Context, c *Consent) error
	GetConsent(ctx context.Context, id string) (*Consent, error)
	ListConsents(ctx context.Context) ([]*Consent, error)
}

// ChainInvoker is the execution router surface the state machine drives.
// Every transition is backed by one of these calls; local state is only
// committed after the invoker confirms, live or simulated.
type ChainInvoker interface {
	RequestUnlock(ctx context.Context, consentID uint64) (string, error)
	ApproveUnlock(ctx context.Context, consentID uint64) (string, error)
	Withdraw(ctx context.Context, consentID uint64) (string, error)
	Pause(ctx context.Context, consentID uint64) (string, error)
	Resume(ctx context.Context, consentID uint64) (string, error)
	ConsentStatus(ctx context.Context, consentID uint64) (string, error)
}
