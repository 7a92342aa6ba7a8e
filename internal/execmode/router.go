// Package execmode routes every chain-mutating operation through either a
// live wallet-backed transport or a deterministic simulated path, selected
// by a single persisted flag.
package execmode

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/TimzAjes16/echoID/internal/chain"
)

// ModeStore persists the simulated-mode flag. set=false means the flag was
// never written; the router then defaults to simulated, never to spending
// real funds.
type ModeStore interface {
	GetSimulatedMode(ctx context.Context) (enabled bool, set bool, err error)
	SetSimulatedMode(ctx context.Context, enabled bool) error
}

// MintResult is the outcome of a consent mint. Simulated results and
// live-failure fallbacks are tagged so the UI never presents fake
// identifiers as real.
type MintResult struct {
	ConsentID        uint64
	TxHash           string
	Simulated        bool
	FallbackFromLive bool
	FailureReason    chain.FailureReason
}

// Router is the single decision point between live and simulated
// execution. New chain operations must go through it so the mint-only
// fallback-tagging discipline cannot be forgotten at call sites.
type Router struct {
	modes     ModeStore
	transport chain.Transport

	// confirmDelay mimics real confirmation latency on the simulated path
	// so UI flows behave consistently without a network.
	confirmDelay time.Duration
}

// NewRouter creates an execution router.
func NewRouter(modes ModeStore, transport chain.Transport, confirmDelay time.Duration) *Router {
	return &Router{
		modes:        modes,
		transport:    transport,
		confirmDelay: confirmDelay,
	}
}

// SimulatedMode reports whether the simulated path is selected. Unset
// defaults to true.
func (r *Router) SimulatedMode(ctx context.Context) (bool, error) {
	enabled, set, err := r.modes.GetSimulatedMode(ctx)
	if err != nil {
		return true, errors.Wrap(err, "failed to read execution mode")
	}
	if !set {
		return true, nil
	}
	return enabled, nil
}

// SetSimulatedMode persists the flag.
func (r *Router) SetSimulatedMode(ctx context.Context, enabled bool) error {
	if err := r.modes.SetSimulatedMode(ctx, enabled); err != nil {
		return errors.Wrap(err, "failed to persist execution mode")
	}
	log.Info().Bool("simulated", enabled).Msg("execution mode changed")
	return nil
}

// MintConsent dispatches the createConsent call. On the live path, any
// failure falls back to the simulated path with the result tagged, so
// users developing against undeployed contracts are never blocked — but
// never silently shown fake data as real.
func (r *Router) MintConsent(ctx context.Context, p *chain.MintParams) (*MintResult, error) {
	simulated, err := r.SimulatedMode(ctx)
	if err != nil {
		return nil, err
	}

	if simulated {
		return r.simulateMint(ctx, p, false, chain.FailureReason(""))
	}

	receipt, liveErr := r.transport.CreateConsent(ctx, p)
	if liveErr == nil && receipt.ConsentID == 0 {
		// A consent without a ledger-assigned id cannot drive any later
		// lifecycle call; never persist one as a live mint.
		liveErr = errors.New("live mint receipt carries no consent id")
	}
	if liveErr == nil {
		log.Info().Str("tx_hash", receipt.TxHash).Uint64("consent_id", receipt.ConsentID).Msg("live mint confirmed")
		return &MintResult{
			ConsentID: receipt.ConsentID,
			TxHash:    receipt.TxHash,
		}, nil
	}

	reason := chain.ClassifyError(liveErr)
	log.Warn().
		Err(liveErr).
		Str("reason", string(reason)).
		Msg("live mint failed, falling back to simulated mint")
	return r.simulateMint(ctx, p, true, reason)
}

// RequestUnlock dispatches the requestUnlock call. Live failures are
// surfaced plainly: silently "succeeding" a state change that never
// happened on-chain is far more dangerous mid-lifecycle than at creation.
func (r *Router) RequestUnlock(ctx context.Context, consentID uint64) (string, error) {
	return r.lifecycleOp(ctx, "requestUnlock", consentID, r.transport.RequestUnlock)
}

// ApproveUnlock dispatches the approveUnlock call.
func (r *Router) ApproveUnlock(ctx context.Context, consentID uint64) (string, error) {
	return r.lifecycleOp(ctx, "approveUnlock", consentID, r.transport.ApproveUnlock)
}

// Withdraw dispatches the withdrawConsent call.
func (r *Router) Withdraw(ctx context.Context, consentID uint64) (string, error) {
	return r.lifecycleOp(ctx, "withdrawConsent", consentID, r.transport.WithdrawConsent)
}

// Pause dispatches the pauseConsent call.
func (r *Router) Pause(ctx context.Context, consentID uint64) (string, error) {
	return r.lifecycleOp(ctx, "pauseConsent", consentID, r.transport.PauseConsent)
}

// Resume dispatches the resumeConsent call.
func (r *Router) Resume(ctx context.Context, consentID uint64) (string, error) {
	return r.lifecycleOp(ctx, "resumeConsent", consentID, r.transport.ResumeConsent)
}

// ConsentStatus reads the ledger status. On the simulated path there is no
// separate ledger, so the local record is already authoritative.
func (r *Router) ConsentStatus(ctx context.Context, consentID uint64) (string, error) {
	simulated, err := r.SimulatedMode(ctx)
	if err != nil {
		return "", err
	}
	if simulated {
		return "", errors.New("simulated mode has no separate ledger to query")
	}
	return r.transport.ConsentStatus(ctx, consentID)
}

func (r *Router) lifecycleOp(ctx context.Context, op string, consentID uint64, live func(context.Context, uint64) (string, error)) (string, error) {
	simulated, err := r.SimulatedMode(ctx)
	if err != nil {
		return "", err
	}

	if simulated {
		if err := r.waitConfirmation(ctx); err != nil {
			return "", err
		}
		txHash := simulatedTxHash(op, consentID)
		log.Debug().Str("op", op).Uint64("consent_id", consentID).Str("tx_hash", txHash).Msg("simulated lifecycle call")
		return txHash, nil
	}

	txHash, liveErr := live(ctx, consentID)
	if liveErr != nil {
		reason := chain.ClassifyError(liveErr)
		return "", errors.Wrapf(liveErr, "%s failed (%s)", op, reason.Reason())
	}
	return txHash, nil
}

func (r *Router) simulateMint(ctx context.Context, p *chain.MintParams, fallback bool, reason chain.FailureReason) (*MintResult, error) {
	if err := r.waitConfirmation(ctx); err != nil {
		return nil, err
	}

	consentID := SimulatedConsentID(p)
	return &MintResult{
		ConsentID:        consentID,
		TxHash:           simulatedTxHash("createConsent", consentID),
		Simulated:        true,
		FallbackFromLive: fallback,
		FailureReason:    reason,
	}, nil
}

// waitConfirmation applies the artificial confirmation delay, honoring
// cancellation.
func (r *Router) waitConfirmation(ctx context.Context) error {
	if r.confirmDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "cancelled while simulating confirmation")
	case <-time.After(r.confirmDelay):
		return nil
	}
}

// SimulatedConsentID derives the deterministic simulated consent id from
// the full handshake: the Keccak digest of both participants and all four
// commitments, truncated to 63 bits. Identical evidence reproduces the
// same id across test runs; differing evidence diverges with overwhelming
// probability.
func SimulatedConsentID(p *chain.MintParams) uint64 {
	preimage := fmt.Sprintf("echoid.sim.consent|%s|%s|%s|%s|%s|%s",
		p.ParticipantA, p.ParticipantB, p.VoiceHash, p.FaceHash, p.DeviceHash, p.GeoHash)
	digest := crypto.Keccak256([]byte(preimage))
	return binary.BigEndian.Uint64(digest[:8]) >> 1
}

func simulatedTxHash(op string, consentID uint64) string {
	preimage := fmt.Sprintf("echoid.sim.tx|%s|%d", op, consentID)
	return "0x" + hex.EncodeToString(crypto.Keccak256([]byte(preimage)))
}
