package consent

import (
	"context"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/TimzAjes16/echoID/internal/chain"
)

var (
	// ErrInvalidTransition rejects transitions the state table forbids.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotEligible rejects unlock requests before the time lock elapsed.
	ErrNotEligible = errors.New("time lock has not elapsed")

	// ErrSelfApproval rejects an unlock approval by the requester; the
	// dual-party gate requires the other party.
	ErrSelfApproval = errors.New("requester cannot approve their own unlock")

	// ErrNotParticipant rejects actors who are not an original party.
	ErrNotParticipant = errors.New("actor is not a consent participant")

	// ErrConsentWithdrawn rejects any operation on the terminal state.
	ErrConsentWithdrawn = errors.New("consent is withdrawn")

	// ErrConsentNotFound is returned by stores for unknown ids.
	ErrConsentNotFound = errors.New("consent not found")
)

// StateMachine owns every status transition of a consent record. Guards
// run before any chain call, the chain call runs through the invoker, and
// the local store is mutated only after the invoker confirms.
type StateMachine struct {
	store   Store
	invoker ChainInvoker
	clock   time2.Clock
}

// NewStateMachine creates the lifecycle state machine.
func NewStateMachine(store Store, invoker ChainInvoker, clock time2.Clock) *StateMachine {
	return &StateMachine{store: store, invoker: invoker, clock: clock}
}

// Create validates the initial invariants and persists a freshly minted
// consent. Called by the handshake orchestrator after the mint confirmed;
// no partial record ever exists before that.
func (sm *StateMachine) Create(ctx context.Context, c *Consent) error {
	if c.ID == "" {
		return errors.New("consent id is required")
	}
	if !ValidTemplateType(c.TemplateType) {
		return errors.Errorf("unknown template type: %s", c.TemplateType)
	}
	if !ValidUnlockMode(c.UnlockMode) {
		return errors.Errorf("unknown unlock mode: %s", c.UnlockMode)
	}
	if c.ParticipantA == "" || c.ParticipantB == "" {
		return errors.New("both participants are required")
	}
	if c.Status != StatusLocked {
		return errors.Wrapf(ErrInvalidTransition, "new consents start locked, got %s", c.Status)
	}
	if c.LockedUntil.Before(c.CreatedAt) {
		return errors.New("lockedUntil must not precede createdAt")
	}

	if err := sm.store.SaveConsent(ctx, c); err != nil {
		return errors.Wrap(err, "failed to persist consent")
	}

	log.Info().
		Str("id", c.ID).
		Uint64("consent_id", c.ConsentID).
		Bool("simulated", c.Simulated).
		Str("template", string(c.TemplateType)).
		Msg("consent created")
	return nil
}

// Get loads a consent by local id.
func (sm *StateMachine) Get(ctx context.Context, id string) (*Consent, error) {
	return sm.store.GetConsent(ctx, id)
}

// List returns all locally known consents.
func (sm *StateMachine) List(ctx context.Context) ([]*Consent, error) {
	return sm.store.ListConsents(ctx)
}

// RequestUnlock moves locked → pending-unlock once the time lock elapsed.
// The boundary is inclusive: a request at exactly lockedUntil succeeds.
func (sm *StateMachine) RequestUnlock(ctx context.Context, id, requester string) (*Consent, error) {
	c, err := sm.guardedLoad(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if !canTransition(c.Status, StatusPendingUnlock) {
		return nil, errors.Wrapf(ErrInvalidTransition, "from %s to %s", c.Status, StatusPendingUnlock)
	}
	if sm.clock.Now().Before(c.LockedUntil) {
		return nil, errors.Wrapf(ErrNotEligible, "locked until %s", c.LockedUntil.Format(time.RFC3339))
	}

	txHash, err := sm.invoker.RequestUnlock(ctx, c.ConsentID)
	if err != nil {
		return nil, sm.handleChainRejection(ctx, c, err, "requestUnlock")
	}

	c.UnlockRequestFrom = requester
	c.UnlockApprovedBy = nil
	return sm.commit(ctx, c, StatusPendingUnlock, requester, "unlock requested", txHash)
}

// ApproveUnlock records a counterparty approval and completes the unlock
// once the policy for the consent's unlock mode is satisfied.
func (sm *StateMachine) ApproveUnlock(ctx context.Context, id, approver string) (*Consent, error) {
	c, err := sm.guardedLoad(ctx, id, approver)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusPendingUnlock {
		return nil, errors.Wrapf(ErrInvalidTransition, "from %s to %s", c.Status, StatusUnlocked)
	}
	if approver == c.UnlockRequestFrom {
		return nil, errors.WithStack(ErrSelfApproval)
	}
	if c.HasApproval(approver) {
		// Duplicate approvals are forbidden in the set; treat as a no-op.
		return c, nil
	}

	txHash, err := sm.invoker.ApproveUnlock(ctx, c.ConsentID)
	if err != nil {
		return nil, sm.handleChainRejection(ctx, c, err, "approveUnlock")
	}

	c.UnlockApprovedBy = append(c.UnlockApprovedBy, approver)

	// With a wider quorum the unlock stays pending until satisfied; for
	// two-party consents any counterparty approval completes it.
	if !unlockPolicySatisfied(c) {
		if err := sm.store.SaveConsent(ctx, c); err != nil {
			return nil, errors.Wrap(err, "failed to persist approval")
		}
		return c, nil
	}

	requester := c.UnlockRequestFrom
	c.UnlockRequestFrom = ""
	return sm.commit(ctx, c, StatusUnlocked, approver, "unlock approved by counterparty of "+requester, txHash)
}

// Withdraw moves any non-terminal state to withdrawn. Terminal: nothing
// transitions out, and the record is never deleted.
func (sm *StateMachine) Withdraw(ctx context.Context, id, actor string) (*Consent, error) {
	c, err := sm.guardedLoad(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !canTransition(c.Status, StatusWithdrawn) {
		return nil, errors.Wrapf(ErrInvalidTransition, "from %s to %s", c.Status, StatusWithdrawn)
	}

	txHash, err := sm.invoker.Withdraw(ctx, c.ConsentID)
	if err != nil {
		return nil, sm.handleChainRejection(ctx, c, err, "withdrawConsent")
	}

	c.UnlockRequestFrom = ""
	c.UnlockApprovedBy = nil
	return sm.commit(ctx, c, StatusWithdrawn, actor, "withdrawn", txHash)
}

// Pause suspends a consent from any non-terminal state. Reversible, no
// effect on the handshake.
func (sm *StateMachine) Pause(ctx context.Context, id, actor string) (*Consent, error) {
	c, err := sm.guardedLoad(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !canTransition(c.Status, StatusPaused) {
		return nil, errors.Wrapf(ErrInvalidTransition, "from %s to %s", c.Status, StatusPaused)
	}

	txHash, err := sm.invoker.Pause(ctx, c.ConsentID)
	if err != nil {
		return nil, sm.handleChainRejection(ctx, c, err, "pauseConsent")
	}

	// An in-flight unlock request is abandoned; the protocol restarts
	// cleanly after resume.
	c.UnlockRequestFrom = ""
	c.UnlockApprovedBy = nil
	return sm.commit(ctx, c, StatusPaused, actor, "paused", txHash)
}

// Resume returns a paused consent to locked.
func (sm *StateMachine) Resume(ctx context.Context, id, actor string) (*Consent, error) {
	c, err := sm.guardedLoad(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusPaused {
		return nil, errors.Wrapf(ErrInvalidTransition, "from %s to %s", c.Status, StatusLocked)
	}

	txHash, err := sm.invoker.Resume(ctx, c.ConsentID)
	if err != nil {
		return nil, sm.handleChainRejection(ctx, c, err, "resumeConsent")
	}

	return sm.commit(ctx, c, StatusLocked, actor, "resumed", txHash)
}

// guardedLoad loads the consent and runs the guards common to every
// transition, before any chain call is attempted.
func (sm *StateMachine) guardedLoad(ctx context.Context, id, actor string) (*Consent, error) {
	c, err := sm.store.GetConsent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsParticipant(actor) {
		return nil, errors.Wrapf(ErrNotParticipant, "%s", actor)
	}
	if c.Status == StatusWithdrawn {
		return nil, errors.WithStack(ErrConsentWithdrawn)
	}
	return c, nil
}

// commit applies the confirmed transition to the local record, appends the
// audit entry and persists. This is the only place status changes.
func (sm *StateMachine) commit(ctx context.Context, c *Consent, next Status, actor, reason, txHash string) (*Consent, error) {
	prev := c.Status
	c.Status = next
	c.Audit = append(c.Audit, StatusAudit{
		From:   prev,
		To:     next,
		Actor:  actor,
		Reason: reason,
		TxHash: txHash,
		At:     sm.clock.Now(),
	})

	if err := sm.store.SaveConsent(ctx, c); err != nil {
		return nil, errors.Wrap(err, "failed to persist transition")
	}

	log.Info().
		Str("id", c.ID).
		Str("from", string(prev)).
		Str("to", string(next)).
		Str("actor", actor).
		Msg("consent transition committed")
	return c, nil
}

// handleChainRejection deals with a failed chain call. When the ledger
// rejected because its state moved on (e.g. the counterparty withdrew
// first), the authoritative ordering is the ledger's: re-sync the local
// status instead of trusting the cached one. All other failures surface
// directly; masking a failed transition is worse than blocking the caller.
func (sm *StateMachine) handleChainRejection(ctx context.Context, c *Consent, callErr error, op string) error {
	reason := chain.ClassifyError(callErr)
	if reason != chain.ReasonStateDiverged {
		return errors.Wrapf(callErr, "%s failed (%s)", op, reason.Reason())
	}

	ledgerStatus, statusErr := sm.invoker.ConsentStatus(ctx, c.ConsentID)
	if statusErr != nil {
		log.Warn().Err(statusErr).Str("id", c.ID).Msg("ledger status re-sync failed, keeping local status")
		return errors.Wrapf(callErr, "%s rejected by ledger and re-sync failed", op)
	}

	synced := Status(ledgerStatus)
	if synced != c.Status {
		prev := c.Status
		c.Status = synced
		c.Audit = append(c.Audit, StatusAudit{
			From:   prev,
			To:     synced,
			Reason: "re-synced from ledger after rejected " + op,
			At:     sm.clock.Now(),
		})
		if err := sm.store.SaveConsent(ctx, c); err != nil {
			return errors.Wrap(err, "failed to persist re-synced status")
		}
		log.Warn().
			Str("id", c.ID).
			Str("local", string(prev)).
			Str("ledger", string(synced)).
			Msg("local status re-synced from ledger")
	}
	return errors.Wrapf(callErr, "%s rejected, local status re-synced to %s", op, synced)
}

// unlockPolicySatisfied checks the approver quorum for the consent's
// unlock mode. Windowed and scheduled modes use the same quorum as
// one-shot: at least one approval from a party other than the requester;
// windowMinutes constrains when, not who.
func unlockPolicySatisfied(c *Consent) bool {
	for _, approver := range c.UnlockApprovedBy {
		if approver != c.UnlockRequestFrom && c.IsParticipant(approver) {
			return true
		}
	}
	return false
}

// canTransition is the lifecycle state table.
func canTransition(current, next Status) bool {
	switch current {
	case StatusLocked:
		return next == StatusPendingUnlock || next == StatusPaused || next == StatusWithdrawn
	case StatusPendingUnlock:
		return next == StatusUnlocked || next == StatusPaused || next == StatusWithdrawn
	case StatusUnlocked:
		return next == StatusPaused || next == StatusWithdrawn
	case StatusPaused:
		return next == StatusLocked || next == StatusWithdrawn
	case StatusWithdrawn:
		return false
	default:
		return false
	}
}
