package chain

import (
	"strings"

	"github.com/pkg/errors"
)

// FailureReason is a coarse transport failure classification, distinct
// enough to support the troubleshooting categories users actually hit.
type FailureReason string

const (
	ReasonInsufficientFunds FailureReason = "insufficient-funds"
	ReasonChainMismatch     FailureReason = "chain-mismatch"
	ReasonContractMissing   FailureReason = "contract-missing"
	ReasonStateDiverged     FailureReason = "state-diverged"
	ReasonUnknown           FailureReason = "unknown"
)

// ErrTransportUnavailable is returned by transports that have no live
// backend wired, e.g. when no wallet app is connected.
var ErrTransportUnavailable = errors.New("chain transport unavailable")

// Reason returns a short user-presentable explanation.
func (r FailureReason) Reason() string {
	switch r {
	case ReasonInsufficientFunds:
		return "the wallet does not hold enough funds for the protocol fee and gas"
	case ReasonChainMismatch:
		return "the wallet is connected to a different chain than the consent contract"
	case ReasonContractMissing:
		return "no consent contract is deployed at the configured address"
	case ReasonStateDiverged:
		return "the ledger rejected the transition because its state has moved on"
	default:
		return "the transaction failed"
	}
}

// ClassifyError maps a transport error onto a FailureReason by inspecting
// the error text, since wallet transports do not share a typed error model.
func ClassifyError(err error) FailureReason {
	if err == nil {
		return ReasonUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds") || strings.Contains(msg, "insufficient balance"):
		return ReasonInsufficientFunds
	case strings.Contains(msg, "chain id") || strings.Contains(msg, "chainid") || strings.Contains(msg, "wrong network") || strings.Contains(msg, "network mismatch"):
		return ReasonChainMismatch
	case strings.Contains(msg, "no contract code") || strings.Contains(msg, "not deployed") || strings.Contains(msg, "contract not found"):
		return ReasonContractMissing
	case strings.Contains(msg, "already withdrawn") || strings.Contains(msg, "already unlocked") || strings.Contains(msg, "invalid state") || strings.Contains(msg, "wrong status"):
		return ReasonStateDiverged
	default:
		return ReasonUnknown
	}
}
