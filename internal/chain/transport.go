package chain

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// WalletBackedTransport implements Transport on top of a wallet-signing
// collaborator and a ledger reader. The wallet builds and dispatches
// transactions; the reader resolves the contract-assigned consent id the
// wallet cannot return, so every successful mint receipt carries a real id.
type WalletBackedTransport struct {
	wallet   WalletTransport
	ledger   LedgerReader
	contract string
	chainID  *big.Int
}

// NewWalletBackedTransport wires a wallet transport and a ledger reader
// against the consent contract address.
func NewWalletBackedTransport(wallet WalletTransport, ledger LedgerReader, contract string, chainID *big.Int) *WalletBackedTransport {
	return &WalletBackedTransport{
		wallet:   wallet,
		ledger:   ledger,
		contract: contract,
		chainID:  chainID,
	}
}

// CreateConsent submits the payable mint transaction and resolves the
// consent id the contract assigned. Without a ledger reader the call is
// rejected before anything is dispatched: a mint whose id cannot be read
// back would be unusable for every later lifecycle call.
func (t *WalletBackedTransport) CreateConsent(ctx context.Context, p *MintParams) (*MintReceipt, error) {
	if t.contract == "" {
		return nil, errors.Wrap(ErrTransportUnavailable, "consent contract address is not configured")
	}
	if t.ledger == nil {
		return nil, errors.Wrap(ErrTransportUnavailable, "no ledger read path to resolve the minted consent id")
	}

	tx, err := BuildMintCall(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build createConsent call")
	}

	txHash, err := t.wallet.SendTransaction(ctx, &TxDescriptor{
		To:      t.contract,
		Value:   p.FeeWei,
		Data:    tx.Data,
		ChainID: t.chainID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "createConsent dispatch failed")
	}

	consentID, err := t.ledger.ConsentIDByTx(ctx, txHash)
	if err != nil {
		return nil, errors.Wrapf(err, "createConsent %s submitted but consent id resolution failed", txHash)
	}
	if consentID == 0 {
		return nil, errors.Errorf("ledger returned no consent id for tx %s", txHash)
	}

	log.Debug().Str("tx_hash", txHash).Uint64("consent_id", consentID).Msg("createConsent transaction confirmed")
	return &MintReceipt{ConsentID: consentID, TxHash: txHash}, nil
}

func (t *WalletBackedTransport) RequestUnlock(ctx context.Context, consentID uint64) (string, error) {
	return t.lifecycleCall(ctx, "requestUnlock", consentID)
}

func (t *WalletBackedTransport) ApproveUnlock(ctx context.Context, consentID uint64) (string, error) {
	return t.lifecycleCall(ctx, "approveUnlock", consentID)
}

func (t *WalletBackedTransport) WithdrawConsent(ctx context.Context, consentID uint64) (string, error) {
	return t.lifecycleCall(ctx, "withdrawConsent", consentID)
}

func (t *WalletBackedTransport) PauseConsent(ctx context.Context, consentID uint64) (string, error) {
	return t.lifecycleCall(ctx, "pauseConsent", consentID)
}

func (t *WalletBackedTransport) ResumeConsent(ctx context.Context, consentID uint64) (string, error) {
	return t.lifecycleCall(ctx, "resumeConsent", consentID)
}

// ConsentStatus reads the ledger's status through the ledger reader.
func (t *WalletBackedTransport) ConsentStatus(ctx context.Context, consentID uint64) (string, error) {
	if t.ledger == nil {
		return "", errors.Wrap(ErrTransportUnavailable, "no ledger read path configured")
	}
	return t.ledger.ConsentStatus(ctx, consentID)
}

func (t *WalletBackedTransport) lifecycleCall(ctx context.Context, method string, consentID uint64) (string, error) {
	if t.contract == "" {
		return "", errors.Wrapf(ErrTransportUnavailable, "%s: consent contract address is not configured", method)
	}

	tx, err := BuildLifecycleCall(method, consentID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to build %s call", method)
	}

	txHash, err := t.wallet.SendTransaction(ctx, &TxDescriptor{
		To:      t.contract,
		Data:    tx.Data,
		ChainID: t.chainID,
	})
	if err != nil {
		return "", errors.Wrapf(err, "%s dispatch failed", method)
	}

	log.Debug().Str("tx_hash", txHash).Uint64("consent_id", consentID).Str("method", method).Msg("lifecycle transaction submitted")
	return txHash, nil
}

// UnavailableTransport is the Transport used when no wallet is connected.
// Every call fails with ErrTransportUnavailable so the execution router can
// apply its mint fallback and lifecycle calls surface honestly.
type UnavailableTransport struct {
	reason string
}

// NewUnavailableTransport creates a transport that rejects every call with
// the given reason.
func NewUnavailableTransport(reason string) *UnavailableTransport {
	return &UnavailableTransport{reason: reason}
}

func (t *UnavailableTransport) CreateConsent(ctx context.Context, p *MintParams) (*MintReceipt, error) {
	return nil, errors.Wrap(ErrTransportUnavailable, t.reason)
}

func (t *UnavailableTransport) RequestUnlock(ctx context.Context, consentID uint64) (string, error) {
	return "", errors.Wrap(ErrTransportUnavailable, t.reason)
}

func (t *UnavailableTransport) ApproveUnlock(ctx context.Context, consentID uint64) (string, error) {
	return "", errors.Wrap(ErrTransportUnavailable, t.reason)
}

func (t *UnavailableTransport) WithdrawConsent(ctx context.Context, consentID uint64) (string, error) {
	return "", errors.Wrap(ErrTransportUnavailable, t.reason)
}

func (t *UnavailableTransport) PauseConsent(ctx context.Context, consentID uint64) (string, error) {
	return "", errors.Wrap(ErrTransportUnavailable, t.reason)
}

func (t *UnavailableTransport) ResumeConsent(ctx context.Context, consentID uint64) (string, error) {
	return "", errors.Wrap(ErrTransportUnavailable, t.reason)
}

func (t *UnavailableTransport) ConsentStatus(ctx context.Context, consentID uint64) (string, error) {
	return "", errors.Wrap(ErrTransportUnavailable, t.reason)
}
