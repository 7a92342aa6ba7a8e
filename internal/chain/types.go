package chain

import (
	"context"
	"math/big"
)

// MintParams is the full argument set of the on-chain createConsent call.
// All hash fields are 0x-prefixed 32-byte digests.
type MintParams struct {
	ParticipantA  string
	ParticipantB  string
	VoiceHash     string
	FaceHash      string
	DeviceHash    string
	GeoHash       string
	UnlockMode    string
	WindowMinutes uint64
	ChainID       *big.Int
	FeeWei        *big.Int
	Treasury      string
}

// MintReceipt is the ledger's answer to a successful createConsent call.
type MintReceipt struct {
	ConsentID uint64
	TxHash    string
}

// Transport is the opaque on-chain ledger collaborator. Implementations
// submit signed transactions and return their hashes, or fail with an
// error classifiable by ClassifyError.
type Transport interface {
	CreateConsent(ctx context.Context, p *MintParams) (*MintReceipt, error)
	RequestUnlock(ctx context.Context, consentID uint64) (string, error)
	ApproveUnlock(ctx context.Context, consentID uint64) (string, error)
	WithdrawConsent(ctx context.Context, consentID uint64) (string, error)
	PauseConsent(ctx context.Context, consentID uint64) (string, error)
	ResumeConsent(ctx context.Context, consentID uint64) (string, error)

	// ConsentStatus reads the ledger's current status for a consent, used
	// to re-sync local state after a rejected transition.
	ConsentStatus(ctx context.Context, consentID uint64) (string, error)
}

// LedgerReader resolves ledger-assigned identifiers and state the
// wallet-signing transport cannot read back itself, typically against an
// RPC node.
type LedgerReader interface {
	// ConsentIDByTx returns the consent id the contract assigned in the
	// given mint transaction.
	ConsentIDByTx(ctx context.Context, txHash string) (uint64, error)

	// ConsentStatus returns the ledger's current status for a consent.
	ConsentStatus(ctx context.Context, consentID uint64) (string, error)
}

// WalletSession is the result of connecting the wallet-signing transport.
type WalletSession struct {
	Accounts []string
	ChainID  *big.Int
}

// TxDescriptor describes a transaction for the wallet-signing transport.
type TxDescriptor struct {
	To      string
	Value   *big.Int
	Data    []byte
	ChainID *big.Int
}

// WalletTransport is the black-box wallet-signing collaborator. It accepts
// a transaction descriptor and returns a transaction hash or rejects.
type WalletTransport interface {
	Connect(ctx context.Context, supportedChainIDs []*big.Int) (*WalletSession, error)
	SendTransaction(ctx context.Context, tx *TxDescriptor) (string, error)
	SignTypedData(ctx context.Context, domain, types, message []byte) (string, error)
	Disconnect(ctx context.Context) error
}
