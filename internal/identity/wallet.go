package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"
	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/TimzAjes16/echoID/internal/chain"
)

// hardenedOffset marks hardened child indices per BIP-32.
const hardenedOffset uint32 = 0x80000000

// walletDerivationPath is the standard EVM account path m/44'/60'/0'/0;
// the account index is appended as the final non-hardened component.
var walletDerivationPath = []uint32{
	44 | hardenedOffset,
	60 | hardenedOffset,
	0 | hardenedOffset,
	0,
}

// Account is a derived wallet account. PrivateKey is hex without prefix.
type Account struct {
	Address    string
	PrivateKey string
}

// CreateResult is the output of Create. The mnemonic appears here exactly
// once; the wallet service never persists it.
type CreateResult struct {
	Address    string
	Mnemonic   string
	PrivateKey string
}

// WalletService derives hierarchical-deterministic wallet keypairs:
// BIP-39 mnemonic, BIP-32 hardened path, secp256k1 keys, EVM address.
type WalletService struct{}

// NewWalletService creates a wallet service.
func NewWalletService() *WalletService {
	return &WalletService{}
}

// Create generates a fresh 12-word mnemonic and derives account 0. The
// mnemonic is the caller's responsibility to display and discard.
func (s *WalletService) Create(ctx context.Context) (*CreateResult, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return nil, errors.Wrap(ErrEntropyUnavailable, err.Error())
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode mnemonic")
	}

	account, err := s.DeriveAccount(ctx, mnemonic, 0)
	if err != nil {
		return nil, err
	}

	return &CreateResult{
		Address:    account.Address,
		Mnemonic:   mnemonic,
		PrivateKey: account.PrivateKey,
	}, nil
}

// ImportFromMnemonic validates the phrase and derives account 0.
func (s *WalletService) ImportFromMnemonic(ctx context.Context, phrase string) (*Account, error) {
	return s.DeriveAccount(ctx, phrase, 0)
}

// DeriveAccount derives the account at m/44'/60'/0'/0/index for the phrase.
// The same phrase and index always yield the same address.
func (s *WalletService) DeriveAccount(ctx context.Context, phrase string, index uint32) (*Account, error) {
	phrase = normalizeMnemonic(phrase)
	if err := validateMnemonic(phrase); err != nil {
		return nil, err
	}

	seed := bip39.NewSeed(phrase, "")

	key, chainCode, err := masterKeyFromSeed(seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive master key")
	}

	path := append(append([]uint32{}, walletDerivationPath...), index)
	for i, childIndex := range path {
		key, chainCode, err = deriveChildPrivateKey(key, chainCode, childIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive at depth %d (index %d)", i, childIndex)
		}
	}

	priv, _ := btcec.PrivKeyFromBytes(ser256(key))
	address, err := chain.AddressFromPublicKey(priv.PubKey().SerializeUncompressed())
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive address")
	}

	return &Account{
		Address:    address,
		PrivateKey: hex.EncodeToString(ser256(key)),
	}, nil
}

func normalizeMnemonic(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(phrase))), " ")
}

func validateMnemonic(phrase string) error {
	words := len(strings.Fields(phrase))
	if words != 12 && words != 24 {
		return errors.Wrapf(ErrInvalidMnemonic, "expected 12 or 24 words, got %d", words)
	}
	if !bip39.IsMnemonicValid(phrase) {
		return errors.Wrap(ErrInvalidMnemonic, "phrase failed word list or checksum validation")
	}
	return nil
}

// masterKeyFromSeed computes the BIP-32 root: HMAC-SHA512 keyed with
// "Bitcoin seed" over the BIP-39 seed, split into key and chain code.
func masterKeyFromSeed(seed []byte) (*big.Int, []byte, error) {
	mac := hmac.New(sha512.New, []byte("Bitcoin seed"))
	mac.Write(seed)
	I := mac.Sum(nil)

	IL := new(big.Int).SetBytes(I[:32])
	IR := I[32:]

	if IL.Sign() == 0 || IL.Cmp(btcec.S256().N) >= 0 {
		return nil, nil, errors.New("invalid master key (IL >= n or IL = 0)")
	}
	return IL, IR, nil
}

// deriveChildPrivateKey performs one CKDpriv step. Hardened indices commit
// to the parent private key, non-hardened to the parent public key.
func deriveChildPrivateKey(key *big.Int, chainCode []byte, index uint32) (*big.Int, []byte, error) {
	if len(chainCode) != 32 {
		return nil, nil, errors.New("invalid chain code length: must be 32 bytes")
	}

	mac := hmac.New(sha512.New, chainCode)
	if index >= hardenedOffset {
		mac.Write([]byte{0x00})
		mac.Write(ser256(key))
	} else {
		priv, _ := btcec.PrivKeyFromBytes(ser256(key))
		mac.Write(priv.PubKey().SerializeCompressed())
	}

	indexBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(indexBytes, index)
	mac.Write(indexBytes)

	I := mac.Sum(nil)
	IL := new(big.Int).SetBytes(I[:32])
	IR := I[32:]

	curveOrder := btcec.S256().N
	if IL.Cmp(curveOrder) >= 0 {
		return nil, nil, errors.New("invalid derived key (IL >= n)")
	}

	child := new(big.Int).Add(IL, key)
	child.Mod(child, curveOrder)
	if child.Sign() == 0 {
		return nil, nil, errors.New("invalid derived key (zero)")
	}

	return child, IR, nil
}

// ser256 serializes a key integer as 32 big-endian bytes, zero padded.
func ser256(k *big.Int) []byte {
	out := make([]byte, 32)
	return k.FillBytes(out)
}
