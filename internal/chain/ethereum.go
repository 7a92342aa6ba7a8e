package chain

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// AddressFromPublicKey derives the EVM address for a secp256k1 public key:
// the last 20 bytes of Keccak256(uncompressed pubkey without the 0x04 tag).
func AddressFromPublicKey(pubKey []byte) (string, error) {
	if len(pubKey) == 0 {
		return "", errors.New("public key is required")
	}
	var uncompressed64 []byte
	switch {
	case len(pubKey) == 65 && pubKey[0] == 0x04:
		uncompressed64 = pubKey[1:]
	case len(pubKey) == 33 && (pubKey[0] == 0x02 || pubKey[0] == 0x03):
		key, err := btcec.ParsePubKey(pubKey)
		if err != nil {
			return "", errors.Wrap(err, "failed to parse compressed secp256k1 pubkey")
		}
		u := key.SerializeUncompressed() // 65 bytes, 0x04 | X | Y
		uncompressed64 = u[1:]
	default:
		return "", errors.Errorf("unsupported public key format: len=%d", len(pubKey))
	}
	hash := crypto.Keccak256(uncompressed64)
	return fmt.Sprintf("0x%s", hex.EncodeToString(hash[12:])), nil
}

// Transaction is a built transaction payload ready for the wallet-signing
// transport, plus its Keccak hash.
type Transaction struct {
	Raw  string
	Data []byte
	Hash string
}

// BuildMintCall encodes the createConsent call payload. The selector is the
// first four bytes of the Keccak digest of the method signature; arguments
// travel RLP-encoded behind it.
func BuildMintCall(p *MintParams) (*Transaction, error) {
	if p == nil {
		return nil, errors.New("mint params are nil")
	}
	if p.FeeWei == nil {
		return nil, errors.New("feeWei is required")
	}

	args := []interface{}{
		p.ParticipantB,
		p.VoiceHash,
		p.FaceHash,
		p.DeviceHash,
		p.GeoHash,
		p.UnlockMode,
		p.WindowMinutes,
		p.Treasury,
	}
	return buildCall("createConsent(address,bytes32,bytes32,bytes32,bytes32,uint8,uint32,address)", args)
}

// BuildLifecycleCall encodes a single-argument lifecycle call
// (requestUnlock, approveUnlock, withdrawConsent, pauseConsent,
// resumeConsent) for the given consent id.
func BuildLifecycleCall(method string, consentID uint64) (*Transaction, error) {
	if method == "" {
		return nil, errors.New("method is required")
	}
	return buildCall(fmt.Sprintf("%s(uint256)", method), []interface{}{consentID})
}

func buildCall(signature string, args []interface{}) (*Transaction, error) {
	selector := crypto.Keccak256([]byte(signature))[:4]

	encoded, err := rlp.EncodeToBytes(args)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to RLP encode %s payload", signature)
	}

	data := make([]byte, 0, len(selector)+len(encoded))
	data = append(data, selector...)
	data = append(data, encoded...)

	hash := crypto.Keccak256Hash(data).Hex()
	return &Transaction{
		Raw:  fmt.Sprintf("0x%s", hex.EncodeToString(data)),
		Data: data,
		Hash: hash,
	}, nil
}
