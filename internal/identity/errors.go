package identity

import "github.com/pkg/errors"

var (
	// ErrKeyNotFound is returned when signing is requested for a label that
	// was never generated.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidMnemonic is returned for phrases with a wrong word count or
	// words outside the BIP-39 word list.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// ErrEntropyUnavailable is returned when the platform cannot provide a
	// cryptographically secure random source. Key generation refuses to
	// proceed rather than flagging weak material.
	ErrEntropyUnavailable = errors.New("secure random source unavailable")

	// ErrStorage wraps underlying key-store failures. Writes are atomic:
	// a failed save never leaves partial key material behind.
	ErrStorage = errors.New("key storage failure")
)
