package transport

import (
	"crypto/rsa"
	"errors"
)

// CodingEWP is the content coding used by EWP request and response
// encryption.
const CodingEWP = "ewp-rsa-aes128gcm"

// CodecMissingReason is the skip reason of combinations that need a codec
// when none is configured.
const CodecMissingReason = "ewp-rsa-aes128gcm codec is not configured in this validator."

// ErrNoCodec is returned when an encrypted body has to be processed without
// a Codec.
var ErrNoCodec = errors.New(CodecMissingReason)

// Codec implements the ewp-rsa-aes128gcm content coding.
type Codec interface {
	// EncryptRequest encrypts body for the recipient key.
	EncryptRequest(body []byte, recipient *rsa.PublicKey) ([]byte, error)
	// DecryptResponse decrypts a body that was encrypted for us.
	DecryptResponse(body []byte) ([]byte, error)
	// PublicKey is announced in Accept-Response-Encryption-Key.
	PublicKey() *rsa.PublicKey
}
