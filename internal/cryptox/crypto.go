// Package cryptox implements the photo payload codec and the key helpers
// used by the password verifier.
//
// A Codec never holds a password: every Encrypt/Decrypt call receives it
// explicitly, so the key material is scoped to the caller's operation.
package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"golang.org/x/crypto/argon2"
)

// Codec encrypts and decrypts opaque byte payloads under a password.
//
// Implementations return errors matching common.ErrEmptyPassword when the
// password is empty, common.ErrEncryption when sealing fails, and
// common.ErrDecryption on a wrong password or corrupt input.
type Codec interface {
	Encrypt(plaintext, password []byte) ([]byte, error)
	Decrypt(ciphertext, password []byte) ([]byte, error)
}

// Kind names a Codec implementation in configuration.
type Kind string

const (
	KindAESGCM Kind = "aes-gcm"
	KindAge    Kind = "age"
)

// Options tune codec construction. Zero values select the defaults.
type Options struct {
	// AgeWorkFactor is the scrypt work factor (log2 N) for the age codec.
	AgeWorkFactor int
}

// New returns the codec registered under kind.
func New(kind Kind, opts Options) (Codec, error) {
	switch kind {
	case "", KindAESGCM:
		return NewAESGCMCodec(), nil
	case KindAge:
		return NewAgeCodec(opts.AgeWorkFactor), nil
	default:
		return nil, fmt.Errorf("unknown codec kind %q", kind)
	}
}

// DeriveMasterKey stretches password with Argon2id into a 32-byte key.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier returns a digest of the derived key that can be stored to
// check a password later without keeping the password itself.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// EncodeField turns ciphertext into the string form stored in a document.
func EncodeField(ciphertext []byte) string {
	return base64.StdEncoding.EncodeToString(ciphertext)
}

// DecodeField reverses EncodeField. Malformed input is reported as a
// decryption failure since the payload can never be opened.
func DecodeField(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64 payload: %v", common.ErrDecryption, err)
	}
	return b, nil
}
