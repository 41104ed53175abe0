package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	blobVersion = 1
	saltSize    = 16
	nonceSize   = 12
	keySize     = 32
	headerSize  = 1 + saltSize + nonceSize
)

// KDFParams are the Argon2id cost parameters used per payload.
type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDFParams matches DeriveMasterKey.
var DefaultKDFParams = KDFParams{Time: 1, Memory: 64 * 1024, Threads: 4}

// AESGCMCodec seals payloads with AES-256-GCM under a key derived from the
// password and a fresh random salt. The output layout is
//
//	version(1) | salt(16) | nonce(12) | ciphertext+tag
//
// so a payload is self-contained given the password.
type AESGCMCodec struct {
	params KDFParams
}

func NewAESGCMCodec() *AESGCMCodec {
	return &AESGCMCodec{params: DefaultKDFParams}
}

// NewAESGCMCodecWithParams allows cheaper KDF settings, mainly for tests.
func NewAESGCMCodecWithParams(p KDFParams) *AESGCMCodec {
	return &AESGCMCodec{params: p}
}

func (c *AESGCMCodec) deriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, c.params.Time, c.params.Memory, c.params.Threads, keySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (c *AESGCMCodec) Encrypt(plaintext, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, common.ErrEmptyPassword
	}

	salt := common.GenerateRandByteArray(saltSize)
	nonce := common.GenerateRandByteArray(nonceSize)

	key := c.deriveKey(password, salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}

	out := make([]byte, 0, headerSize+len(plaintext)+aesgcm.Overhead())
	out = append(out, blobVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aesgcm.Seal(out, nonce, plaintext, nil), nil
}

func (c *AESGCMCodec) Decrypt(ciphertext, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, common.ErrEmptyPassword
	}
	if len(ciphertext) < headerSize {
		return nil, fmt.Errorf("%w: payload too short", common.ErrDecryption)
	}
	if ciphertext[0] != blobVersion {
		return nil, fmt.Errorf("%w: unsupported payload version %d", common.ErrDecryption, ciphertext[0])
	}

	salt := ciphertext[1 : 1+saltSize]
	nonce := ciphertext[1+saltSize : headerSize]

	key := c.deriveKey(password, salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext[headerSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	return plaintext, nil
}
