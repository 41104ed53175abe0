package cryptox

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
	"github.com/dmitrijs2005/phototimeline/internal/common"
)

// DefaultAgeWorkFactor is age's own default scrypt work factor.
const DefaultAgeWorkFactor = 18

// AgeCodec encrypts payloads as age files with a scrypt passphrase stanza.
type AgeCodec struct {
	workFactor int
}

func NewAgeCodec(workFactor int) *AgeCodec {
	if workFactor <= 0 {
		workFactor = DefaultAgeWorkFactor
	}
	return &AgeCodec{workFactor: workFactor}
}

func (c *AgeCodec) Encrypt(plaintext, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, common.ErrEmptyPassword
	}

	recipient, err := age.NewScryptRecipient(string(password))
	if err != nil {
		return nil, fmt.Errorf("%w: creating scrypt recipient: %v", common.ErrEncryption, err)
	}
	recipient.SetWorkFactor(c.workFactor)

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: creating encrypted writer: %v", common.ErrEncryption, err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("%w: encrypting data: %v", common.ErrEncryption, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalizing encryption: %v", common.ErrEncryption, err)
	}
	return buf.Bytes(), nil
}

func (c *AgeCodec) Decrypt(ciphertext, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, common.ErrEmptyPassword
	}

	identity, err := age.NewScryptIdentity(string(password))
	if err != nil {
		return nil, fmt.Errorf("%w: creating scrypt identity: %v", common.ErrDecryption, err)
	}
	if c.workFactor > DefaultAgeWorkFactor {
		identity.SetMaxWorkFactor(c.workFactor)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading plaintext: %v", common.ErrDecryption, err)
	}
	return plaintext, nil
}
