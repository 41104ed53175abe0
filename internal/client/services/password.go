package services

import (
	"context"
	"crypto/subtle"
	"database/sql"

	"github.com/dmitrijs2005/phototimeline/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/cryptox"
	"github.com/dmitrijs2005/phototimeline/internal/dbx"
)

// PasswordService keeps a verifier of the photo encryption password so a
// typed password can be checked before it is used. The password itself is
// never stored.
//
// Changing the password while a save is running is the caller's
// responsibility: serialize Set against JournalService calls that take a
// password, otherwise photos of one entry may end up under two passwords.
type PasswordService struct {
	db *sql.DB
}

func NewPasswordService(db *sql.DB) *PasswordService {
	return &PasswordService{db: db}
}

func (s *PasswordService) repo(tx dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(tx)
}

// Set replaces the stored verifier with one for password.
func (s *PasswordService) Set(ctx context.Context, password []byte) error {
	if len(password) == 0 {
		return common.ErrEmptyPassword
	}
	salt := common.GenerateRandByteArray(16)
	key := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)
	verifier := cryptox.MakeVerifier(key)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := s.repo(tx)
		if err := r.Set(ctx, metadata.KeySalt, salt); err != nil {
			return err
		}
		return r.Set(ctx, metadata.KeyVerifier, verifier)
	})
	return common.NewStoreError("set password", err)
}

// IsSet reports whether a password was configured.
func (s *PasswordService) IsSet(ctx context.Context) (bool, error) {
	v, err := s.repo(s.db).Get(ctx, metadata.KeyVerifier)
	if err != nil {
		return false, common.NewStoreError("get password", err)
	}
	return v != nil, nil
}

// Verify checks password against the stored verifier. It fails with
// common.ErrEmptyPassword when none is configured and
// common.ErrWrongPassword on mismatch.
func (s *PasswordService) Verify(ctx context.Context, password []byte) error {
	r := s.repo(s.db)
	salt, err := r.Get(ctx, metadata.KeySalt)
	if err != nil {
		return common.NewStoreError("get password", err)
	}
	verifier, err := r.Get(ctx, metadata.KeyVerifier)
	if err != nil {
		return common.NewStoreError("get password", err)
	}
	if salt == nil || verifier == nil {
		return common.ErrEmptyPassword
	}
	if len(password) == 0 {
		return common.ErrWrongPassword
	}

	key := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)

	if subtle.ConstantTimeCompare(verifier, cryptox.MakeVerifier(key)) == 0 {
		return common.ErrWrongPassword
	}
	return nil
}
