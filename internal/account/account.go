// Package account handles the wizard handoff credential: when an intake
// session completes, the new tenant gets an owner login with a one-time
// temporary password.  No login flow lives here; the web layer owns
// authentication.
package account

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// Ambiguous characters (0/O, 1/l/I) are excluded so the password survives
// being read over the phone.
const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"

const passwordLength = 10

// CreateOwner stores an owner credential for a tenant and returns the
// plaintext temporary password exactly once; only the bcrypt hash is
// persisted.
func CreateOwner(ctx context.Context, db *sqlx.DB, tenantID uint64, email string) (string, error) {
	plain, err := TemporaryPassword()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash temporary password: %w", err)
	}

	const q = `
        INSERT INTO owner_credential (tenant_id, email, password_hash, must_change)
        VALUES (?, ?, ?, TRUE)`
	if _, err := db.ExecContext(ctx, q, tenantID, email, string(hash)); err != nil {
		return "", fmt.Errorf("store owner credential: %w", err)
	}
	return plain, nil
}

// TemporaryPassword draws passwordLength characters from the safe
// alphabet plus a trailing symbol.
func TemporaryPassword() (string, error) {
	buf := make([]byte, passwordLength)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf) + "!", nil
}
