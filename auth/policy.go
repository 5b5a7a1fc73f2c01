// Package auth decides whether an offered credential binds a connection to a
// username. The reference behavior accepts anything; hardening is opt-in.
package auth

import (
	"golang.org/x/crypto/ssh"

	"chat-shell/errors"
	"chat-shell/repositories"
)

// Policy is the pluggable credential check consulted during the handshake.
// A nil error accepts the offer and binds the connection to the username.
type Policy interface {
	AuthorizePublicKey(username string, key ssh.PublicKey) error
	AuthorizePassword(username, password string) error
}

// OpenPolicy accepts any offered credential, including empty usernames.
// This is the reference behavior: authentication only serves to pick the
// identity the connection binds to.
type OpenPolicy struct{}

func (OpenPolicy) AuthorizePublicKey(string, ssh.PublicKey) error { return nil }

func (OpenPolicy) AuthorizePassword(string, string) error { return nil }

// PasswordPolicy verifies passwords against the account store. Public-key
// offers are rejected so clients fall through to password authentication.
type PasswordPolicy struct {
	accounts repositories.IAccountStore
}

func NewPasswordPolicy(accounts repositories.IAccountStore) *PasswordPolicy {
	return &PasswordPolicy{accounts: accounts}
}

func (p *PasswordPolicy) AuthorizePublicKey(string, ssh.PublicKey) error {
	return errors.ErrPublicKeyRejected
}

func (p *PasswordPolicy) AuthorizePassword(username, password string) error {
	hash, err := p.accounts.PasswordHash(username)
	if err != nil {
		// Generic error to prevent username enumeration.
		return errors.ErrInvalidCredentials
	}

	match, err := ComparePassword(password, hash)
	if err != nil || !match {
		return errors.ErrInvalidCredentials
	}
	return nil
}
