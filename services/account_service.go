package services

import (
	"fmt"

	"chat-shell/auth"
	"chat-shell/repositories"
)

type IAccountService interface {
	Register(username, password string) error
}

// AccountService creates password accounts for the hardened auth mode. It is
// operator-facing (cmd/viewer, tests); the chat server itself never registers
// accounts.
type AccountService struct {
	accounts repositories.IAccountStore
}

func NewAccountService(accounts repositories.IAccountStore) *AccountService {
	return &AccountService{accounts: accounts}
}

func (s *AccountService) Register(username, password string) error {
	req := auth.RegistrationRequest{
		Username: username,
		Password: password,
	}

	// Validate before any expensive cryptographic work.
	if err := auth.ValidateRegistration(req); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing failed: %w", err)
	}

	// Propagates ErrAccountExists if the username is taken.
	return s.accounts.Create(username, hash)
}
