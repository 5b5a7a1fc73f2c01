package auth

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	chaterrors "chat-shell/errors"
	"chat-shell/repositories"
)

func TestHashAndComparePassword(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("Sup3r-Secret-Pass!")
	req.NoError(err)
	req.Contains(hash, "$argon2id$")

	match, err := ComparePassword("Sup3r-Secret-Pass!", hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong-password", hash)
	req.NoError(err)
	req.False(match)

	_, err = ComparePassword("anything", "not-a-hash")
	req.Error(err)
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	req := require.New(t)

	first, err := HashPassword("Sup3r-Secret-Pass!")
	req.NoError(err)
	second, err := HashPassword("Sup3r-Secret-Pass!")
	req.NoError(err)
	req.NotEqual(first, second)
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		expected error
	}{
		{
			name:     "valid",
			username: "alice",
			password: "Sup3r-Secret-Pass!",
			expected: nil,
		},
		{
			name:     "empty username",
			username: "",
			password: "Sup3r-Secret-Pass!",
			expected: chaterrors.ErrInvalidUsername,
		},
		{
			name:     "username with spaces",
			username: "al ice",
			password: "Sup3r-Secret-Pass!",
			expected: chaterrors.ErrInvalidUsername,
		},
		{
			name:     "too short password",
			username: "alice",
			password: "Ab1!",
			expected: chaterrors.ErrInvalidPassword,
		},
		{
			name:     "long but not complex",
			username: "alice",
			password: "alllowercasepassword",
			expected: chaterrors.ErrInvalidPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistration(RegistrationRequest{Username: tt.username, Password: tt.password})
			if tt.expected == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestOpenPolicy_AcceptsAnything(t *testing.T) {
	req := require.New(t)
	policy := OpenPolicy{}

	req.NoError(policy.AuthorizePublicKey("alice", nil))
	req.NoError(policy.AuthorizePassword("alice", ""))
	req.NoError(policy.AuthorizePassword("", ""))
}

func TestPasswordPolicy(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	accounts := repositories.NewAccountStore(db)
	hash, err := HashPassword("Sup3r-Secret-Pass!")
	req.NoError(err)
	req.NoError(accounts.Create("alice", hash))

	// Duplicate registration is refused.
	req.ErrorIs(accounts.Create("alice", hash), chaterrors.ErrAccountExists)

	policy := NewPasswordPolicy(accounts)

	req.NoError(policy.AuthorizePassword("alice", "Sup3r-Secret-Pass!"))
	req.ErrorIs(policy.AuthorizePassword("alice", "nope"), chaterrors.ErrInvalidCredentials)
	// Unknown usernames get the same generic error.
	req.ErrorIs(policy.AuthorizePassword("mallory", "Sup3r-Secret-Pass!"), chaterrors.ErrInvalidCredentials)
	// Public keys are rejected so clients fall through to passwords.
	req.ErrorIs(policy.AuthorizePublicKey("alice", nil), chaterrors.ErrPublicKeyRejected)
}
