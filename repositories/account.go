package repositories

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	chaterrors "chat-shell/errors"
)

const accountPrefix = "account:"

type IAccountStore interface {
	Create(username, passwordHash string) error
	PasswordHash(username string) (string, error)
	Usernames() ([]string, error)
}

// AccountStore persists password accounts in BadgerDB, keyed by username.
// Only the encoded hash is stored; presence state stays in memory.
type AccountStore struct {
	db *badger.DB
}

func NewAccountStore(db *badger.DB) *AccountStore {
	return &AccountStore{db: db}
}

// Create registers a new account row. The username must not be taken.
func (s *AccountStore) Create(username, passwordHash string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(accountPrefix + username)
		if _, err := txn.Get(key); err == nil {
			return chaterrors.ErrAccountExists
		}
		return txn.Set(key, []byte(passwordHash))
	})
}

// PasswordHash returns the stored encoded hash for the username.
func (s *AccountStore) PasswordHash(username string) (string, error) {
	var hash string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(accountPrefix + username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			hash = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", chaterrors.ErrUnknownAccount
	}
	if err != nil {
		return "", fmt.Errorf("account lookup failed: %w", err)
	}
	return hash, nil
}

// Usernames lists every registered account, for operator tooling.
func (s *AccountStore) Usernames() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(accountPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return names, err
}
