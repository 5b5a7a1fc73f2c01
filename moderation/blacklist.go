package moderation

import (
	"github.com/dgraph-io/badger/v4"
)

const blacklistPrefix = "blacklist:"

// LoadBlacklist reads the censored-word list from BadgerDB. Words live in the
// keys under the blacklist prefix, so values are never fetched.
func LoadBlacklist(db *badger.DB) ([]string, error) {
	var words []string
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(blacklistPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			words = append(words, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return words, err
}

// AddBlacklistWord registers one censored word, for operator tooling.
func AddBlacklistWord(db *badger.DB, word string) error {
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(blacklistPrefix+word), nil)
	})
}
