package search

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-shell/domain"
)

func entry(sender, text string) domain.TranscriptEntry {
	return domain.TranscriptEntry{
		ID:        uuid.New(),
		Sender:    sender,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

func TestTranscriptIndex_SearchScopedByRoom(t *testing.T) {
	req := require.New(t)
	index, err := NewTranscriptIndex()
	req.NoError(err)
	defer index.Close()

	ctx := context.Background()

	req.NoError(index.Add("lobby", entry("alice", "the badger is back")))
	req.NoError(index.Add("lobby", entry("bob", "nothing to report")))
	req.NoError(index.Add("den", entry("carol", "badger spotted here too")))

	results, err := index.Search(ctx, "lobby", "badger", 10)
	req.NoError(err)
	req.Len(results, 1)
	req.Equal("alice", results[0].Sender)
	req.Equal("the badger is back", results[0].Text)

	results, err = index.Search(ctx, "den", "badger", 10)
	req.NoError(err)
	req.Len(results, 1)
	req.Equal("carol", results[0].Sender)

	results, err = index.Search(ctx, "lobby", "mongoose", 10)
	req.NoError(err)
	req.Empty(results)
}

func TestTranscriptIndex_LimitsResults(t *testing.T) {
	req := require.New(t)
	index, err := NewTranscriptIndex()
	req.NoError(err)
	defer index.Close()

	for i := 0; i < 25; i++ {
		req.NoError(index.Add("lobby", entry("alice", "badger again")))
	}

	results, err := index.Search(context.Background(), "lobby", "badger", 10)
	req.NoError(err)
	req.Len(results, 10)
}
