// Package search maintains a strictly in-memory full-text index over room
// transcripts, behind the /search command. Nothing here touches disk, so the
// transcript itself remains the only history the process keeps.
package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/blugelabs/bluge"

	"chat-shell/domain"
)

// Result is one transcript line matched by a query.
type Result struct {
	Sender string
	Text   string
}

// TranscriptIndex indexes every recorded transcript entry, tagged with its
// room, and answers per-room term queries.
type TranscriptIndex struct {
	mu     sync.Mutex
	writer *bluge.Writer
}

func NewTranscriptIndex() (*TranscriptIndex, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open index writer: %w", err)
	}
	return &TranscriptIndex{writer: writer}, nil
}

func (i *TranscriptIndex) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.writer.Close()
}

// Add indexes one transcript entry under its room.
func (i *TranscriptIndex) Add(room string, entry domain.TranscriptEntry) error {
	doc := bluge.NewDocument(entry.ID.String()).
		AddField(bluge.NewKeywordField("room", room)).
		AddField(bluge.NewKeywordField("sender", entry.Sender).StoreValue()).
		AddField(bluge.NewTextField("text", entry.Text).StoreValue())

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.writer.Update(doc.ID(), doc)
}

// Search returns up to limit transcript lines of the room matching the term.
func (i *TranscriptIndex) Search(ctx context.Context, room, term string, limit int) ([]Result, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(room).SetField("room")).
		AddMust(bluge.NewMatchQuery(term).SetField("text"))

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var results []Result
	match, err := iter.Next()
	for err == nil && match != nil {
		var res Result
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "sender":
				res.Sender = string(value)
			case "text":
				res.Text = string(value)
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		results = append(results, res)
		match, err = iter.Next()
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}
