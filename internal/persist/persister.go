// Package persist drains dirty conversations out of the in-memory store and
// writes snapshots to durable storage in the background.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskflowhq/supportd/internal/conversation"
)

// Snapshotter exposes the store operations the persister needs.
type Snapshotter interface {
	DrainDirty() []string
	GetConversation(id string) (conversation.Conversation, bool)
}

// SnapshotWriter writes conversation snapshots to durable storage.
type SnapshotWriter interface {
	SaveConversationSnapshot(conv conversation.Conversation) error
}

// Persister polls the store for dirty conversations and snapshots them.
type Persister struct {
	store  Snapshotter
	writer SnapshotWriter
	poll   time.Duration
	logger *slog.Logger
}

// New creates a Persister with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func New(store Snapshotter, writer SnapshotWriter, pollInterval time.Duration) *Persister {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Persister{
		store:  store,
		writer: writer,
		poll:   pollInterval,
		logger: slog.Default(),
	}
}

// Run polls for dirty conversations until ctx is cancelled, then makes one
// final pass so nothing marked dirty during shutdown is lost.
func (p *Persister) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.flush()
			return
		}

		wrote, err := p.RunOnce()
		if err != nil {
			p.logger.Error("snapshot iteration failed", "error", err)
		}
		if wrote {
			continue
		}

		select {
		case <-ctx.Done():
			p.flush()
			return
		case <-time.After(p.poll):
		}
	}
}

// RunOnce drains and snapshots the currently dirty conversations.
// Returns true if anything was written.
func (p *Persister) RunOnce() (bool, error) {
	ids := p.store.DrainDirty()
	if len(ids) == 0 {
		return false, nil
	}

	for _, id := range ids {
		conv, ok := p.store.GetConversation(id)
		if !ok {
			p.logger.Warn("dirty conversation vanished before snapshot", "conversation", id)
			continue
		}
		if err := p.writer.SaveConversationSnapshot(conv); err != nil {
			return true, fmt.Errorf("snapshotting conversation %s: %w", id, err)
		}
	}
	return true, nil
}

func (p *Persister) flush() {
	if _, err := p.RunOnce(); err != nil {
		p.logger.Error("final snapshot pass failed", "error", err)
	}
}
