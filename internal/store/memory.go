package store

import (
	"context"
	"sort"
	"sync"

	"github.com/JonMunkholm/gwasupload/internal/core"
)

// Memory keeps submissions in process memory.
type Memory struct {
	mu   sync.RWMutex
	byID map[string]core.Submission
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]core.Submission)}
}

func (m *Memory) SaveSubmission(ctx context.Context, sub core.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.byID[sub.ID] = sub
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetSubmission(_ context.Context, id string) (core.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.byID[id]
	if !ok {
		return core.Submission{}, core.ErrSubmissionMissing
	}
	return sub, nil
}

func (m *Memory) ListSubmissions(_ context.Context, limit int) ([]core.Submission, error) {
	m.mu.RLock()
	subs := make([]core.Submission, 0, len(m.byID))
	for _, sub := range m.byID {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID > subs[j].ID
		}
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}

func (m *Memory) Close() error { return nil }
