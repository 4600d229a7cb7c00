package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/JonMunkholm/gwasupload/internal/core"
)

var (
	submissionsBucket = []byte("submissions")
	// createdBucket indexes submission IDs by creation time so listing can
	// walk backwards from the newest.
	createdBucket = []byte("submissions_by_created")
)

// Bolt is a bbolt-backed submission store. Submissions are stored as JSON
// under their ID.
type Bolt struct{ db *bbolt.DB }

// OpenBolt opens (or creates) the database file at path and ensures its
// buckets. timeout bounds the wait for the file lock held by another process.
func OpenBolt(path string, timeout time.Duration) (*Bolt, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{submissionsBucket, createdBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt buckets: %w", err)
	}
	return &Bolt{db: db}, nil
}

func createdKey(sub core.Submission) []byte {
	key := make([]byte, 8, 8+len(sub.ID))
	binary.BigEndian.PutUint64(key, uint64(sub.CreatedAt.UnixNano()))
	return append(key, sub.ID...)
}

func (b *Bolt) SaveSubmission(ctx context.Context, sub core.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		subs := tx.Bucket(submissionsBucket)
		created := tx.Bucket(createdBucket)

		if old := subs.Get([]byte(sub.ID)); old != nil {
			var prev core.Submission
			if err := json.Unmarshal(old, &prev); err == nil {
				if err := created.Delete(createdKey(prev)); err != nil {
					return err
				}
			}
		}
		if err := subs.Put([]byte(sub.ID), data); err != nil {
			return err
		}
		return created.Put(createdKey(sub), []byte(sub.ID))
	})
}

func (b *Bolt) GetSubmission(_ context.Context, id string) (core.Submission, error) {
	var sub core.Submission
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(submissionsBucket).Get([]byte(id))
		if data == nil {
			return core.ErrSubmissionMissing
		}
		return json.Unmarshal(data, &sub)
	})
	return sub, err
}

func (b *Bolt) ListSubmissions(ctx context.Context, limit int) ([]core.Submission, error) {
	subs := make([]core.Submission, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		byID := tx.Bucket(submissionsBucket)
		c := tx.Bucket(createdBucket).Cursor()
		for k, id := c.Last(); k != nil; k, id = c.Prev() {
			if limit > 0 && len(subs) >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			data := byID.Get(id)
			if data == nil {
				continue
			}
			var sub core.Submission
			if err := json.Unmarshal(data, &sub); err != nil {
				return fmt.Errorf("decode submission %s: %w", id, err)
			}
			subs = append(subs, sub)
		}
		return nil
	})
	return subs, err
}

func (b *Bolt) Close() error { return b.db.Close() }
