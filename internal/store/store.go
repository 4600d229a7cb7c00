// Package store records accepted GWAS submissions.
//
// Three backends satisfy core.SubmissionStore:
//
//   - bolt: a single bbolt file, the default for one-node deployments
//   - postgres: a gwas_submissions table reached through a pgx pool
//   - memory: process memory, for tests and throwaway runs
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/gwasupload/internal/config"
	"github.com/JonMunkholm/gwasupload/internal/core"
)

// Open returns the store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config) (core.SubmissionStore, error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case "bolt", "":
		return OpenBolt(cfg.Store.BoltPath, cfg.Store.BoltTimeout)
	case "postgres":
		return OpenPostgres(ctx, cfg.Database)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
