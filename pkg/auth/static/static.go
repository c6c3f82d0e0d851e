// Package static provides an auth.Registry backed by a fixed token table,
// optionally loaded from a tokens.toml file and reloaded when it changes.
package static

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/papercomputeco/mnemo/pkg/auth"
	"github.com/papercomputeco/mnemo/pkg/credentials"
)

// Registry is a static token table. Lookups read an immutable snapshot and
// never block on reloads.
type Registry struct {
	path    string
	logger  *zap.Logger
	records atomic.Pointer[map[string]auth.TokenRecord]
}

// New creates a Registry from an in-code record list.
func New(records []auth.TokenRecord) (*Registry, error) {
	table, err := buildTable(records)
	if err != nil {
		return nil, err
	}

	r := &Registry{logger: zap.NewNop()}
	r.records.Store(&table)
	return r, nil
}

// NewFromFile creates a Registry from a tokens.toml file. A missing file
// yields an empty table that rejects every token.
func NewFromFile(path string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{
		path:   path,
		logger: logger,
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}

	return r, nil
}

// Resolve returns a copy of the record registered for token.
func (r *Registry) Resolve(_ context.Context, token string) (*auth.TokenRecord, error) {
	table := *r.records.Load()

	record, ok := table[token]
	if !ok {
		return nil, auth.ErrInvalidCredential
	}

	record.Scopes = slices.Clone(record.Scopes)
	return &record, nil
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int {
	return len(*r.records.Load())
}

// Reload re-reads the tokens file and swaps the table in atomically. On error
// the previous table stays in place.
func (r *Registry) Reload() error {
	if r.path == "" {
		return errors.New("registry was not loaded from a file")
	}

	mgr, err := credentials.NewManagerAt(r.path)
	if err != nil {
		return err
	}

	tokens, err := mgr.Load()
	if err != nil {
		return err
	}

	records, err := recordsFromTokens(tokens)
	if err != nil {
		return fmt.Errorf("loading %s: %w", r.path, err)
	}

	table, err := buildTable(records)
	if err != nil {
		return fmt.Errorf("loading %s: %w", r.path, err)
	}

	r.records.Store(&table)
	r.logger.Info("loaded token registry",
		zap.String("path", r.path),
		zap.Int("tokens", len(table)),
	)
	return nil
}

// Watch reloads the table whenever the tokens file is written or replaced.
// The watcher is registered before Watch returns and runs until ctx is done.
func (r *Registry) Watch(ctx context.Context) error {
	if r.path == "" {
		return errors.New("registry was not loaded from a file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating tokens watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching tokens dir: %w", err)
	}

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(r.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.Reload(); err != nil {
					r.logger.Error("failed to reload token registry, keeping previous table",
						zap.String("path", r.path),
						zap.Error(err),
					)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Error("tokens watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}

func recordsFromTokens(tokens *credentials.Tokens) ([]auth.TokenRecord, error) {
	clientIDs := make([]string, 0, len(tokens.Clients))
	for id := range tokens.Clients {
		clientIDs = append(clientIDs, id)
	}
	sort.Strings(clientIDs)

	records := make([]auth.TokenRecord, 0, len(clientIDs))
	for _, id := range clientIDs {
		ct := tokens.Clients[id]

		scopes, err := auth.ParseScopes(ct.Scopes)
		if err != nil {
			return nil, fmt.Errorf("client %q: %w", id, err)
		}

		records = append(records, auth.TokenRecord{
			Token:    ct.Token,
			ClientID: id,
			Scopes:   scopes,
		})
	}

	return records, nil
}

func buildTable(records []auth.TokenRecord) (map[string]auth.TokenRecord, error) {
	table := make(map[string]auth.TokenRecord, len(records))
	for _, rec := range records {
		if rec.Token == "" {
			return nil, fmt.Errorf("client %q has an empty token", rec.ClientID)
		}
		if rec.ClientID == "" {
			return nil, errors.New("token record has an empty client id")
		}
		if existing, ok := table[rec.Token]; ok {
			return nil, fmt.Errorf("clients %q and %q share a token", existing.ClientID, rec.ClientID)
		}

		rec.Scopes = slices.Clone(rec.Scopes)
		table[rec.Token] = rec
	}
	return table, nil
}
