// SQLite persistence of per-image filter chains
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"image-filter-editor/internal/filters"
)

// Keyed is an image whose chain can be persisted under its source path
type Keyed interface {
	Source() string
	CurrentChain() *filters.Chain
}

// ChainStore keeps one JSON-encoded chain per (project, image) pair
type ChainStore struct {
	db *sql.DB
}

// Open creates or opens the database at path
func Open(path string) (*ChainStore, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS chains (
		project TEXT NOT NULL,
		image TEXT NOT NULL,
		payload BLOB NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (project, image)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create chains table: %w", err)
	}
	return &ChainStore{db: db}, nil
}

func (s *ChainStore) Close() error { return s.db.Close() }

// Save stores the chains of images in one transaction. Images without a
// chain have their row removed.
func (s *ChainStore) Save(ctx context.Context, project string, images ...Keyed) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().Unix()
	for _, img := range images {
		chain := img.CurrentChain()
		if chain.IsEmpty() {
			if _, err := tx.ExecContext(ctx, `DELETE FROM chains WHERE project = ? AND image = ?`, project, img.Source()); err != nil {
				return fmt.Errorf("delete chain of %s: %w", img.Source(), err)
			}
			continue
		}
		payload, err := json.Marshal(chain.Spec())
		if err != nil {
			return fmt.Errorf("encode chain of %s: %w", img.Source(), err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO chains (project, image, payload, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(project, image) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
			project, img.Source(), payload, now); err != nil {
			return fmt.Errorf("store chain of %s: %w", img.Source(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load returns every stored chain of a project keyed by image source path
func (s *ChainStore) Load(ctx context.Context, project string) (map[string]*filters.Chain, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT image, payload FROM chains WHERE project = ?`, project)
	if err != nil {
		return nil, fmt.Errorf("select chains: %w", err)
	}
	defer func() { _ = rows.Close() }()

	chains := make(map[string]*filters.Chain)
	for rows.Next() {
		var image string
		var payload []byte
		if err := rows.Scan(&image, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var spec filters.ChainSpec
		if err := json.Unmarshal(payload, &spec); err != nil {
			return nil, fmt.Errorf("decode chain of %s: %w", image, err)
		}
		chain, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("rebuild chain of %s: %w", image, err)
		}
		chains[image] = chain
	}
	return chains, rows.Err()
}
