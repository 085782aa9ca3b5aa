package app

import (
	"context"
	"fmt"

	"github.com/dshills/outliner/internal/config"
	"github.com/dshills/outliner/internal/outline/persist"
	"github.com/dshills/outliner/internal/outline/persist/jsonfile"
	"github.com/dshills/outliner/internal/outline/persist/sqlstore"
)

// Storage loads and saves documents by name. *sqlstore.Store satisfies it.
type Storage interface {
	Load(ctx context.Context, name string) (persist.Document, error)
	Save(ctx context.Context, name string, doc persist.Document) error
}

// JSONStorage treats document names as JSON file paths.
type JSONStorage struct{}

// Load reads the file at name.
func (JSONStorage) Load(_ context.Context, name string) (persist.Document, error) {
	return jsonfile.Load(name)
}

// Save writes the file at name.
func (JSONStorage) Save(_ context.Context, name string, doc persist.Document) error {
	return jsonfile.Save(name, doc)
}

var (
	_ Storage = JSONStorage{}
	_ Storage = (*sqlstore.Store)(nil)
)

// OpenStorage builds the backend named by s. The returned close function
// releases it and is never nil.
func OpenStorage(s config.StorageSettings) (Storage, func() error, error) {
	switch s.Backend {
	case config.BackendJSON, "":
		return JSONStorage{}, func() error { return nil }, nil
	case config.BackendSQLite:
		db, err := sqlstore.Open(s.Path)
		if err != nil {
			return nil, nil, err
		}
		store := sqlstore.New(db)
		if err := store.Init(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("init %s: %w", s.Path, err)
		}
		return store, db.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: storage backend %q", config.ErrInvalidValue, s.Backend)
}
