package monitor

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/nfowatch/nfowatch/internal/database"
)

// The watch configuration is a single row, upserted in full on every
// mutation. The fixed row ID keeps the upsert trivially idempotent.
const configRowID = "main"

type configModel struct {
	ID                string         `db:"id"`
	WatchedFolders    pq.StringArray `db:"watched_folders"`
	PreferredProvider string         `db:"preferred_provider"`
	AutoProcess       bool           `db:"auto_process"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

// DBConfigStore is the database-backed implementation of the service's
// ConfigStore dependency (bound to a connection by the composition root).
type DBConfigStore struct{}

func NewConfigStore() *DBConfigStore {
	return &DBConfigStore{}
}

// Load returns the persisted watch configuration, or nil if none has been
// saved yet (first run).
func (store *DBConfigStore) Load(db database.Queryable) (*WatchConfig, error) {
	var model configModel
	err := db.Get(&model, `
		SELECT id, watched_folders, preferred_provider, auto_process, updated_at
		FROM watch_config
		WHERE id=$1
	`, configRowID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load watch config: %w", err)
	}

	return &WatchConfig{
		Folders:           model.WatchedFolders,
		PreferredProvider: model.PreferredProvider,
		AutoProcess:       model.AutoProcess,
	}, nil
}

// Save upserts the configuration as the singleton row.
func (store *DBConfigStore) Save(db database.Queryable, config *WatchConfig) error {
	_, err := db.Exec(`
		INSERT INTO watch_config(id, watched_folders, preferred_provider, auto_process, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			watched_folders=excluded.watched_folders,
			preferred_provider=excluded.preferred_provider,
			auto_process=excluded.auto_process,
			updated_at=excluded.updated_at
	`, configRowID, pq.StringArray(config.Folders), config.PreferredProvider, config.AutoProcess, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save watch config: %w", err)
	}

	return nil
}
