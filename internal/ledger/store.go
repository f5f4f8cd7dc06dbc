// Package ledger is the append-only audit trail of processing outcomes. One
// entry is written per terminal pipeline run; entries are never mutated or
// deleted by the pipeline.
package ledger

import (
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/nfowatch/nfowatch/internal/database"
	"github.com/nfowatch/nfowatch/pkg/logger"
)

var log = logger.Get("Ledger")

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

type (
	// Guess is what the filename parser extracted for a file which failed
	// processing; persisted alongside the failure so an operator can see
	// what the pipeline thought it was looking at.
	Guess struct {
		Title   string  `json:"title"`
		Year    *int    `json:"year,omitempty"`
		Quality *string `json:"quality,omitempty"`
	}

	entryBase struct {
		ID          uuid.UUID `db:"id"`
		FilePath    string    `db:"file_path"`
		Status      Status    `db:"status"`
		SidecarPath *string   `db:"sidecar_path"`
		Provider    *string   `db:"provider"`
		ProviderID  *string   `db:"provider_id"`
		Error       *string   `db:"error"`
		ProcessedAt time.Time `db:"processed_at"`
	}

	// entryModel is the table-shaped representation; the guess is stored
	// in a JSONB column, which the public Entry type hides.
	entryModel struct {
		entryBase
		Guess database.JsonColumn[Guess] `db:"guess"`
	}

	Entry struct {
		entryBase
		Guess *Guess
	}

	Store struct{}
)

func NewStore() *Store {
	return &Store{}
}

// NewSuccess constructs a success entry for a file whose sidecar was
// generated from the provider record identified by provider/providerID.
func NewSuccess(filePath string, sidecarPath string, provider string, providerID string) *Entry {
	return &Entry{
		entryBase: entryBase{
			ID:          uuid.New(),
			FilePath:    filePath,
			Status:      StatusSuccess,
			SidecarPath: &sidecarPath,
			Provider:    &provider,
			ProviderID:  &providerID,
			ProcessedAt: time.Now(),
		},
	}
}

// NewFailure constructs a failed entry carrying the parsed guess (which may
// be nil if parsing never happened) and the error description verbatim.
func NewFailure(filePath string, guess *Guess, errDescription string) *Entry {
	return &Entry{
		entryBase: entryBase{
			ID:          uuid.New(),
			FilePath:    filePath,
			Status:      StatusFailed,
			Error:       &errDescription,
			ProcessedAt: time.Now(),
		},
		Guess: guess,
	}
}

// Append inserts the entry. There is deliberately no read-modify-write and
// no deduplication here: repeated failures for the same path across restarts
// each get their own row, and concurrent appends from separate file tasks
// are each a single independent INSERT.
func (store *Store) Append(db database.Queryable, entry *Entry) error {
	_, err := db.Exec(`
		INSERT INTO ledger_entries(id, file_path, status, sidecar_path, provider, provider_id, guess, error, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, entry.FilePath, entry.Status, entry.SidecarPath, entry.Provider,
		entry.ProviderID, database.NewJsonColumn(entry.Guess), entry.Error, entry.ProcessedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry for '%s': %w", entry.FilePath, err)
	}

	log.Verbosef("Appended ledger entry %s (%s) for '%s'\n", entry.ID, entry.Status, entry.FilePath)
	return nil
}

// List returns entries in reverse-chronological order. A limit of zero or
// less returns all entries.
func (store *Store) List(db database.Queryable, limit int) ([]*Entry, error) {
	builder := selectEntryBuilder().OrderBy("processed_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list ledger query: %w", err)
	}

	var results []entryModel
	if err := db.Select(&results, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	output := make([]*Entry, len(results))
	for k, v := range results {
		output[k] = entryModelToEntry(&v)
	}

	return output, nil
}

func selectEntryBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select("id", "file_path", "status", "sidecar_path", "provider", "provider_id", "guess", "error", "processed_at").
		From("ledger_entries")
}

func entryModelToEntry(model *entryModel) *Entry {
	return &Entry{
		entryBase: model.entryBase,
		Guess:     model.Guess.Get(),
	}
}
