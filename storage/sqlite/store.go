package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"attest-cli/storage"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const tableName = "attestation_history"

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type store struct {
	db *sql.DB
}

// Open opens or creates a SQLite history store at path.
func Open(path string) (storage.Store, error) {
	if path == "" {
		var err error
		if path, err = storage.DefaultPath("history.db"); err != nil {
			return nil, err
		}
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrap(err, "could not create history directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	// A single connection keeps ":memory:" databases from splitting across
	// pool connections.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating tables")
	}
	return &store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + tableName + ` (
			id              TEXT NOT NULL UNIQUE,
			content_hash    TEXT PRIMARY KEY,
			ai_probability  REAL NOT NULL,
			content_type    TEXT NOT NULL,
			detection_model TEXT NOT NULL,
			metadata_uri    TEXT NOT NULL,
			creator         TEXT NOT NULL,
			signature       TEXT NOT NULL,
			created_at      TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_created_at ON ` + tableName + `(created_at);
	`)
	return err
}

// Save implements storage.Store.Save
func (s *store) Save(ctx context.Context, record *storage.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	record.FillDefaults()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+tableName+` (id, content_hash, ai_probability, content_type, detection_model, metadata_uri, creator, signature, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET
			id = excluded.id,
			ai_probability = excluded.ai_probability,
			content_type = excluded.content_type,
			detection_model = excluded.detection_model,
			metadata_uri = excluded.metadata_uri,
			creator = excluded.creator,
			signature = excluded.signature,
			created_at = excluded.created_at
	`,
		record.ID,
		record.ContentHash,
		record.AiProbability,
		record.ContentType,
		record.DetectionModel,
		record.MetadataUri,
		record.Creator,
		record.Signature,
		record.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return errors.Wrap(err, "inserting history record")
	}
	return nil
}

// Get implements storage.Store.Get
func (s *store) Get(ctx context.Context, contentHash string) (*storage.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content_hash, ai_probability, content_type, detection_model, metadata_uri, creator, signature, created_at
		FROM `+tableName+` WHERE content_hash = ?
	`, contentHash)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	return record, err
}

// List implements storage.Store.List
func (s *store) List(ctx context.Context) ([]*storage.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content_hash, ai_probability, content_type, detection_model, metadata_uri, creator, signature, created_at
		FROM `+tableName+` ORDER BY created_at DESC, content_hash ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "querying history")
	}
	defer rows.Close()

	var res []*storage.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating history")
	}
	return res, nil
}

// Delete implements storage.Store.Delete
func (s *store) Delete(ctx context.Context, contentHash string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+tableName+` WHERE content_hash = ?`, contentHash)
	if err != nil {
		return errors.Wrap(err, "deleting history record")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting history record")
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *store) Close() error {
	return s.db.Close()
}

func (s *store) reset() error {
	_, err := s.db.Exec(`DELETE FROM ` + tableName)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*storage.Record, error) {
	var (
		record    storage.Record
		createdAt string
	)
	err := row.Scan(
		&record.ID,
		&record.ContentHash,
		&record.AiProbability,
		&record.ContentType,
		&record.DetectionModel,
		&record.MetadataUri,
		&record.Creator,
		&record.Signature,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	record.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, errors.Wrap(err, "parsing created_at")
	}
	return &record, nil
}
