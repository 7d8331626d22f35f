package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	historyFileName = "history.json"
	configDirName   = ".config"
	attestDirName   = "attest"
)

// historyFile is the on-disk layout of the JSON store.
type historyFile struct {
	Version int       `json:"version"`
	Records []*Record `json:"records"`
}

// JSONDB is a Store backed by a single JSON file. The whole file is read on
// open and rewritten on every change.
type JSONDB struct {
	path string

	mu      sync.Mutex
	records map[string]*Record

	log *logrus.Entry
}

// Connect opens and initializes the JSON-based storage at path. An empty
// path uses DefaultPath(historyFileName).
func Connect(path string) (*JSONDB, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(historyFileName); err != nil {
			return nil, err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "could not create history directory")
	}

	db := &JSONDB{
		path:    path,
		records: make(map[string]*Record),
		log:     logrus.StandardLogger().WithFields(logrus.Fields{"type": "storage/json", "path": path}),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return db, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "could not read history file")
	}

	if len(data) == 0 {
		return db, nil
	}

	var file historyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "could not parse history file")
	}
	for _, record := range file.Records {
		if err := record.Validate(); err != nil {
			db.log.WithError(err).Warn("skipping invalid history record")
			continue
		}
		db.records[record.ContentHash] = record
	}

	return db, nil
}

// Save implements Store.Save
func (db *JSONDB) Save(_ context.Context, record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	record.FillDefaults()

	db.mu.Lock()
	defer db.mu.Unlock()

	previous, existed := db.records[record.ContentHash]
	cloned := record.Clone()
	db.records[record.ContentHash] = &cloned

	if err := db.flush(); err != nil {
		if existed {
			db.records[record.ContentHash] = previous
		} else {
			delete(db.records, record.ContentHash)
		}
		return err
	}
	return nil
}

// Get implements Store.Get
func (db *JSONDB) Get(_ context.Context, contentHash string) (*Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	record, ok := db.records[contentHash]
	if !ok {
		return nil, ErrNotFound
	}
	cloned := record.Clone()
	return &cloned, nil
}

// List implements Store.List
func (db *JSONDB) List(_ context.Context) ([]*Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.sorted(), nil
}

// Delete implements Store.Delete
func (db *JSONDB) Delete(_ context.Context, contentHash string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	record, ok := db.records[contentHash]
	if !ok {
		return ErrNotFound
	}
	delete(db.records, contentHash)

	if err := db.flush(); err != nil {
		db.records[contentHash] = record
		return err
	}
	return nil
}

// Close closes the JSON database connection (for interface compatibility).
// Since this is a JSON file implementation, there's no actual connection to close.
func (db *JSONDB) Close() error {
	return nil
}

func (db *JSONDB) sorted() []*Record {
	res := make([]*Record, 0, len(db.records))
	for _, record := range db.records {
		cloned := record.Clone()
		res = append(res, &cloned)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ContentHash < res[j].ContentHash
	})
	return res
}

// flush writes the file atomically via a temp file in the same directory.
func (db *JSONDB) flush() error {
	data, err := json.MarshalIndent(historyFile{Version: 1, Records: db.sorted()}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not marshal history")
	}

	tmp, err := os.CreateTemp(filepath.Dir(db.path), ".history-*.json")
	if err != nil {
		return errors.Wrap(err, "could not create temp history file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "could not write history file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "could not write history file")
	}
	if err := os.Rename(tmp.Name(), db.path); err != nil {
		return errors.Wrap(err, "could not replace history file")
	}
	return nil
}

// DefaultPath returns ~/.config/attest/<name>.
func DefaultPath(name string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not get user home directory")
	}
	return filepath.Join(homeDir, configDirName, attestDirName, name), nil
}

var _ Store = (*JSONDB)(nil)
