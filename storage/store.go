package storage

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrNotFound      = errors.New("history record not found")
	ErrInvalidRecord = errors.New("invalid history record")
)

// Store is the local, non-authoritative history of attestations this
// machine has submitted. The chain remains the source of truth.
type Store interface {
	// Save inserts a record, replacing any existing record for the same
	// content hash. An empty ID is filled in.
	Save(ctx context.Context, record *Record) error

	// Get returns the record for a content hash.
	//
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, contentHash string) (*Record, error)

	// List returns every record, newest first.
	List(ctx context.Context) ([]*Record, error)

	// Delete removes the record for a content hash.
	//
	// Returns ErrNotFound if no record exists.
	Delete(ctx context.Context, contentHash string) error

	Close() error
}

// Record is one locally remembered attestation.
type Record struct {
	ID             string    `json:"id"`
	ContentHash    string    `json:"content_hash"`
	AiProbability  float64   `json:"ai_probability"`
	ContentType    string    `json:"content_type"`
	DetectionModel string    `json:"detection_model"`
	MetadataUri    string    `json:"metadata_uri"`
	Creator        string    `json:"creator"`
	Signature      string    `json:"signature"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r *Record) Validate() error {
	if r == nil {
		return errors.Wrap(ErrInvalidRecord, "nil record")
	}
	if len(r.ContentHash) != 64 {
		return errors.Wrapf(ErrInvalidRecord, "content hash must be 64 hex characters, got %d", len(r.ContentHash))
	}
	if _, err := hex.DecodeString(r.ContentHash); err != nil {
		return errors.Wrap(ErrInvalidRecord, "content hash is not hex")
	}
	if r.AiProbability < 0 || r.AiProbability > 100 {
		return errors.Wrapf(ErrInvalidRecord, "ai probability %v outside [0, 100]", r.AiProbability)
	}
	return nil
}

func (r *Record) Clone() Record {
	return Record{
		ID:             r.ID,
		ContentHash:    r.ContentHash,
		AiProbability:  r.AiProbability,
		ContentType:    r.ContentType,
		DetectionModel: r.DetectionModel,
		MetadataUri:    r.MetadataUri,
		Creator:        r.Creator,
		Signature:      r.Signature,
		CreatedAt:      r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	*dst = r.Clone()
}

// FillDefaults assigns an ID and creation time when unset, and normalizes
// the time to UTC microseconds so every backend round-trips it exactly.
func (r *Record) FillDefaults() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC().Round(time.Microsecond)
}
