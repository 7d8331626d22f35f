package attest_protocol

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

const (
	EventProgramInitialized  = "ProgramInitialized"
	EventAttestationCreated  = "AttestationCreated"
	EventCertificateLinked   = "CertificateLinked"
	EventAttestationVerified = "AttestationVerified"
	EventMetadataUpdated     = "MetadataUpdated"
	EventAttestationClosed   = "AttestationClosed"
)

const programDataPrefix = "Program data: "

// ErrUnknownEvent is returned for event data whose discriminator is not in
// the schema.
var ErrUnknownEvent = errors.New("unknown event discriminator")

// Event is a decoded program event. Fields not carried by a given event
// kind are left at their zero value.
type Event struct {
	Name      string           `json:"name"`
	Signature solana.Signature `json:"signature"`
	Slot      uint64           `json:"slot"`
	BlockTime *time.Time       `json:"blockTime,omitempty"`

	// Timestamp is the program clock at emission.
	Timestamp int64 `json:"timestamp"`

	ContentHash    ContentHash              `json:"contentHash"`
	AiProbability  uint16                   `json:"aiProbability,omitempty"`
	ContentType    string                   `json:"contentType,omitempty"`
	DetectionModel string                   `json:"detectionModel,omitempty"`
	MetadataUri    string                   `json:"metadataUri,omitempty"`
	Actor          solana.PublicKey         `json:"actor"`
	CnftAssetId    Option[solana.PublicKey] `json:"cnftAssetId"`
}

// DecodeEvent decodes a single borsh-encoded event, discriminator included.
func (s *Schema) DecodeEvent(data []byte) (*Event, error) {
	if len(data) < 8 {
		return nil, malformed("event", "%d bytes, need at least 8", len(data))
	}
	var disc [8]byte
	copy(disc[:], data[:8])

	name, ok := s.EventName(disc)
	if !ok {
		return nil, ErrUnknownEvent
	}

	r := newAccountReader(name+" event", data)
	if err := r.discriminator(disc); err != nil {
		return nil, err
	}

	ev := &Event{Name: name}
	var err error
	switch name {
	case EventProgramInitialized:
		if ev.Actor, err = r.key("admin"); err != nil {
			return nil, err
		}
	case EventAttestationCreated:
		if err = r.fixed(ev.ContentHash[:], "content_hash"); err != nil {
			return nil, err
		}
		if ev.AiProbability, err = r.u16("ai_probability"); err != nil {
			return nil, err
		}
		if ev.ContentType, err = r.str("content_type"); err != nil {
			return nil, err
		}
		if ev.DetectionModel, err = r.str("detection_model"); err != nil {
			return nil, err
		}
		if ev.Actor, err = r.key("creator"); err != nil {
			return nil, err
		}
	case EventCertificateLinked:
		if err = r.fixed(ev.ContentHash[:], "content_hash"); err != nil {
			return nil, err
		}
		asset, err := r.key("cnft_asset_id")
		if err != nil {
			return nil, err
		}
		ev.CnftAssetId = Some(asset)
		if ev.Actor, err = r.key("creator"); err != nil {
			return nil, err
		}
	case EventAttestationVerified:
		if err = r.fixed(ev.ContentHash[:], "content_hash"); err != nil {
			return nil, err
		}
		if ev.Actor, err = r.key("verified_by"); err != nil {
			return nil, err
		}
	case EventMetadataUpdated:
		if err = r.fixed(ev.ContentHash[:], "content_hash"); err != nil {
			return nil, err
		}
		if ev.MetadataUri, err = r.str("new_uri"); err != nil {
			return nil, err
		}
	case EventAttestationClosed:
		if err = r.fixed(ev.ContentHash[:], "content_hash"); err != nil {
			return nil, err
		}
		if ev.Actor, err = r.key("creator"); err != nil {
			return nil, err
		}
	}

	if ev.Timestamp, err = r.i64("timestamp"); err != nil {
		return nil, err
	}
	return ev, nil
}

// ParseEvents extracts every known program event from transaction logs.
// Lines that are not program data or carry foreign events are skipped.
func (s *Schema) ParseEvents(logs []string) []*Event {
	var events []*Event
	for _, line := range logs {
		idx := strings.Index(line, programDataPrefix)
		if idx < 0 {
			continue
		}

		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(line[idx+len(programDataPrefix):]))
		if err != nil {
			continue
		}

		ev, err := s.DecodeEvent(data)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events
}
