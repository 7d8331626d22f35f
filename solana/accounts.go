package attest_protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	MaxContentTypeLen = 20
	MaxModelNameLen   = 32
	MaxURILen         = 200

	// MaxBasisPoints is 100.00%.
	MaxBasisPoints = 10000

	// AttestationVersion is the schema version written by the program.
	AttestationVersion = 1
)

const (
	// ProgramConfigSize is the allocated size of the config account.
	ProgramConfigSize = 8 + // discriminator
		32 + // admin
		8 + // total_attestations
		1 + // is_paused
		1 // bump

	// AttestationSize is the allocated size of an attestation account, with
	// every string at its maximum length and every option present.
	AttestationSize = 8 + // discriminator
		32 + // content_hash
		2 + // ai_probability
		4 + MaxContentTypeLen + // content_type
		4 + MaxModelNameLen + // detection_model
		4 + MaxURILen + // metadata_uri
		32 + // creator
		8 + // created_at
		1 + // is_verified
		1 + 32 + // verified_by
		1 + 8 + // verified_at
		1 + 32 + // cnft_asset_id
		1 + // bump
		1 // version

	// MinAttestationSize is the smallest decodable attestation: empty strings
	// and every option absent.
	MinAttestationSize = 8 + 32 + 2 + 4 + 4 + 4 + 32 + 8 + 1 + 1 + 1 + 1 + 1 + 1
)

// ProgramConfig is the singleton configuration account.
type ProgramConfig struct {
	Admin             solana.PublicKey `json:"admin"`
	TotalAttestations uint64           `json:"totalAttestations"`
	IsPaused          bool             `json:"isPaused"`
	Bump              uint8            `json:"bump"`
}

// Attestation is the on-chain record of one detection result, keyed by the
// content hash.
type Attestation struct {
	ContentHash    ContentHash              `json:"contentHash"`
	AiProbability  uint16                   `json:"aiProbability"`
	ContentType    string                   `json:"contentType"`
	DetectionModel string                   `json:"detectionModel"`
	MetadataUri    string                   `json:"metadataUri"`
	Creator        solana.PublicKey         `json:"creator"`
	CreatedAt      int64                    `json:"createdAt"`
	IsVerified     bool                     `json:"isVerified"`
	VerifiedBy     Option[solana.PublicKey] `json:"verifiedBy"`
	VerifiedAt     Option[int64]            `json:"verifiedAt"`
	CnftAssetId    Option[solana.PublicKey] `json:"cnftAssetId"`
	Bump           uint8                    `json:"bump"`
	Version        uint8                    `json:"version"`
}

// AiProbabilityPercent converts the stored basis points to a percentage.
func (a *Attestation) AiProbabilityPercent() float64 {
	return BasisPointsToPercent(a.AiProbability)
}

func (a *Attestation) String() string {
	return fmt.Sprintf(
		"Attestation{content_hash=%s,ai_probability=%d,content_type=%s,detection_model=%s,metadata_uri=%s,creator=%s,created_at=%d,is_verified=%t}",
		a.ContentHash,
		a.AiProbability,
		a.ContentType,
		a.DetectionModel,
		a.MetadataUri,
		a.Creator,
		a.CreatedAt,
		a.IsVerified,
	)
}

// accountReader reads borsh fields and turns every short read into a
// MalformedAccountError.
type accountReader struct {
	dec     *bin.Decoder
	account string
}

func newAccountReader(account string, data []byte) *accountReader {
	return &accountReader{dec: bin.NewBorshDecoder(data), account: account}
}

func (r *accountReader) need(n int, field string) error {
	if r.dec.Remaining() < n {
		return malformed(r.account, "%s needs %d bytes, %d remaining", field, n, r.dec.Remaining())
	}
	return nil
}

func (r *accountReader) discriminator(expected [8]byte) error {
	if err := r.need(8, "discriminator"); err != nil {
		return err
	}
	got, err := r.dec.ReadNBytes(8)
	if err != nil {
		return malformed(r.account, "discriminator: %v", err)
	}
	if !bytes.Equal(got, expected[:]) {
		return malformed(r.account, "unexpected discriminator %x", got)
	}
	return nil
}

func (r *accountReader) fixed(dst []byte, field string) error {
	if err := r.need(len(dst), field); err != nil {
		return err
	}
	b, err := r.dec.ReadNBytes(len(dst))
	if err != nil {
		return malformed(r.account, "%s: %v", field, err)
	}
	copy(dst, b)
	return nil
}

func (r *accountReader) key(field string) (solana.PublicKey, error) {
	var key solana.PublicKey
	err := r.fixed(key[:], field)
	return key, err
}

func (r *accountReader) u8(field string) (uint8, error) {
	if err := r.need(1, field); err != nil {
		return 0, err
	}
	return r.dec.ReadUint8()
}

func (r *accountReader) u16(field string) (uint16, error) {
	if err := r.need(2, field); err != nil {
		return 0, err
	}
	return r.dec.ReadUint16(binary.LittleEndian)
}

func (r *accountReader) u64(field string) (uint64, error) {
	if err := r.need(8, field); err != nil {
		return 0, err
	}
	return r.dec.ReadUint64(binary.LittleEndian)
}

func (r *accountReader) i64(field string) (int64, error) {
	if err := r.need(8, field); err != nil {
		return 0, err
	}
	return r.dec.ReadInt64(binary.LittleEndian)
}

func (r *accountReader) flag(field string) (bool, error) {
	b, err := r.u8(field)
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, malformed(r.account, "%s: invalid flag byte %d", field, b)
	}
}

func (r *accountReader) str(field string) (string, error) {
	if err := r.need(4, field+" length"); err != nil {
		return "", err
	}
	n, err := r.dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return "", malformed(r.account, "%s length: %v", field, err)
	}
	if uint64(n) > uint64(r.dec.Remaining()) {
		return "", malformed(r.account, "%s declares %d bytes, %d remaining", field, n, r.dec.Remaining())
	}
	b, err := r.dec.ReadNBytes(int(n))
	if err != nil {
		return "", malformed(r.account, "%s: %v", field, err)
	}
	return string(b), nil
}

func (r *accountReader) optionalKey(field string) (Option[solana.PublicKey], error) {
	present, err := r.flag(field)
	if err != nil || !present {
		return None[solana.PublicKey](), err
	}
	key, err := r.key(field)
	if err != nil {
		return None[solana.PublicKey](), err
	}
	return Some(key), nil
}

func (r *accountReader) optionalI64(field string) (Option[int64], error) {
	present, err := r.flag(field)
	if err != nil || !present {
		return None[int64](), err
	}
	v, err := r.i64(field)
	if err != nil {
		return None[int64](), err
	}
	return Some(v), nil
}

// DecodeProgramConfig parses raw config account data. Trailing bytes past
// the declared fields are ignored.
func DecodeProgramConfig(data []byte) (*ProgramConfig, error) {
	if len(data) < ProgramConfigSize {
		return nil, malformed("config", "%d bytes, need at least %d", len(data), ProgramConfigSize)
	}

	r := newAccountReader("config", data)
	if err := r.discriminator(Account_ProgramConfig); err != nil {
		return nil, err
	}

	var (
		obj ProgramConfig
		err error
	)
	if obj.Admin, err = r.key("admin"); err != nil {
		return nil, err
	}
	if obj.TotalAttestations, err = r.u64("total_attestations"); err != nil {
		return nil, err
	}
	if obj.IsPaused, err = r.flag("is_paused"); err != nil {
		return nil, err
	}
	if obj.Bump, err = r.u8("bump"); err != nil {
		return nil, err
	}
	return &obj, nil
}

// DecodeAttestation parses raw attestation account data in declaration
// order. Accounts are allocated at AttestationSize, so zero padding after
// the version byte is expected and ignored.
func DecodeAttestation(data []byte) (*Attestation, error) {
	if len(data) < MinAttestationSize {
		return nil, malformed("attestation", "%d bytes, need at least %d", len(data), MinAttestationSize)
	}

	r := newAccountReader("attestation", data)
	if err := r.discriminator(Account_Attestation); err != nil {
		return nil, err
	}

	var (
		obj Attestation
		err error
	)
	if err = r.fixed(obj.ContentHash[:], "content_hash"); err != nil {
		return nil, err
	}
	if obj.AiProbability, err = r.u16("ai_probability"); err != nil {
		return nil, err
	}
	if obj.ContentType, err = r.str("content_type"); err != nil {
		return nil, err
	}
	if obj.DetectionModel, err = r.str("detection_model"); err != nil {
		return nil, err
	}
	if obj.MetadataUri, err = r.str("metadata_uri"); err != nil {
		return nil, err
	}
	if obj.Creator, err = r.key("creator"); err != nil {
		return nil, err
	}
	if obj.CreatedAt, err = r.i64("created_at"); err != nil {
		return nil, err
	}
	if obj.IsVerified, err = r.flag("is_verified"); err != nil {
		return nil, err
	}
	if obj.VerifiedBy, err = r.optionalKey("verified_by"); err != nil {
		return nil, err
	}
	if obj.VerifiedAt, err = r.optionalI64("verified_at"); err != nil {
		return nil, err
	}
	if obj.CnftAssetId, err = r.optionalKey("cnft_asset_id"); err != nil {
		return nil, err
	}
	if obj.Bump, err = r.u8("bump"); err != nil {
		return nil, err
	}
	if obj.Version, err = r.u8("version"); err != nil {
		return nil, err
	}

	if obj.VerifiedBy.IsSome() != obj.VerifiedAt.IsSome() {
		return nil, malformed("attestation", "verified_by and verified_at must be set together")
	}
	return &obj, nil
}
