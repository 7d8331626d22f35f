package attest_protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// instructionWriter borsh-encodes instruction arguments after the
// discriminator. The first write error is kept and returned by bytes.
type instructionWriter struct {
	buf *bytes.Buffer
	enc *bin.Encoder
	err error
}

func newInstructionWriter(discriminator [8]byte) *instructionWriter {
	buf := new(bytes.Buffer)
	w := &instructionWriter{buf: buf, enc: bin.NewBorshEncoder(buf)}
	w.raw(discriminator[:])
	return w
}

func (w *instructionWriter) raw(b []byte) {
	if w.err == nil {
		w.err = w.enc.WriteBytes(b, false)
	}
}

func (w *instructionWriter) u8(v uint8) {
	if w.err == nil {
		w.err = w.enc.WriteUint8(v)
	}
}

func (w *instructionWriter) u16(v uint16) {
	if w.err == nil {
		w.err = w.enc.WriteUint16(v, binary.LittleEndian)
	}
}

func (w *instructionWriter) str(s string) {
	if w.err == nil {
		w.err = w.enc.WriteUint32(uint32(len(s)), binary.LittleEndian)
	}
	w.raw([]byte(s))
}

func (w *instructionWriter) flag(b bool) {
	if b {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *instructionWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

// CreateAttestationArgs are the create_attestation arguments in declaration
// order.
type CreateAttestationArgs struct {
	ContentHash    ContentHash
	AiProbability  uint16
	ContentType    string
	DetectionModel string
	MetadataUri    string
}

// Validate applies the program's own checks so a bad request never costs a
// transaction.
func (a *CreateAttestationArgs) Validate() error {
	if a.ContentHash.IsZero() {
		return &ValidationError{Field: "content hash", Reason: "must not be all zeros"}
	}
	if a.AiProbability > MaxBasisPoints {
		return &ValidationError{Field: "ai probability", Reason: fmt.Sprintf("%d exceeds %d basis points", a.AiProbability, MaxBasisPoints)}
	}
	if err := validateString("content type", a.ContentType, MaxContentTypeLen); err != nil {
		return err
	}
	if err := validateString("detection model", a.DetectionModel, MaxModelNameLen); err != nil {
		return err
	}
	return validateString("metadata uri", a.MetadataUri, MaxURILen)
}

func validateString(field, value string, max int) error {
	if !utf8.ValidString(value) {
		return &ValidationError{Field: field, Reason: "not valid UTF-8"}
	}
	if len(value) > max {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%d bytes exceeds the %d byte limit", len(value), max)}
	}
	return nil
}

func EncodeInitialize() []byte {
	return append([]byte(nil), Instruction_Initialize[:]...)
}

// EncodeCreateAttestation validates and serializes create_attestation data.
func EncodeCreateAttestation(args *CreateAttestationArgs) ([]byte, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	w := newInstructionWriter(Instruction_CreateAttestation)
	w.raw(args.ContentHash[:])
	w.u16(args.AiProbability)
	w.str(args.ContentType)
	w.str(args.DetectionModel)
	w.str(args.MetadataUri)
	return w.bytes()
}

// DecodeCreateAttestation is the inverse of EncodeCreateAttestation.
func DecodeCreateAttestation(data []byte) (*CreateAttestationArgs, error) {
	r := newAccountReader("create_attestation instruction", data)
	if err := r.discriminator(Instruction_CreateAttestation); err != nil {
		return nil, err
	}

	var (
		args CreateAttestationArgs
		err  error
	)
	if err = r.fixed(args.ContentHash[:], "content_hash"); err != nil {
		return nil, err
	}
	if args.AiProbability, err = r.u16("ai_probability"); err != nil {
		return nil, err
	}
	if args.ContentType, err = r.str("content_type"); err != nil {
		return nil, err
	}
	if args.DetectionModel, err = r.str("detection_model"); err != nil {
		return nil, err
	}
	if args.MetadataUri, err = r.str("metadata_uri"); err != nil {
		return nil, err
	}
	if r.dec.Remaining() != 0 {
		return nil, malformed("create_attestation instruction", "%d trailing bytes", r.dec.Remaining())
	}
	return &args, nil
}

func EncodeCloseAttestation() []byte {
	return append([]byte(nil), Instruction_CloseAttestation[:]...)
}

func EncodeLinkCertificate(assetID solana.PublicKey) []byte {
	data := make([]byte, 0, 8+32)
	data = append(data, Instruction_LinkCertificate[:]...)
	return append(data, assetID[:]...)
}

func EncodeVerifyAttestation() []byte {
	return append([]byte(nil), Instruction_VerifyAttestation[:]...)
}

// EncodeUpdateMetadata validates and serializes update_metadata data.
func EncodeUpdateMetadata(metadataUri string) ([]byte, error) {
	if err := validateString("metadata uri", metadataUri, MaxURILen); err != nil {
		return nil, err
	}
	w := newInstructionWriter(Instruction_UpdateMetadata)
	w.str(metadataUri)
	return w.bytes()
}

func EncodeSetPaused(paused bool) []byte {
	w := newInstructionWriter(Instruction_SetPaused)
	w.flag(paused)
	data, _ := w.bytes()
	return data
}

func EncodeTransferAdmin(newAdmin solana.PublicKey) []byte {
	data := make([]byte, 0, 8+32)
	data = append(data, Instruction_TransferAdmin[:]...)
	return append(data, newAdmin[:]...)
}

// --- Instruction builders ---

type InitializeInstructionAccounts struct {
	Admin  solana.PublicKey
	Config solana.PublicKey
}

func NewInitializeInstruction(programID solana.PublicKey, accounts *InitializeInstructionAccounts) solana.Instruction {
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(accounts.Admin, true, true),
			solana.NewAccountMeta(accounts.Config, true, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		},
		EncodeInitialize(),
	)
}

type CreateAttestationInstructionAccounts struct {
	Creator     solana.PublicKey
	Attestation solana.PublicKey
	Config      solana.PublicKey
}

func NewCreateAttestationInstruction(
	programID solana.PublicKey,
	accounts *CreateAttestationInstructionAccounts,
	args *CreateAttestationArgs,
) (solana.Instruction, error) {
	data, err := EncodeCreateAttestation(args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(accounts.Creator, true, true),
			solana.NewAccountMeta(accounts.Attestation, true, false),
			solana.NewAccountMeta(accounts.Config, true, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		},
		data,
	), nil
}

// CreatorInstructionAccounts covers the creator-signed instructions that
// only touch the attestation account.
type CreatorInstructionAccounts struct {
	Creator     solana.PublicKey
	Attestation solana.PublicKey
}

func NewLinkCertificateInstruction(programID solana.PublicKey, accounts *CreatorInstructionAccounts, assetID solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(accounts.Creator, false, true),
			solana.NewAccountMeta(accounts.Attestation, true, false),
		},
		EncodeLinkCertificate(assetID),
	)
}

func NewUpdateMetadataInstruction(programID solana.PublicKey, accounts *CreatorInstructionAccounts, metadataUri string) (solana.Instruction, error) {
	data, err := EncodeUpdateMetadata(metadataUri)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(accounts.Creator, false, true),
			solana.NewAccountMeta(accounts.Attestation, true, false),
		},
		data,
	), nil
}

// NewCloseAttestationInstruction closes the account; its rent goes back to
// the creator, who must be writable.
func NewCloseAttestationInstruction(programID solana.PublicKey, accounts *CreatorInstructionAccounts) solana.Instruction {
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(accounts.Creator, true, true),
			solana.NewAccountMeta(accounts.Attestation, true, false),
		},
		EncodeCloseAttestation(),
	)
}

type VerifyAttestationInstructionAccounts struct {
	Authority   solana.PublicKey
	Attestation solana.PublicKey
	Config      solana.PublicKey
}

func NewVerifyAttestationInstruction(programID solana.PublicKey, accounts *VerifyAttestationInstructionAccounts) solana.Instruction {
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(accounts.Authority, false, true),
			solana.NewAccountMeta(accounts.Attestation, true, false),
			solana.NewAccountMeta(accounts.Config, false, false),
		},
		EncodeVerifyAttestation(),
	)
}

type AdminInstructionAccounts struct {
	Admin  solana.PublicKey
	Config solana.PublicKey
}

func NewSetPausedInstruction(programID solana.PublicKey, accounts *AdminInstructionAccounts, paused bool) solana.Instruction {
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(accounts.Admin, false, true),
			solana.NewAccountMeta(accounts.Config, true, false),
		},
		EncodeSetPaused(paused),
	)
}

func NewTransferAdminInstruction(programID solana.PublicKey, accounts *AdminInstructionAccounts, newAdmin solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(accounts.Admin, false, true),
			solana.NewAccountMeta(accounts.Config, true, false),
		},
		EncodeTransferAdmin(newAdmin),
	)
}
