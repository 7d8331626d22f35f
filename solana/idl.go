package attest_protocol

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

// SchemaName and SchemaVersion identify the program interface this client
// was compiled against.
const (
	SchemaName    = "attestation"
	SchemaVersion = "0.1.0"
)

//go:embed attestation.json
var idlJSON []byte

type IDL struct {
	Address      string              `json:"address"`
	Metadata     IDLMetadata         `json:"metadata"`
	Instructions []IDLInstruction    `json:"instructions"`
	Accounts     []IDLNamedDiscrim   `json:"accounts"`
	Events       []IDLNamedDiscrim   `json:"events"`
	Errors       []IDLError          `json:"errors"`
	Types        []IDLTypeDefinition `json:"types"`
}

type IDLMetadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Spec    string `json:"spec"`
}

type IDLInstruction struct {
	Name          string       `json:"name"`
	Discriminator []int        `json:"discriminator"`
	Args          []IDLField   `json:"args"`
	Accounts      []IDLAccount `json:"accounts"`
}

type IDLNamedDiscrim struct {
	Name          string `json:"name"`
	Discriminator []int  `json:"discriminator"`
}

type IDLField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type IDLAccount struct {
	Name     string `json:"name"`
	Writable bool   `json:"writable"`
	Signer   bool   `json:"signer"`
	Address  string `json:"address,omitempty"`
}

type IDLTypeDefinition struct {
	Name string `json:"name"`
	Type struct {
		Kind   string     `json:"kind"`
		Fields []IDLField `json:"fields"`
	} `json:"type"`
}

type IDLError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

func ParseIDL(idlBytes []byte) (*IDL, error) {
	var idl IDL
	err := json.Unmarshal(idlBytes, &idl)
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling IDL JSON: %w", err)
	}
	return &idl, nil
}

// Schema is the validated program interface.
type Schema struct {
	IDL *IDL

	events map[[8]byte]string
	errors map[int]IDLError
}

var (
	loadSchemaOnce sync.Once
	loadedSchema   *Schema
	loadSchemaErr  error
)

// LoadSchema parses and validates the embedded IDL once per process.
func LoadSchema() (*Schema, error) {
	loadSchemaOnce.Do(func() {
		loadedSchema, loadSchemaErr = NewSchema(idlJSON)
	})
	return loadedSchema, loadSchemaErr
}

// NewSchema parses idlBytes and checks it against the compiled layout. Any
// disagreement is an error so a stale client fails at startup rather than
// on its first decode.
func NewSchema(idlBytes []byte) (*Schema, error) {
	idl, err := ParseIDL(idlBytes)
	if err != nil {
		return nil, err
	}

	if idl.Metadata.Name != SchemaName {
		return nil, fmt.Errorf("idl is for program %q, expected %q", idl.Metadata.Name, SchemaName)
	}
	if idl.Metadata.Version != SchemaVersion {
		return nil, fmt.Errorf("idl version %s does not match client schema version %s", idl.Metadata.Version, SchemaVersion)
	}

	expectedInstructions := map[string][8]byte{
		"initialize":         Instruction_Initialize,
		"create_attestation": Instruction_CreateAttestation,
		"link_certificate":   Instruction_LinkCertificate,
		"verify_attestation": Instruction_VerifyAttestation,
		"update_metadata":    Instruction_UpdateMetadata,
		"close_attestation":  Instruction_CloseAttestation,
		"set_paused":         Instruction_SetPaused,
		"transfer_admin":     Instruction_TransferAdmin,
	}
	found := make(map[string]bool)
	for _, ix := range idl.Instructions {
		if err := checkDiscriminator("instruction", ix.Name, ix.Discriminator, expectedInstructions); err != nil {
			return nil, err
		}
		if err := checkInstructionLayout(ix); err != nil {
			return nil, err
		}
		found[ix.Name] = true
	}
	for name := range expectedInstructions {
		if !found[name] {
			return nil, fmt.Errorf("idl is missing instruction %s", name)
		}
	}

	expectedAccounts := map[string][8]byte{
		"ProgramConfig": Account_ProgramConfig,
		"Attestation":   Account_Attestation,
	}
	for _, acc := range idl.Accounts {
		if err := checkDiscriminator("account", acc.Name, acc.Discriminator, expectedAccounts); err != nil {
			return nil, err
		}
	}
	for _, def := range idl.Types {
		want, ok := accountFields[def.Name]
		if !ok {
			continue
		}
		got := make([]string, len(def.Type.Fields))
		for i, f := range def.Type.Fields {
			got[i] = f.Name
		}
		if !equalNames(got, want) {
			return nil, fmt.Errorf("idl type %s: fields %v do not match decoded layout %v", def.Name, got, want)
		}
	}

	expectedEvents := map[string][8]byte{
		EventProgramInitialized:  Event_ProgramInitialized,
		EventAttestationCreated:  Event_AttestationCreated,
		EventCertificateLinked:   Event_CertificateLinked,
		EventAttestationVerified: Event_AttestationVerified,
		EventMetadataUpdated:     Event_MetadataUpdated,
		EventAttestationClosed:   Event_AttestationClosed,
	}
	schema := &Schema{
		IDL:    idl,
		events: make(map[[8]byte]string),
		errors: make(map[int]IDLError),
	}
	for _, ev := range idl.Events {
		if err := checkDiscriminator("event", ev.Name, ev.Discriminator, expectedEvents); err != nil {
			return nil, err
		}
		schema.events[expectedEvents[ev.Name]] = ev.Name
	}
	for _, e := range idl.Errors {
		schema.errors[e.Code] = e
	}
	return schema, nil
}

// ixAccount is one entry of an instruction's account list as the builders
// in instructions.go emit it.
type ixAccount struct {
	name     string
	writable bool
	signer   bool
}

type ixLayout struct {
	args     []string
	accounts []ixAccount
}

var instructionLayouts = map[string]ixLayout{
	"initialize": {
		accounts: []ixAccount{{"admin", true, true}, {"config", true, false}, {"system_program", false, false}},
	},
	"create_attestation": {
		args:     []string{"content_hash", "ai_probability", "content_type", "detection_model", "metadata_uri"},
		accounts: []ixAccount{{"creator", true, true}, {"attestation", true, false}, {"config", true, false}, {"system_program", false, false}},
	},
	"link_certificate": {
		args:     []string{"cnft_asset_id"},
		accounts: []ixAccount{{"creator", false, true}, {"attestation", true, false}},
	},
	"verify_attestation": {
		accounts: []ixAccount{{"authority", false, true}, {"attestation", true, false}, {"config", false, false}},
	},
	"update_metadata": {
		args:     []string{"new_metadata_uri"},
		accounts: []ixAccount{{"creator", false, true}, {"attestation", true, false}},
	},
	"close_attestation": {
		accounts: []ixAccount{{"creator", true, true}, {"attestation", true, false}},
	},
	"set_paused": {
		args:     []string{"paused"},
		accounts: []ixAccount{{"admin", false, true}, {"config", true, false}},
	},
	"transfer_admin": {
		args:     []string{"new_admin"},
		accounts: []ixAccount{{"admin", false, true}, {"config", true, false}},
	},
}

// accountFields lists account fields in the order DecodeProgramConfig and
// DecodeAttestation read them.
var accountFields = map[string][]string{
	"ProgramConfig": {"admin", "total_attestations", "is_paused", "bump"},
	"Attestation": {
		"content_hash", "ai_probability", "content_type", "detection_model", "metadata_uri",
		"creator", "created_at", "is_verified", "verified_by", "verified_at", "cnft_asset_id",
		"bump", "version",
	},
}

// checkInstructionLayout compares argument order and the account list of ix
// with what the encoders and builders produce. Borsh has no field tags, so a
// reordered argument would still decode, just into the wrong field.
func checkInstructionLayout(ix IDLInstruction) error {
	layout := instructionLayouts[ix.Name]

	args := make([]string, len(ix.Args))
	for i, a := range ix.Args {
		args[i] = a.Name
	}
	if !equalNames(args, layout.args) {
		return fmt.Errorf("idl instruction %s: args %v do not match encoded layout %v", ix.Name, args, layout.args)
	}

	if len(ix.Accounts) != len(layout.accounts) {
		return fmt.Errorf("idl instruction %s: %d accounts, builder passes %d", ix.Name, len(ix.Accounts), len(layout.accounts))
	}
	for i, acc := range ix.Accounts {
		want := layout.accounts[i]
		if acc.Name != want.name || acc.Writable != want.writable || acc.Signer != want.signer {
			return fmt.Errorf("idl instruction %s: account %d is %s (writable=%t signer=%t), builder passes %s (writable=%t signer=%t)",
				ix.Name, i, acc.Name, acc.Writable, acc.Signer, want.name, want.writable, want.signer)
		}
	}
	return nil
}

func equalNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func checkDiscriminator(kind, name string, got []int, expected map[string][8]byte) error {
	want, ok := expected[name]
	if !ok {
		return fmt.Errorf("idl declares unknown %s %s", kind, name)
	}
	raw := make([]byte, len(got))
	for i, b := range got {
		if b < 0 || b > 255 {
			return fmt.Errorf("idl %s %s: discriminator byte %d out of range", kind, name, b)
		}
		raw[i] = byte(b)
	}
	if !bytes.Equal(raw, want[:]) {
		return fmt.Errorf("idl %s %s: discriminator %x does not match compiled %x", kind, name, raw, want)
	}
	return nil
}

// EventName returns the event name for a discriminator.
func (s *Schema) EventName(discriminator [8]byte) (string, bool) {
	name, ok := s.events[discriminator]
	return name, ok
}

// ErrorMessage returns the program's message for a custom error code.
func (s *Schema) ErrorMessage(code int) (string, bool) {
	e, ok := s.errors[code]
	return e.Msg, ok
}
