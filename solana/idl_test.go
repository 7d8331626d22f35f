package attest_protocol

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sighash(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

func TestDiscriminatorsMatchSighash(t *testing.T) {
	for name, actual := range map[string][8]byte{
		"initialize":         Instruction_Initialize,
		"create_attestation": Instruction_CreateAttestation,
		"link_certificate":   Instruction_LinkCertificate,
		"verify_attestation": Instruction_VerifyAttestation,
		"update_metadata":    Instruction_UpdateMetadata,
		"close_attestation":  Instruction_CloseAttestation,
		"set_paused":         Instruction_SetPaused,
		"transfer_admin":     Instruction_TransferAdmin,
	} {
		assert.Equal(t, sighash("global", name), actual, name)
	}

	assert.Equal(t, sighash("account", "ProgramConfig"), Account_ProgramConfig)
	assert.Equal(t, sighash("account", "Attestation"), Account_Attestation)

	for name, actual := range map[string][8]byte{
		EventProgramInitialized:  Event_ProgramInitialized,
		EventAttestationCreated:  Event_AttestationCreated,
		EventCertificateLinked:   Event_CertificateLinked,
		EventAttestationVerified: Event_AttestationVerified,
		EventMetadataUpdated:     Event_MetadataUpdated,
		EventAttestationClosed:   Event_AttestationClosed,
	} {
		assert.Equal(t, sighash("event", name), actual, name)
	}
}

func TestLoadSchema(t *testing.T) {
	schema, err := LoadSchema()
	require.NoError(t, err)

	assert.Equal(t, SchemaName, schema.IDL.Metadata.Name)
	assert.Equal(t, SchemaVersion, schema.IDL.Metadata.Version)
	assert.Len(t, schema.IDL.Instructions, 8)

	name, ok := schema.EventName(Event_AttestationCreated)
	assert.True(t, ok)
	assert.Equal(t, EventAttestationCreated, name)

	msg, ok := schema.ErrorMessage(6008)
	assert.True(t, ok)
	assert.Equal(t, "Program is paused", msg)

	_, ok = schema.ErrorMessage(1)
	assert.False(t, ok)
}

func TestNewSchema_Mismatch(t *testing.T) {
	for name, idl := range map[string][]byte{
		"version":       bytes.Replace(idlJSON, []byte(`"version": "0.1.0"`), []byte(`"version": "0.2.0"`), 1),
		"name":          bytes.Replace(idlJSON, []byte(`"name": "attestation"`), []byte(`"name": "other"`), 1),
		"discriminator": mutateIDL(t, func(idl *IDL) { idl.Instructions[1].Discriminator[0] ^= 0xff }),
		"missing ix":    mutateIDL(t, func(idl *IDL) { idl.Instructions = idl.Instructions[1:] }),
		"unknown event": mutateIDL(t, func(idl *IDL) { idl.Events[0].Name = "Renamed" }),
		"garbage":       []byte("{"),
		"arg order": mutateIDL(t, func(idl *IDL) {
			args := idl.Instructions[1].Args
			args[1], args[2] = args[2], args[1]
		}),
		"arg dropped":     mutateIDL(t, func(idl *IDL) { idl.Instructions[1].Args = idl.Instructions[1].Args[:4] }),
		"account renamed": mutateIDL(t, func(idl *IDL) { idl.Instructions[1].Accounts[2].Name = "settings" }),
		"account signer":  mutateIDL(t, func(idl *IDL) { idl.Instructions[1].Accounts[0].Signer = false }),
		"account dropped": mutateIDL(t, func(idl *IDL) { idl.Instructions[0].Accounts = idl.Instructions[0].Accounts[:2] }),
		"type field order": mutateIDL(t, func(idl *IDL) {
			fields := idl.Types[1].Type.Fields
			fields[0], fields[1] = fields[1], fields[0]
		}),
	} {
		_, err := NewSchema(idl)
		assert.Error(t, err, name)
	}
}

func mutateIDL(t *testing.T, mutate func(*IDL)) []byte {
	idl, err := ParseIDL(idlJSON)
	require.NoError(t, err)
	mutate(idl)
	out, err := json.Marshal(idl)
	require.NoError(t, err)
	return out
}
