package attest_protocol

// Discriminators published in the attestation program's IDL. Instructions use
// sha256("global:<name>")[:8], accounts sha256("account:<Name>")[:8] and events
// sha256("event:<Name>")[:8].
var (
	Instruction_Initialize        = [8]byte{0xaf, 0xaf, 0x6d, 0x1f, 0x0d, 0x98, 0x9b, 0xed}
	Instruction_CreateAttestation = [8]byte{0x31, 0x18, 0x43, 0x50, 0x0c, 0xf9, 0x60, 0xef}
	Instruction_LinkCertificate   = [8]byte{0xcf, 0x7a, 0x60, 0x36, 0x27, 0x7a, 0xe7, 0xd1}
	Instruction_VerifyAttestation = [8]byte{0x90, 0x1e, 0x74, 0xba, 0x21, 0xb0, 0x23, 0x3c}
	Instruction_UpdateMetadata    = [8]byte{0xaa, 0xb6, 0x2b, 0xef, 0x61, 0x4e, 0xe1, 0xba}
	Instruction_CloseAttestation  = [8]byte{0xf9, 0x54, 0x85, 0x17, 0x30, 0xaf, 0xfc, 0xdd}
	Instruction_SetPaused         = [8]byte{0x5b, 0x3c, 0x7d, 0xc0, 0xb0, 0xe1, 0xa6, 0xda}
	Instruction_TransferAdmin     = [8]byte{0x2a, 0xf2, 0x42, 0x6a, 0xe4, 0x0a, 0x6f, 0x9c}
)

var (
	Account_ProgramConfig = [8]byte{0xc4, 0xd2, 0x5a, 0xe7, 0x90, 0x95, 0x8c, 0x3f}
	Account_Attestation   = [8]byte{0x98, 0x7d, 0xb7, 0x56, 0x24, 0x92, 0x79, 0x49}
)

var (
	Event_ProgramInitialized  = [8]byte{0x2b, 0x46, 0x6e, 0xf1, 0xc7, 0xda, 0xdd, 0xf5}
	Event_AttestationCreated  = [8]byte{0xd9, 0xaa, 0x13, 0xcb, 0x80, 0x33, 0x1d, 0xa3}
	Event_CertificateLinked   = [8]byte{0x6b, 0x23, 0x09, 0xf9, 0x7d, 0x42, 0x15, 0xb0}
	Event_AttestationVerified = [8]byte{0x62, 0x94, 0xa7, 0xa1, 0x58, 0x3b, 0x6b, 0xe7}
	Event_MetadataUpdated     = [8]byte{0x84, 0x24, 0xd7, 0xf6, 0xa6, 0x5a, 0xbd, 0x2c}
	Event_AttestationClosed   = [8]byte{0x7e, 0x2d, 0x60, 0xab, 0x10, 0xc9, 0x0b, 0x4e}
)
