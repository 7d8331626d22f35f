package attest_protocol

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCreateAttestation_Layout(t *testing.T) {
	hash := HashContent([]byte("hello"))
	bp, err := PercentToBasisPoints(85.0)
	require.NoError(t, err)

	data, err := EncodeCreateAttestation(&CreateAttestationArgs{
		ContentHash:    hash,
		AiProbability:  bp,
		ContentType:    "text",
		DetectionModel: "m1",
		MetadataUri:    "",
	})
	require.NoError(t, err)

	assert.Equal(t, []byte{0x31, 0x18, 0x43, 0x50, 0x0c, 0xf9, 0x60, 0xef}, data[:8])
	assert.Equal(t, hash[:], data[8:40])
	assert.EqualValues(t, 8500, binary.LittleEndian.Uint16(data[40:42]))

	rest := data[42:]
	assert.EqualValues(t, 4, binary.LittleEndian.Uint32(rest[0:4]))
	assert.Equal(t, "text", string(rest[4:8]))
	assert.EqualValues(t, 2, binary.LittleEndian.Uint32(rest[8:12]))
	assert.Equal(t, "m1", string(rest[12:14]))
	assert.EqualValues(t, 0, binary.LittleEndian.Uint32(rest[14:18]))
	assert.Len(t, data, 42+18)
}

func TestCreateAttestation_RoundTrip(t *testing.T) {
	for _, args := range []*CreateAttestationArgs{
		{
			ContentHash:    HashContent([]byte("hello")),
			AiProbability:  8500,
			ContentType:    "text",
			DetectionModel: "m1",
		},
		{
			ContentHash:    HashContent([]byte("image")),
			AiProbability:  0,
			ContentType:    "image",
			DetectionModel: "",
			MetadataUri:    "ipfs://bafy",
		},
		{
			ContentHash:    HashContent([]byte("max")),
			AiProbability:  MaxBasisPoints,
			ContentType:    strings.Repeat("t", MaxContentTypeLen),
			DetectionModel: strings.Repeat("m", MaxModelNameLen),
			MetadataUri:    strings.Repeat("u", MaxURILen),
		},
		{
			ContentHash:    HashContent([]byte("utf8")),
			AiProbability:  1,
			ContentType:    "texte",
			DetectionModel: "modèle",
			MetadataUri:    "https://example.com/ü",
		},
	} {
		data, err := EncodeCreateAttestation(args)
		require.NoError(t, err)

		decoded, err := DecodeCreateAttestation(data)
		require.NoError(t, err)
		assert.Equal(t, args, decoded)
	}
}

func TestDecodeCreateAttestation_RejectsTrailingBytes(t *testing.T) {
	data, err := EncodeCreateAttestation(&CreateAttestationArgs{
		ContentHash:   HashContent([]byte("hello")),
		AiProbability: 1,
	})
	require.NoError(t, err)

	_, err = DecodeCreateAttestation(append(data, 0))
	assert.True(t, IsMalformedAccount(err))
}

func TestCreateAttestationArgs_Validation(t *testing.T) {
	valid := func() *CreateAttestationArgs {
		return &CreateAttestationArgs{
			ContentHash:    HashContent([]byte("hello")),
			AiProbability:  5000,
			ContentType:    "text",
			DetectionModel: "m1",
		}
	}

	for name, mutate := range map[string]func(*CreateAttestationArgs){
		"zero hash":          func(a *CreateAttestationArgs) { a.ContentHash = ContentHash{} },
		"probability":        func(a *CreateAttestationArgs) { a.AiProbability = MaxBasisPoints + 1 },
		"content type":       func(a *CreateAttestationArgs) { a.ContentType = strings.Repeat("x", MaxContentTypeLen+1) },
		"detection model":    func(a *CreateAttestationArgs) { a.DetectionModel = strings.Repeat("x", MaxModelNameLen+1) },
		"metadata uri":       func(a *CreateAttestationArgs) { a.MetadataUri = strings.Repeat("x", MaxURILen+1) },
		"invalid utf8":       func(a *CreateAttestationArgs) { a.ContentType = string([]byte{0xff, 0xfe}) },
		"multibyte overflow": func(a *CreateAttestationArgs) { a.ContentType = strings.Repeat("é", 11) },
	} {
		args := valid()
		mutate(args)
		_, err := EncodeCreateAttestation(args)
		assert.True(t, IsValidation(err), name)
	}
}

func TestEncodeUpdateMetadata(t *testing.T) {
	data, err := EncodeUpdateMetadata("ipfs://x")
	require.NoError(t, err)
	assert.Equal(t, Instruction_UpdateMetadata[:], data[:8])
	assert.EqualValues(t, 8, binary.LittleEndian.Uint32(data[8:12]))
	assert.Equal(t, "ipfs://x", string(data[12:]))

	_, err = EncodeUpdateMetadata(strings.Repeat("x", MaxURILen+1))
	assert.True(t, IsValidation(err))
}

func TestEncodeFixedInstructions(t *testing.T) {
	asset := solana.NewWallet().PublicKey()

	assert.Equal(t, Instruction_Initialize[:], EncodeInitialize())
	assert.Equal(t, Instruction_CloseAttestation[:], EncodeCloseAttestation())
	assert.Equal(t, Instruction_VerifyAttestation[:], EncodeVerifyAttestation())
	assert.Equal(t, append(Instruction_LinkCertificate[:], asset[:]...), EncodeLinkCertificate(asset))
	assert.Equal(t, append(Instruction_TransferAdmin[:], asset[:]...), EncodeTransferAdmin(asset))
	assert.Equal(t, append(Instruction_SetPaused[:], 1), EncodeSetPaused(true))
	assert.Equal(t, append(Instruction_SetPaused[:], 0), EncodeSetPaused(false))
}

func TestNewCloseAttestationInstruction_Accounts(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	attestation, _, err := DeriveAttestationAddress(testProgramID, HashContent([]byte("hello")))
	require.NoError(t, err)

	ix := NewCloseAttestationInstruction(testProgramID, &CreatorInstructionAccounts{
		Creator:     creator,
		Attestation: attestation,
	})

	accounts := ix.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, creator, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[0].IsWritable)
	assert.Equal(t, attestation, accounts[1].PublicKey)
	assert.True(t, accounts[1].IsWritable)
	assert.Equal(t, testProgramID, ix.ProgramID())
}
