package attest_protocol

import (
	"encoding/base64"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeAttestationCreatedEvent(hash ContentHash, creator solana.PublicKey, timestamp int64) []byte {
	return newAccountBuilder(Event_AttestationCreated).
		raw(hash[:]).
		u16(8500).
		str("text").
		str("m1").
		raw(creator[:]).
		i64(timestamp).
		buf
}

func programDataLine(data []byte) string {
	return "Program data: " + base64.StdEncoding.EncodeToString(data)
}

func TestDecodeEvent_AttestationCreated(t *testing.T) {
	schema, err := LoadSchema()
	require.NoError(t, err)

	hash := HashContent([]byte("hello"))
	creator := solana.NewWallet().PublicKey()

	ev, err := schema.DecodeEvent(encodeAttestationCreatedEvent(hash, creator, 1700000000))
	require.NoError(t, err)

	assert.Equal(t, EventAttestationCreated, ev.Name)
	assert.Equal(t, hash, ev.ContentHash)
	assert.EqualValues(t, 8500, ev.AiProbability)
	assert.Equal(t, "text", ev.ContentType)
	assert.Equal(t, "m1", ev.DetectionModel)
	assert.Equal(t, creator, ev.Actor)
	assert.EqualValues(t, 1700000000, ev.Timestamp)
}

func TestDecodeEvent_CertificateLinked(t *testing.T) {
	schema, err := LoadSchema()
	require.NoError(t, err)

	hash := HashContent([]byte("hello"))
	asset := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()

	data := newAccountBuilder(Event_CertificateLinked).
		raw(hash[:]).
		raw(asset[:]).
		raw(creator[:]).
		i64(5).
		buf

	ev, err := schema.DecodeEvent(data)
	require.NoError(t, err)
	actualAsset, ok := ev.CnftAssetId.Get()
	require.True(t, ok)
	assert.Equal(t, asset, actualAsset)
	assert.Equal(t, creator, ev.Actor)
}

func TestDecodeEvent_Errors(t *testing.T) {
	schema, err := LoadSchema()
	require.NoError(t, err)

	_, err = schema.DecodeEvent([]byte{1, 2, 3})
	assert.True(t, IsMalformedAccount(err))

	_, err = schema.DecodeEvent([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	truncated := encodeAttestationCreatedEvent(HashContent([]byte("x")), solana.PublicKey{}, 1)
	_, err = schema.DecodeEvent(truncated[:len(truncated)-4])
	assert.True(t, IsMalformedAccount(err))
}

func TestParseEvents_SkipsForeignLines(t *testing.T) {
	schema, err := LoadSchema()
	require.NoError(t, err)

	hash := HashContent([]byte("hello"))
	closed := newAccountBuilder(Event_AttestationClosed).
		raw(hash[:]).
		raw(make([]byte, 32)).
		i64(9).
		buf

	logs := []string{
		"Program Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS invoke [1]",
		"Program log: Instruction: CreateAttestation",
		programDataLine(encodeAttestationCreatedEvent(hash, solana.PublicKey{}, 1)),
		programDataLine([]byte("not an event at all")),
		"Program data: !!!not-base64",
		programDataLine(closed),
		"Program Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS success",
	}

	events := schema.ParseEvents(logs)
	require.Len(t, events, 2)
	assert.Equal(t, EventAttestationCreated, events[0].Name)
	assert.Equal(t, EventAttestationClosed, events[1].Name)
	assert.EqualValues(t, 9, events[1].Timestamp)
}
