package attest_protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveAttestationAddress_Deterministic(t *testing.T) {
	hash := HashContent([]byte("hello"))

	addr1, bump1, err := DeriveAttestationAddress(testProgramID, hash)
	require.NoError(t, err)
	addr2, bump2, err := DeriveAttestationAddress(testProgramID, hash)
	require.NoError(t, err)

	assert.Equal(t, addr1, addr2)
	assert.Equal(t, bump1, bump2)
}

func TestDeriveAttestationAddress_DistinctPerHash(t *testing.T) {
	a, _, err := DeriveAttestationAddress(testProgramID, HashContent([]byte("a")))
	require.NoError(t, err)
	b, _, err := DeriveAttestationAddress(testProgramID, HashContent([]byte("b")))
	require.NoError(t, err)
	cfg, _, err := DeriveConfigAddress(testProgramID)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, cfg)
}

func TestClientPDAsMatchFreeFunctions(t *testing.T) {
	client, err := NewClientWithRPC(newFakeRPC(), testProgramID, nil)
	require.NoError(t, err)

	hash := HashContent([]byte("hello"))
	expected, expectedBump, err := DeriveAttestationAddress(testProgramID, hash)
	require.NoError(t, err)
	actual, actualBump, err := client.GetAttestationPDA(hash)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
	assert.Equal(t, expectedBump, actualBump)

	expected, _, err = DeriveConfigAddress(testProgramID)
	require.NoError(t, err)
	actual, _, err = client.GetConfigPDA()
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
}
