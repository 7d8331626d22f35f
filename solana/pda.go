package attest_protocol

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	ConfigSeed      = "config"
	AttestationSeed = "attestation"
)

// DeriveConfigAddress returns the Program Derived Address of the singleton
// config account.
func DeriveConfigAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{
			[]byte(ConfigSeed),
		},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive config address: %w", err)
	}
	return addr, bump, nil
}

// DeriveAttestationAddress returns the Program Derived Address of the
// attestation account for a content hash.
func DeriveAttestationAddress(programID solana.PublicKey, contentHash ContentHash) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{
			[]byte(AttestationSeed),
			contentHash[:],
		},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive attestation address: %w", err)
	}
	return addr, bump, nil
}

// GetConfigPDA returns the config address for the client's program.
func (c *Client) GetConfigPDA() (solana.PublicKey, uint8, error) {
	return DeriveConfigAddress(c.ProgramID)
}

// GetAttestationPDA returns the attestation address for contentHash under the
// client's program.
func (c *Client) GetAttestationPDA(contentHash ContentHash) (solana.PublicKey, uint8, error) {
	return DeriveAttestationAddress(c.ProgramID, contentHash)
}
