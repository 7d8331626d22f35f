package attest_protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// FetchAllAttestations fetches every attestation account owned by the
// program. Order is whatever the node returns.
func (c *Client) FetchAllAttestations(ctx context.Context) ([]*Attestation, error) {
	resp, err := c.RpcClient.GetProgramAccountsWithOpts(
		ctx,
		c.ProgramID,
		&rpc.GetProgramAccountsOpts{
			Commitment: c.Commitment,
			Encoding:   solana.EncodingBase64,
			Filters: []rpc.RPCFilter{
				{
					DataSize: AttestationSize,
				},
				{
					Memcmp: &rpc.RPCFilterMemcmp{
						Offset: 0,
						Bytes:  Account_Attestation[:],
					},
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get program accounts: %w", err)
	}

	attestations := make([]*Attestation, 0, len(resp))
	for _, account := range resp {
		if account == nil || account.Account == nil {
			continue
		}
		attestation, err := DecodeAttestation(account.Account.Data.GetBinary())
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", account.Pubkey, err)
		}
		attestations = append(attestations, attestation)
	}

	c.log.WithField("count", len(attestations)).Debug("fetched attestations")
	return attestations, nil
}

// FetchAttestationsByCreator returns the attestations created by creator.
// The creator field sits after three variable-length strings, so it cannot
// be matched by offset on the node and is filtered here instead.
func (c *Client) FetchAttestationsByCreator(ctx context.Context, creator solana.PublicKey) ([]*Attestation, error) {
	all, err := c.FetchAllAttestations(ctx)
	if err != nil {
		return nil, err
	}

	var mine []*Attestation
	for _, attestation := range all {
		if attestation.Creator.Equals(creator) {
			mine = append(mine, attestation)
		}
	}
	return mine, nil
}
