package attest_protocol

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/sync/errgroup"
)

const (
	// signatureLimit is the most signatures a node returns per request.
	signatureLimit = 1000

	historyConcurrency = 10
)

// AttestationEvents returns the program events recorded for contentHash,
// oldest first. Transactions that failed on chain are skipped.
func (c *Client) AttestationEvents(ctx context.Context, contentHash ContentHash) ([]*Event, error) {
	attestationPDA, _, err := c.GetAttestationPDA(contentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get attestation PDA: %w", err)
	}

	limit := signatureLimit
	signatures, err := c.RpcClient.GetSignaturesForAddressWithOpts(
		ctx,
		attestationPDA,
		&rpc.GetSignaturesForAddressOpts{
			Limit:      &limit,
			Commitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction signatures: %w", err)
	}

	var (
		mu     sync.Mutex
		events []*Event
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyConcurrency)
	for _, sigInfo := range signatures {
		if sigInfo == nil || sigInfo.Err != nil {
			continue
		}
		sig := sigInfo.Signature
		g.Go(func() error {
			found, err := c.transactionEvents(gctx, sig)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for _, ev := range found {
				if ev.ContentHash == contentHash {
					events = append(events, ev)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Slot != events[j].Slot {
			return events[i].Slot < events[j].Slot
		}
		return events[i].Timestamp < events[j].Timestamp
	})
	return events, nil
}

func (c *Client) transactionEvents(ctx context.Context, sig solana.Signature) ([]*Event, error) {
	version := uint64(0)
	tx, err := c.RpcClient.GetTransaction(
		ctx,
		sig,
		&rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &version,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", sig, err)
	}
	if tx == nil || tx.Meta == nil {
		return nil, nil
	}

	events := c.Schema.ParseEvents(tx.Meta.LogMessages)
	for _, ev := range events {
		ev.Signature = sig
		ev.Slot = tx.Slot
		if tx.BlockTime != nil {
			t := tx.BlockTime.Time()
			ev.BlockTime = &t
		}
	}
	return events, nil
}
