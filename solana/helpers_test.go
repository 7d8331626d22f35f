package attest_protocol

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var testProgramID = solana.MustPublicKeyFromBase58("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")

type accountBuilder struct {
	buf []byte
}

func newAccountBuilder(discriminator [8]byte) *accountBuilder {
	return &accountBuilder{buf: append([]byte(nil), discriminator[:]...)}
}

func (b *accountBuilder) raw(v []byte) *accountBuilder {
	b.buf = append(b.buf, v...)
	return b
}

func (b *accountBuilder) u8(v uint8) *accountBuilder {
	b.buf = append(b.buf, v)
	return b
}

func (b *accountBuilder) u16(v uint16) *accountBuilder {
	b.buf = binary.LittleEndian.AppendUint16(b.buf, v)
	return b
}

func (b *accountBuilder) u64(v uint64) *accountBuilder {
	b.buf = binary.LittleEndian.AppendUint64(b.buf, v)
	return b
}

func (b *accountBuilder) i64(v int64) *accountBuilder {
	return b.u64(uint64(v))
}

func (b *accountBuilder) str(s string) *accountBuilder {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(len(s)))
	b.buf = append(b.buf, s...)
	return b
}

func (b *accountBuilder) padTo(n int) []byte {
	for len(b.buf) < n {
		b.buf = append(b.buf, 0)
	}
	return b.buf
}

func encodeAttestationAccount(a *Attestation) []byte {
	b := newAccountBuilder(Account_Attestation).
		raw(a.ContentHash[:]).
		u16(a.AiProbability).
		str(a.ContentType).
		str(a.DetectionModel).
		str(a.MetadataUri).
		raw(a.Creator[:]).
		i64(a.CreatedAt)
	if a.IsVerified {
		b.u8(1)
	} else {
		b.u8(0)
	}
	if key, ok := a.VerifiedBy.Get(); ok {
		b.u8(1).raw(key[:])
	} else {
		b.u8(0)
	}
	if at, ok := a.VerifiedAt.Get(); ok {
		b.u8(1).i64(at)
	} else {
		b.u8(0)
	}
	if asset, ok := a.CnftAssetId.Get(); ok {
		b.u8(1).raw(asset[:])
	} else {
		b.u8(0)
	}
	b.u8(a.Bump).u8(a.Version)
	return b.padTo(AttestationSize)
}

func encodeConfigAccount(cfg *ProgramConfig) []byte {
	b := newAccountBuilder(Account_ProgramConfig).
		raw(cfg.Admin[:]).
		u64(cfg.TotalAttestations)
	if cfg.IsPaused {
		b.u8(1)
	} else {
		b.u8(0)
	}
	return b.u8(cfg.Bump).buf
}

func sampleAttestation(content string, creator solana.PublicKey) *Attestation {
	return &Attestation{
		ContentHash:    HashContent([]byte(content)),
		AiProbability:  8500,
		ContentType:    "text",
		DetectionModel: "m1",
		MetadataUri:    "https://example.com/meta.json",
		Creator:        creator,
		CreatedAt:      1700000000,
		VerifiedBy:     None[solana.PublicKey](),
		VerifiedAt:     None[int64](),
		CnftAssetId:    None[solana.PublicKey](),
		Bump:           254,
		Version:        AttestationVersion,
	}
}

// fakeRPC is an in-memory RPCClient. Accounts not present in the map are
// reported as not found.
type fakeRPC struct {
	mu sync.Mutex

	accounts        map[solana.PublicKey][]byte
	owners          map[solana.PublicKey]solana.PublicKey
	programAccounts rpc.GetProgramAccountsResult
	accountInfoErr  error

	sendErr  error
	sent     []*solana.Transaction
	statuses []*rpc.SignatureStatusesResult

	signatures   []*rpc.TransactionSignature
	transactions map[solana.Signature]*rpc.GetTransactionResult

	lastProgramAccountsOpts *rpc.GetProgramAccountsOpts
	balance                 uint64
	rent                    uint64
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{
		accounts:     make(map[solana.PublicKey][]byte),
		owners:       make(map[solana.PublicKey]solana.PublicKey),
		transactions: make(map[solana.Signature]*rpc.GetTransactionResult),
	}
}

func (f *fakeRPC) setAccount(address solana.PublicKey, data []byte) {
	f.accounts[address] = data
	f.owners[address] = testProgramID
}

func (f *fakeRPC) GetAccountInfoWithOpts(_ context.Context, account solana.PublicKey, _ *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accountInfoErr != nil {
		return nil, f.accountInfoErr
	}
	data, ok := f.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{
			Owner: f.owners[account],
			Data:  rpc.DataBytesOrJSONFromBytes(data),
		},
	}, nil
}

func (f *fakeRPC) GetProgramAccountsWithOpts(_ context.Context, _ solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastProgramAccountsOpts = opts
	return f.programAccounts, nil
}

func (f *fakeRPC) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{1, 2, 3}},
	}, nil
}

func (f *fakeRPC) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

// GetSignatureStatuses pops one queued status per call and repeats the last
// one once the queue is drained.
func (f *fakeRPC) GetSignatureStatuses(context.Context, bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var status *rpc.SignatureStatusesResult
	if len(f.statuses) > 0 {
		status = f.statuses[0]
		if len(f.statuses) > 1 {
			f.statuses = f.statuses[1:]
		}
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{status}}, nil
}

func (f *fakeRPC) GetSignaturesForAddressWithOpts(context.Context, solana.PublicKey, *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error) {
	return f.signatures, nil
}

func (f *fakeRPC) GetTransaction(_ context.Context, sig solana.Signature, _ *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.transactions[sig]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return tx, nil
}

func (f *fakeRPC) GetBalance(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	return &rpc.GetBalanceResult{Value: f.balance}, nil
}

func (f *fakeRPC) GetMinimumBalanceForRentExemption(context.Context, uint64, rpc.CommitmentType) (uint64, error) {
	return f.rent, nil
}

var _ RPCClient = (*fakeRPC)(nil)

func jsonRoundTrip(in, out interface{}) (string, error) {
	encoded, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	return string(encoded), json.Unmarshal(encoded, out)
}
