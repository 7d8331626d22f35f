package attest_protocol

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"
)

const defaultPollInterval = 500 * time.Millisecond

// Client is a client for the attestation program. A nil Signer gives a
// read-only client; write operations then fail with ErrWalletNotConnected.
type Client struct {
	RpcClient  RPCClient
	Signer     solana.PrivateKey
	ProgramID  solana.PublicKey
	Commitment rpc.CommitmentType
	Schema     *Schema

	// PollInterval is the delay between confirmation status checks.
	PollInterval time.Duration

	log *logrus.Entry
}

// NewClient creates a new Client for the attestation program with a specific signer.
func NewClient(rpcEndpoint string, programID solana.PublicKey, signer solana.PrivateKey) (*Client, error) {
	return NewClientWithRPC(rpc.New(rpcEndpoint), programID, signer)
}

// NewReadOnlyClient creates a new client for operations that don't require a signer.
func NewReadOnlyClient(rpcEndpoint string, programID solana.PublicKey) (*Client, error) {
	return NewClientWithRPC(rpc.New(rpcEndpoint), programID, nil)
}

// NewClientWithRPC builds a client on an existing RPC connection. The
// embedded program schema is validated here so a mismatched build fails
// before any account is read.
func NewClientWithRPC(rpcClient RPCClient, programID solana.PublicKey, signer solana.PrivateKey) (*Client, error) {
	if programID.IsZero() {
		return nil, errors.New("program id is required")
	}

	schema, err := LoadSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to load program schema: %w", err)
	}

	return &Client{
		RpcClient:    rpcClient,
		Signer:       signer,
		ProgramID:    programID,
		Commitment:   rpc.CommitmentConfirmed,
		Schema:       schema,
		PollInterval: defaultPollInterval,
		log:          logrus.StandardLogger().WithField("type", "attest_protocol/client"),
	}, nil
}

// WalletConnected reports whether the client can sign.
func (c *Client) WalletConnected() bool {
	return len(c.Signer) == ed25519.PrivateKeySize
}

// WalletAddress returns the signer's public key.
func (c *Client) WalletAddress() (solana.PublicKey, error) {
	if !c.WalletConnected() {
		return solana.PublicKey{}, ErrWalletNotConnected
	}
	return c.Signer.PublicKey(), nil
}

// fetchAccountData returns nil data when the account does not exist.
func (c *Client) fetchAccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	resp, err := c.RpcClient.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: c.Commitment,
		Encoding:   solana.EncodingBase64,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account info for %s: %w", address, err)
	}
	if resp == nil || resp.Value == nil {
		return nil, nil
	}
	data := resp.Value.Data.GetBinary()
	// A closed or never-funded address reads back as an empty system account.
	if resp.Value.Owner.Equals(solana.SystemProgramID) && len(data) == 0 {
		return nil, nil
	}
	if !resp.Value.Owner.Equals(c.ProgramID) {
		return nil, malformed("program", "account %s is owned by %s", address, resp.Value.Owner)
	}
	return data, nil
}

// FetchConfig fetches the program configuration. It returns nil, nil when
// the program has not been initialized.
func (c *Client) FetchConfig(ctx context.Context) (*ProgramConfig, error) {
	configPDA, _, err := c.GetConfigPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get config PDA: %w", err)
	}

	data, err := c.fetchAccountData(ctx, configPDA)
	if err != nil || data == nil {
		return nil, err
	}
	return DecodeProgramConfig(data)
}

// FetchAttestation fetches the attestation for a content hash. It returns
// nil, nil when none exists.
func (c *Client) FetchAttestation(ctx context.Context, contentHash ContentHash) (*Attestation, error) {
	attestationPDA, _, err := c.GetAttestationPDA(contentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get attestation PDA: %w", err)
	}

	data, err := c.fetchAccountData(ctx, attestationPDA)
	if err != nil || data == nil {
		return nil, err
	}
	return DecodeAttestation(data)
}

// Initialize creates the config account with the signer as admin.
func (c *Client) Initialize(ctx context.Context) (solana.Signature, error) {
	admin, err := c.WalletAddress()
	if err != nil {
		return solana.Signature{}, err
	}

	configPDA, _, err := c.GetConfigPDA()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get config PDA: %w", err)
	}

	ix := NewInitializeInstruction(c.ProgramID, &InitializeInstructionAccounts{
		Admin:  admin,
		Config: configPDA,
	})
	return c.sendAndConfirm(ctx, "initialize", ix)
}

// EnsureInitialized initializes the program unless the config account
// already exists. The returned bool is true when this call created it.
func (c *Client) EnsureInitialized(ctx context.Context) (bool, error) {
	config, err := c.FetchConfig(ctx)
	if err != nil {
		return false, err
	}
	if config != nil {
		return false, nil
	}

	if _, err := c.Initialize(ctx); err != nil {
		if IsAlreadyInitialized(err) {
			c.log.Debug("config account created concurrently")
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateAttestation records a detection result for contentHash.
// aiProbabilityPercent is in [0, 100] and is stored as basis points.
func (c *Client) CreateAttestation(
	ctx context.Context,
	contentHash ContentHash,
	aiProbabilityPercent float64,
	contentType string,
	detectionModel string,
	metadataUri string,
) (solana.Signature, error) {
	creator, err := c.WalletAddress()
	if err != nil {
		return solana.Signature{}, err
	}

	basisPoints, err := PercentToBasisPoints(aiProbabilityPercent)
	if err != nil {
		return solana.Signature{}, err
	}
	args := &CreateAttestationArgs{
		ContentHash:    contentHash,
		AiProbability:  basisPoints,
		ContentType:    contentType,
		DetectionModel: detectionModel,
		MetadataUri:    metadataUri,
	}
	if err := args.Validate(); err != nil {
		return solana.Signature{}, err
	}

	config, err := c.FetchConfig(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	if config == nil {
		return solana.Signature{}, ErrProgramUninitialized
	}

	attestationPDA, _, err := c.GetAttestationPDA(contentHash)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get attestation PDA: %w", err)
	}
	configPDA, _, err := c.GetConfigPDA()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get config PDA: %w", err)
	}

	ix, err := NewCreateAttestationInstruction(c.ProgramID, &CreateAttestationInstructionAccounts{
		Creator:     creator,
		Attestation: attestationPDA,
		Config:      configPDA,
	}, args)
	if err != nil {
		return solana.Signature{}, err
	}

	c.log.WithFields(logrus.Fields{
		"content_hash":   contentHash.String(),
		"ai_probability": basisPoints,
		"attestation":    attestationPDA.String(),
	}).Debug("creating attestation")

	return c.sendAndConfirm(ctx, "create_attestation", ix)
}

// CloseAttestation closes the attestation and returns its rent to the
// creator. Only the creator may close it.
func (c *Client) CloseAttestation(ctx context.Context, contentHash ContentHash) (solana.Signature, error) {
	accounts, err := c.creatorAccounts(contentHash)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.sendAndConfirm(ctx, "close_attestation", NewCloseAttestationInstruction(c.ProgramID, accounts))
}

// LinkCertificate records a compressed NFT certificate on the attestation.
func (c *Client) LinkCertificate(ctx context.Context, contentHash ContentHash, assetID solana.PublicKey) (solana.Signature, error) {
	accounts, err := c.creatorAccounts(contentHash)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.sendAndConfirm(ctx, "link_certificate", NewLinkCertificateInstruction(c.ProgramID, accounts, assetID))
}

// UpdateMetadata replaces the attestation's metadata URI.
func (c *Client) UpdateMetadata(ctx context.Context, contentHash ContentHash, metadataUri string) (solana.Signature, error) {
	accounts, err := c.creatorAccounts(contentHash)
	if err != nil {
		return solana.Signature{}, err
	}
	ix, err := NewUpdateMetadataInstruction(c.ProgramID, accounts, metadataUri)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.sendAndConfirm(ctx, "update_metadata", ix)
}

func (c *Client) creatorAccounts(contentHash ContentHash) (*CreatorInstructionAccounts, error) {
	creator, err := c.WalletAddress()
	if err != nil {
		return nil, err
	}
	attestationPDA, _, err := c.GetAttestationPDA(contentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get attestation PDA: %w", err)
	}
	return &CreatorInstructionAccounts{Creator: creator, Attestation: attestationPDA}, nil
}

// VerifyAttestation marks the attestation verified. Signer must be the admin.
func (c *Client) VerifyAttestation(ctx context.Context, contentHash ContentHash) (solana.Signature, error) {
	authority, err := c.WalletAddress()
	if err != nil {
		return solana.Signature{}, err
	}
	attestationPDA, _, err := c.GetAttestationPDA(contentHash)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get attestation PDA: %w", err)
	}
	configPDA, _, err := c.GetConfigPDA()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get config PDA: %w", err)
	}

	ix := NewVerifyAttestationInstruction(c.ProgramID, &VerifyAttestationInstructionAccounts{
		Authority:   authority,
		Attestation: attestationPDA,
		Config:      configPDA,
	})
	return c.sendAndConfirm(ctx, "verify_attestation", ix)
}

// SetPaused pauses or resumes attestation creation.
func (c *Client) SetPaused(ctx context.Context, paused bool) (solana.Signature, error) {
	accounts, err := c.adminAccounts()
	if err != nil {
		return solana.Signature{}, err
	}
	return c.sendAndConfirm(ctx, "set_paused", NewSetPausedInstruction(c.ProgramID, accounts, paused))
}

// TransferAdmin hands the admin role to newAdmin.
func (c *Client) TransferAdmin(ctx context.Context, newAdmin solana.PublicKey) (solana.Signature, error) {
	accounts, err := c.adminAccounts()
	if err != nil {
		return solana.Signature{}, err
	}
	return c.sendAndConfirm(ctx, "transfer_admin", NewTransferAdminInstruction(c.ProgramID, accounts, newAdmin))
}

func (c *Client) adminAccounts() (*AdminInstructionAccounts, error) {
	admin, err := c.WalletAddress()
	if err != nil {
		return nil, err
	}
	configPDA, _, err := c.GetConfigPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get config PDA: %w", err)
	}
	return &AdminInstructionAccounts{Admin: admin, Config: configPDA}, nil
}

// Balance returns the signer's balance in lamports.
func (c *Client) Balance(ctx context.Context) (uint64, error) {
	owner, err := c.WalletAddress()
	if err != nil {
		return 0, err
	}
	resp, err := c.RpcClient.GetBalance(ctx, owner, c.Commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return resp.Value, nil
}

// SendSol transfers lamports from the wallet to recipient.
func (c *Client) SendSol(ctx context.Context, recipient solana.PublicKey, amountLamports uint64) (solana.Signature, error) {
	sender, err := c.WalletAddress()
	if err != nil {
		return solana.Signature{}, err
	}
	if amountLamports == 0 {
		return solana.Signature{}, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}

	instruction := system.NewTransferInstruction(
		amountLamports,
		sender,
		recipient,
	).Build()
	return c.sendAndConfirm(ctx, "transfer", instruction)
}

// AttestationRent returns the rent-exempt minimum paid when an attestation
// is created.
func (c *Client) AttestationRent(ctx context.Context) (uint64, error) {
	lamports, err := c.RpcClient.GetMinimumBalanceForRentExemption(ctx, AttestationSize, c.Commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get rent exemption: %w", err)
	}
	return lamports, nil
}

// sendAndConfirm signs instructions with the wallet, submits them, and
// blocks until the cluster reports the client's commitment level.
func (c *Client) sendAndConfirm(ctx context.Context, op string, instructions ...solana.Instruction) (solana.Signature, error) {
	payer, err := c.WalletAddress()
	if err != nil {
		return solana.Signature{}, err
	}

	latestBlockhash, err := c.RpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		latestBlockhash.Value.Blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(
		func(key solana.PublicKey) *solana.PrivateKey {
			if payer.Equals(key) {
				return &c.Signer
			}
			return nil
		},
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.RpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.Commitment,
	})
	if err != nil {
		return solana.Signature{}, c.describe(classifySendError(op, err))
	}

	log := c.log.WithFields(logrus.Fields{"op": op, "signature": sig.String()})
	log.Debug("transaction submitted")

	if err := c.waitForConfirmation(ctx, op, sig); err != nil {
		return sig, c.describe(err)
	}

	log.Info("transaction confirmed")
	return sig, nil
}

func (c *Client) describe(err error) error {
	var pe *ProgramError
	if errors.As(err, &pe) && pe.ErrorCode != 0 && pe.ErrorMessage == "" {
		pe.ErrorMessage, _ = c.Schema.ErrorMessage(pe.ErrorCode)
	}
	return err
}

func (c *Client) waitForConfirmation(ctx context.Context, op string, sig solana.Signature) error {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		out, err := c.RpcClient.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return fmt.Errorf("failed to get signature status: %w", err)
		}

		if out != nil && len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return newProgramError(op, c.transactionLogs(ctx, sig), fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err))
			}
			if commitmentReached(status.ConfirmationStatus, c.Commitment) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func commitmentReached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return want != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return want == rpc.CommitmentProcessed
	}
	return false
}

// transactionLogs returns the log messages of a landed transaction, or nil
// when they cannot be fetched.
func (c *Client) transactionLogs(ctx context.Context, sig solana.Signature) []string {
	version := uint64(0)
	tx, err := c.RpcClient.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &version,
	})
	if err != nil || tx == nil || tx.Meta == nil {
		return nil
	}
	return tx.Meta.LogMessages
}
