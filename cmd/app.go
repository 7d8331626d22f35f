package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"attest-cli/detection"
	attest_protocol "attest-cli/solana"
	"attest-cli/storage"
	"attest-cli/storage/sqlite"
)

// app holds the per-process dependencies every command shares. Each is
// built on first use so commands that never touch the chain don't need a
// program id.
type app struct {
	configPath string
	config     *Config

	out io.Writer

	wallet   *attest_protocol.Wallet
	client   *attest_protocol.Client
	detector *detection.Client
	history  storage.Store

	log *logrus.Entry
}

func newApp() *app {
	return &app{
		out: os.Stdout,
		log: logrus.StandardLogger().WithField("type", "cmd/app"),
	}
}

func (a *app) load() error {
	if a.config != nil {
		return nil
	}
	config, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	configureLogging(config.LogLevel)
	a.config = config
	return nil
}

// loadWallet loads the configured wallet, creating it on first use when
// create is set.
func (a *app) loadWallet(create bool) (*attest_protocol.Wallet, error) {
	if a.wallet != nil {
		return a.wallet, nil
	}

	path := a.config.WalletPath
	if path == "" {
		var err error
		if path, err = attest_protocol.DefaultWalletPath(); err != nil {
			return nil, err
		}
	}

	if !create {
		wallet, err := attest_protocol.LoadWallet(path)
		if err != nil {
			return nil, err
		}
		a.wallet = wallet
		return wallet, nil
	}

	wallet, created, err := attest_protocol.LoadOrCreateWallet(path)
	if err != nil {
		return nil, err
	}
	if created {
		fmt.Fprintln(a.out, titleStyle.Render("New wallet created"))
		fmt.Fprintln(a.out, promptStyle.Render("   Address:"), wallet.PublicKey().String())
		fmt.Fprintln(a.out, promptStyle.Render("   Saved to:"), path)
		fmt.Fprintln(a.out, promptStyle.Render("   Fund it with devnet SOL before submitting attestations."))
	}
	a.wallet = wallet
	return wallet, nil
}

// protocolClient returns the attestation client. With a signer it loads or
// creates the wallet, otherwise it uses the wallet if one exists and falls
// back to a read-only client.
func (a *app) protocolClient(withSigner bool) (*attest_protocol.Client, error) {
	if a.client != nil && (!withSigner || a.client.WalletConnected()) {
		return a.client, nil
	}

	programID, err := a.config.Program()
	if err != nil {
		return nil, err
	}

	wallet, err := a.loadWallet(withSigner)
	if err != nil && withSigner {
		return nil, err
	}

	var client *attest_protocol.Client
	if wallet != nil {
		client, err = attest_protocol.NewClient(a.config.RpcEndpoint, programID, wallet.PrivateKey)
	} else {
		a.log.WithError(err).Debug("no wallet available, using a read-only client")
		client, err = attest_protocol.NewReadOnlyClient(a.config.RpcEndpoint, programID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create solana client")
	}
	client.Commitment = rpc.CommitmentType(a.config.Commitment)

	a.client = client
	return client, nil
}

func (a *app) detectionClient() *detection.Client {
	if a.detector == nil {
		a.detector = detection.NewClient(a.config.DetectionApiUrl)
	}
	return a.detector
}

// historyStore opens the local history with the configured backend.
func (a *app) historyStore() (storage.Store, error) {
	if a.history != nil {
		return a.history, nil
	}

	path := a.config.HistoryPath
	var (
		store storage.Store
		err   error
	)
	switch a.config.HistoryBackend {
	case historyBackendSQLite:
		if path == "" {
			if path, err = storage.DefaultPath("history.db"); err != nil {
				return nil, err
			}
		}
		if err = os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, errors.Wrap(err, "failed to create history directory")
		}
		store, err = sqlite.Open(path)
	default:
		store, err = storage.Connect(path)
	}
	if err != nil {
		return nil, err
	}

	a.history = store
	return store, nil
}

// remember records a submitted attestation locally. The chain already has
// it, so a failure here is only logged.
func (a *app) remember(ctx context.Context, record *storage.Record) {
	store, err := a.historyStore()
	if err == nil {
		err = store.Save(ctx, record)
	}
	if err != nil {
		a.log.WithError(err).Warn("failed to save attestation to local history")
	}
}

func (a *app) forget(ctx context.Context, contentHash string) {
	store, err := a.historyStore()
	if err == nil {
		err = store.Delete(ctx, contentHash)
	}
	if err != nil && err != storage.ErrNotFound {
		a.log.WithError(err).Warn("failed to remove attestation from local history")
	}
}

func (a *app) close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close history store")
		}
		a.history = nil
	}
}
