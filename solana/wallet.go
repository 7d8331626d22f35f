package attest_protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

const (
	defaultConfigDirName = ".config"
	attestConfigDirName  = "attest"
	walletFileName       = "wallet.json"
)

// Wallet holds the Solana keypair for the CLI.
type Wallet struct {
	PrivateKey solana.PrivateKey
}

// PublicKey returns the public key of the wallet.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.PrivateKey.PublicKey()
}

// LoadWallet reads a solana-keygen style keypair file.
func LoadWallet(path string) (*Wallet, error) {
	privateKey, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet from %s: %w", path, err)
	}
	return &Wallet{PrivateKey: privateKey}, nil
}

// LoadOrCreateWallet loads the wallet at path, or creates a new one there if
// it doesn't exist. An empty path uses DefaultWalletPath.
func LoadOrCreateWallet(path string) (*Wallet, bool, error) {
	if path == "" {
		var err error
		if path, err = DefaultWalletPath(); err != nil {
			return nil, false, err
		}
	}

	log := logrus.StandardLogger().WithFields(logrus.Fields{
		"type": "attest_protocol/wallet",
		"path": path,
	})

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Info("no existing wallet found, creating a new one")
		wallet, err := createNewWallet(path)
		return wallet, true, err
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to check for wallet file: %w", err)
	}

	log.Debug("loading existing wallet")
	wallet, err := LoadWallet(path)
	return wallet, false, err
}

// createNewWallet generates a new private key and saves it to the specified path.
func createNewWallet(path string) (*Wallet, error) {
	wallet := &Wallet{PrivateKey: solana.NewWallet().PrivateKey}

	if err := saveWalletToFile(wallet, path); err != nil {
		return nil, fmt.Errorf("failed to save new wallet: %w", err)
	}
	return wallet, nil
}

// saveWalletToFile writes the key as a JSON byte array, the format
// solana-keygen uses.
func saveWalletToFile(wallet *Wallet, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create wallet directory: %w", err)
	}

	keyBytes := make([]int, len(wallet.PrivateKey))
	for i, b := range wallet.PrivateKey {
		keyBytes[i] = int(b)
	}
	bytes, err := json.Marshal(keyBytes)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	if err := os.WriteFile(path, bytes, 0600); err != nil {
		return fmt.Errorf("failed to write wallet file: %w", err)
	}

	return nil
}

// DefaultWalletPath returns the default absolute path for the wallet file.
// e.g., /home/user/.config/attest/wallet.json
func DefaultWalletPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, defaultConfigDirName, attestConfigDirName, walletFileName), nil
}
