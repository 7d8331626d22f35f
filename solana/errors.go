package attest_protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	// ErrWalletNotConnected is returned by write operations on a client built
	// without a signer.
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrProgramUninitialized is returned when the config account does not
	// exist yet and an operation depends on it.
	ErrProgramUninitialized = errors.New("attestation program is not initialized")

	// ErrTransactionFailed is returned when a submitted transaction lands but
	// executes with an error.
	ErrTransactionFailed = errors.New("transaction failed")
)

// MalformedAccountError signals that account bytes do not match the expected
// layout. It usually means the client and the deployed program disagree on
// the schema version.
type MalformedAccountError struct {
	Account string
	Reason  string
}

func (e *MalformedAccountError) Error() string {
	return fmt.Sprintf("malformed %s account: %s", e.Account, e.Reason)
}

func malformed(account, format string, args ...interface{}) error {
	return &MalformedAccountError{Account: account, Reason: fmt.Sprintf(format, args...)}
}

// IsMalformedAccount reports whether err wraps a MalformedAccountError.
func IsMalformedAccount(err error) bool {
	var target *MalformedAccountError
	return errors.As(err, &target)
}

// ValidationError is returned when instruction arguments would be rejected
// by the program. Checked before anything is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// ProgramError is a remote rejection. The client does not interpret it
// beyond extracting the Anchor error name when one is logged.
type ProgramError struct {
	Op           string
	Logs         []string
	ErrorName    string
	ErrorCode    int
	ErrorMessage string
	Err          error
}

func (e *ProgramError) Error() string {
	if e.ErrorMessage != "" {
		return fmt.Sprintf("%s rejected by program: %s (%d) %s: %v", e.Op, e.ErrorName, e.ErrorCode, e.ErrorMessage, e.Err)
	}
	if e.ErrorName != "" {
		return fmt.Sprintf("%s rejected by program: %s (%d): %v", e.Op, e.ErrorName, e.ErrorCode, e.Err)
	}
	return fmt.Sprintf("%s rejected: %v", e.Op, e.Err)
}

func (e *ProgramError) Unwrap() error {
	return e.Err
}

var anchorErrorPattern = regexp.MustCompile(`Error Code: (\w+)\. Error Number: (\d+)`)

// classifySendError turns a failed preflight simulation into a ProgramError
// carrying its logs. Anything else is wrapped and returned as is.
func classifySendError(op string, err error) error {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return fmt.Errorf("failed to send %s transaction: %w", op, err)
	}

	// Only a failed simulation carries logs or a transaction error. Node-side
	// rejections (rate limits, unhealthy node, bad params) stay plain errors.
	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return fmt.Errorf("failed to send %s transaction: %w", op, err)
	}
	raw, hasLogs := data["logs"].([]interface{})
	txErr, hasErr := data["err"]
	if !hasLogs && (!hasErr || txErr == nil) {
		return fmt.Errorf("failed to send %s transaction: %w", op, err)
	}

	var logs []string
	for _, l := range raw {
		if s, ok := l.(string); ok {
			logs = append(logs, s)
		}
	}
	return newProgramError(op, logs, err)
}

func newProgramError(op string, logs []string, err error) *ProgramError {
	pe := &ProgramError{Op: op, Logs: logs, Err: err}
	for _, line := range logs {
		if m := anchorErrorPattern.FindStringSubmatch(line); m != nil {
			pe.ErrorName = m[1]
			pe.ErrorCode, _ = strconv.Atoi(m[2])
			break
		}
	}
	return pe
}

// IsAlreadyInUse reports whether the remote rejected an account creation
// because the address is taken. Used by idempotent setup flows.
func IsAlreadyInUse(err error) bool {
	if err == nil {
		return false
	}
	if containsFold(err.Error(), "already in use") {
		return true
	}
	var pe *ProgramError
	if errors.As(err, &pe) {
		for _, line := range pe.Logs {
			if containsFold(line, "already in use") {
				return true
			}
		}
	}
	return false
}

// IsAlreadyInitialized reports whether the remote refused a second
// initialize.
func IsAlreadyInitialized(err error) bool {
	if err == nil {
		return false
	}
	return containsFold(err.Error(), "already initialized") || IsAlreadyInUse(err)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
