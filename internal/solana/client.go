package solana

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/nullmatrix0/zaunch/internal/endpoint"
)

// SubmissionError is a ledger-level rejection of a submitted transaction,
// surfaced with the raw diagnostic log lines. The affected step may be
// retried by the caller; nothing retries automatically.
type SubmissionError struct {
	Signature solana.Signature
	Cause     string
	Logs      []string
}

func (e *SubmissionError) Error() string {
	if len(e.Logs) == 0 {
		return fmt.Sprintf("transaction %s failed: %s", e.Signature, e.Cause)
	}
	return fmt.Sprintf("transaction %s failed: %s\n%s", e.Signature, e.Cause, strings.Join(e.Logs, "\n"))
}

// AlreadyProcessed reports whether a send rejection means the account or
// transaction already exists, which idempotent creation treats as success.
func AlreadyProcessed(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "already in use") ||
		strings.Contains(msg, "already been processed") ||
		strings.Contains(msg, "AlreadyInitialized")
}

// ClientConfig configures the ledger client.
type ClientConfig struct {
	RPCEndpoints   []string `mapstructure:"rpc_endpoints"`
	Commitment     string   `mapstructure:"commitment"`
	BlockTime      string   `mapstructure:"block_time"`
	ConfirmTimeout string   `mapstructure:"confirm_timeout"`
}

// Client is the ledger client: account reads (single and batched),
// transaction submission, confirmation polling, and return-data extraction.
// Reads and sends fail over across the configured RPC endpoints.
type Client struct {
	rpcClients []*rpc.Client
	commitment rpc.CommitmentType
	blockTime  time.Duration
	confirmTTL time.Duration
	logger     zerolog.Logger
}

// NewClient creates a new ledger client.
func NewClient(cfg ClientConfig, logger zerolog.Logger) (*Client, error) {
	if len(cfg.RPCEndpoints) == 0 {
		return nil, fmt.Errorf("no RPC endpoints configured")
	}

	c := &Client{
		commitment: parseCommitment(cfg.Commitment),
		blockTime:  400 * time.Millisecond,
		confirmTTL: 90 * time.Second,
		logger:     logger.With().Str("component", "ledger").Logger(),
	}

	if cfg.BlockTime != "" {
		d, err := time.ParseDuration(cfg.BlockTime)
		if err != nil {
			return nil, fmt.Errorf("invalid block_time: %w", err)
		}
		c.blockTime = d
	}
	if cfg.ConfirmTimeout != "" {
		d, err := time.ParseDuration(cfg.ConfirmTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid confirm_timeout: %w", err)
		}
		c.confirmTTL = d
	}

	for _, url := range cfg.RPCEndpoints {
		c.rpcClients = append(c.rpcClients, rpc.New(url))
	}

	c.logger.Info().
		Int("rpc_clients", len(c.rpcClients)).
		Str("commitment", string(c.commitment)).
		Msg("Ledger client initialized")

	return c, nil
}

func parseCommitment(s string) rpc.CommitmentType {
	switch s {
	case "processed":
		return rpc.CommitmentProcessed
	case "confirmed":
		return rpc.CommitmentConfirmed
	case "finalized":
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

// IsHealthy checks whether any endpoint answers.
func (c *Client) IsHealthy(ctx context.Context) bool {
	for _, client := range c.rpcClients {
		if _, err := client.GetSlot(ctx, c.commitment); err == nil {
			return true
		}
	}
	return false
}

// GetAccount returns the account's owner and raw data, or nil if the account
// does not exist. Absence is not an error.
func (c *Client) GetAccount(ctx context.Context, key solana.PublicKey) (*endpoint.AccountInfo, error) {
	var lastErr error
	for _, client := range c.rpcClients {
		result, err := client.GetAccountInfoWithOpts(ctx, key, &rpc.GetAccountInfoOpts{
			Commitment: c.commitment,
			Encoding:   solana.EncodingBase64,
		})
		if err != nil {
			if errors.Is(err, rpc.ErrNotFound) {
				return nil, nil
			}
			c.logger.Warn().Err(err).Str("account", key.String()).Msg("Failed to fetch account")
			lastErr = err
			continue
		}
		if result == nil || result.Value == nil {
			return nil, nil
		}
		return &endpoint.AccountInfo{
			Owner: result.Value.Owner,
			Data:  result.Value.Data.GetBinary(),
		}, nil
	}
	return nil, fmt.Errorf("failed to fetch account %s from all endpoints: %w", key, lastErr)
}

// GetAccounts fetches multiple accounts in one round trip, preserving input
// order; missing accounts come back as nil entries.
func (c *Client) GetAccounts(ctx context.Context, keys []solana.PublicKey) ([]*endpoint.AccountInfo, error) {
	var lastErr error
	for _, client := range c.rpcClients {
		result, err := client.GetMultipleAccountsWithOpts(ctx, keys, &rpc.GetMultipleAccountsOpts{
			Commitment: c.commitment,
			Encoding:   solana.EncodingBase64,
		})
		if err != nil {
			c.logger.Warn().Err(err).Int("accounts", len(keys)).Msg("Failed to fetch account batch")
			lastErr = err
			continue
		}

		infos := make([]*endpoint.AccountInfo, len(keys))
		for i, acc := range result.Value {
			if acc == nil {
				continue
			}
			infos[i] = &endpoint.AccountInfo{
				Owner: acc.Owner,
				Data:  acc.Data.GetBinary(),
			}
		}
		return infos, nil
	}
	return nil, fmt.Errorf("failed to fetch %d accounts from all endpoints: %w", len(keys), lastErr)
}

// LatestBlockhash returns a recent blockhash for transaction building.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var lastErr error
	for _, client := range c.rpcClients {
		result, err := client.GetLatestBlockhash(ctx, c.commitment)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to fetch latest blockhash")
			lastErr = err
			continue
		}
		return result.Value.Blockhash, nil
	}
	return solana.Hash{}, fmt.Errorf("failed to fetch blockhash from all endpoints: %w", lastErr)
}

// Submit sends a signed transaction and returns its signature. It does not
// wait for confirmation; pair with Confirm.
func (c *Client) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var lastErr error
	for _, client := range c.rpcClients {
		sig, err := client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: c.commitment,
		})
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to send transaction")
			lastErr = err
			continue
		}
		c.logger.Info().Str("signature", sig.String()).Msg("Transaction sent")
		return sig, nil
	}
	return solana.Signature{}, fmt.Errorf("failed to send transaction to all endpoints: %w", lastErr)
}

// Confirm polls until the transaction reaches the configured commitment or
// the deadline passes. A confirmed failure is returned as SubmissionError
// with the transaction's log lines.
func (c *Client) Confirm(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTTL)
	defer cancel()

	ticker := time.NewTicker(c.blockTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for confirmation of %s: %w", sig, ctx.Err())
		case <-ticker.C:
			status, err := c.signatureStatus(ctx, sig)
			if err != nil {
				c.logger.Warn().Err(err).Str("signature", sig.String()).Msg("Error checking transaction status")
				continue
			}
			if status == nil {
				continue
			}
			if status.Err != nil {
				return &SubmissionError{
					Signature: sig,
					Cause:     fmt.Sprintf("%v", status.Err),
					Logs:      c.transactionLogs(ctx, sig),
				}
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				c.logger.Info().
					Str("signature", sig.String()).
					Uint64("slot", status.Slot).
					Msg("Transaction confirmed")
				return nil
			}
		}
	}
}

func (c *Client) signatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	var lastErr error
	for _, client := range c.rpcClients {
		result, err := client.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			lastErr = err
			continue
		}
		if result == nil || len(result.Value) == 0 {
			return nil, nil
		}
		return result.Value[0], nil
	}
	return nil, fmt.Errorf("failed to get signature status from all endpoints: %w", lastErr)
}

// ReturnData returns the structured return data of a confirmed transaction,
// or nil when the program populated none.
func (c *Client) ReturnData(ctx context.Context, sig solana.Signature) ([]byte, error) {
	result, err := c.transaction(ctx, sig)
	if err != nil {
		return nil, err
	}
	if result == nil || result.Meta == nil {
		return nil, nil
	}
	return result.Meta.ReturnData.Data.Content, nil
}

func (c *Client) transactionLogs(ctx context.Context, sig solana.Signature) []string {
	result, err := c.transaction(ctx, sig)
	if err != nil || result == nil || result.Meta == nil {
		return nil
	}
	return result.Meta.LogMessages
}

func (c *Client) transaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	var lastErr error
	for _, client := range c.rpcClients {
		result, err := client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.commitment,
		})
		if err != nil {
			if errors.Is(err, rpc.ErrNotFound) {
				return nil, nil
			}
			lastErr = err
			continue
		}
		return result, nil
	}
	return nil, fmt.Errorf("failed to get transaction %s from all endpoints: %w", sig, lastErr)
}
