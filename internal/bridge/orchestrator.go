package bridge

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/nullmatrix0/zaunch/internal/endpoint"
	"github.com/nullmatrix0/zaunch/internal/monitoring"
	"github.com/nullmatrix0/zaunch/internal/queue"
)

// State is the stage of a bridge attempt. Transitions are
// idle → locking → locked → bridging → bridged, with failed reachable from
// locking and bridging.
type State string

const (
	StateIdle     State = "idle"
	StateLocking  State = "locking"
	StateLocked   State = "locked"
	StateBridging State = "bridging"
	StateBridged  State = "bridged"
	StateFailed   State = "failed"
)

// Ledger is the slice of the ledger client the orchestrator uses.
type Ledger interface {
	GetAccount(ctx context.Context, key solana.PublicKey) (*endpoint.AccountInfo, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	Confirm(ctx context.Context, sig solana.Signature) error
	ReturnData(ctx context.Context, sig solana.Signature) ([]byte, error)
}

// Signer signs submitted transactions with the payer key.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(tx *solana.Transaction) error
}

// SendPathResolver assembles the ordered send-path account list.
type SendPathResolver interface {
	Resolve(ctx context.Context, sender solana.PublicKey, dstEid uint32, receiver [32]byte, payer solana.PublicKey) ([]*solana.AccountMeta, error)
}

// AlreadyExists reports whether a submission failed only because the target
// account already exists. Callers racing on idempotent creation treat this
// as success.
type AlreadyExists func(error) bool

// BridgeParams are the inputs of a full lock-then-bridge flow.
type BridgeParams struct {
	Mint        solana.PublicKey
	Amount      uint64
	DstEid      uint32
	Recipient   [32]byte
	Options     []byte
	AssetName   string
	AssetSymbol string
}

// LockReceipt is the outcome of a confirmed lock.
type LockReceipt struct {
	Ticket    Ticket
	Signature solana.Signature
}

// BridgeReceipt is the outcome of a confirmed bridge. MessageGUID is nil
// when the library populated no return data; the bridge still succeeded,
// just untracked by identifier.
type BridgeReceipt struct {
	TicketID    uint64
	Signature   solana.Signature
	MessageGUID []byte
}

// Result is the outcome of a full bridge attempt.
type Result struct {
	State  State
	Lock   *LockReceipt
	Bridge *BridgeReceipt
}

// Orchestrator drives the two-phase lock-then-send protocol. Every
// submission is awaited to confirmation before the next step; a confirmed
// failure is never retried automatically, because re-sending without knowing
// whether the first send landed risks duplicate message emission. The caller
// resumes from the failed step instead (BridgeTicket for a locked ticket).
type Orchestrator struct {
	ledger        Ledger
	signer        Signer
	resolver      SendPathResolver
	programs      endpoint.Programs
	fees          FeeEstimator
	publisher     queue.Publisher
	alreadyExists AlreadyExists
	logger        zerolog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(
	ledger Ledger,
	signer Signer,
	resolver SendPathResolver,
	programs endpoint.Programs,
	fees FeeEstimator,
	publisher queue.Publisher,
	alreadyExists AlreadyExists,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		ledger:        ledger,
		signer:        signer,
		resolver:      resolver,
		programs:      programs,
		fees:          fees,
		publisher:     publisher,
		alreadyExists: alreadyExists,
		logger:        logger.With().Str("component", "orchestrator").Logger(),
	}
}

// VaultStatus reads the vault state for a mint. Absence of the vault is
// reported as Exists=false, not an error.
func (o *Orchestrator) VaultStatus(ctx context.Context, mint solana.PublicKey) (VaultStatus, error) {
	keys, err := deriveVaultKeys(o.programs, mint)
	if err != nil {
		return VaultStatus{}, err
	}

	info, err := o.ledger.GetAccount(ctx, keys.vault)
	if err != nil {
		return VaultStatus{}, fmt.Errorf("fetching vault: %w", err)
	}
	if info == nil {
		return VaultStatus{Exists: false, VaultTokenAccount: keys.tokenAccount}, nil
	}

	vault, err := DecodeVault(info.Data)
	if err != nil {
		return VaultStatus{}, fmt.Errorf("account %s: %w", keys.vault, err)
	}
	return VaultStatus{
		Exists:            true,
		TotalLocked:       vault.TotalLocked,
		VaultTokenAccount: vault.TokenAccount,
	}, nil
}

// EnsureVault initializes the mint's vault if it does not exist yet.
// Concurrent callers may race; a duplicate attempt that loses the race is
// treated as success.
func (o *Orchestrator) EnsureVault(ctx context.Context, mint solana.PublicKey) error {
	status, err := o.VaultStatus(ctx, mint)
	if err != nil {
		return err
	}
	if status.Exists {
		return nil
	}

	ix, err := buildInitVaultInstruction(o.programs, o.signer.PublicKey(), mint)
	if err != nil {
		return err
	}

	sig, err := o.submitAndConfirm(ctx, "init_vault", ix)
	if err != nil {
		if o.alreadyExists != nil && o.alreadyExists(err) {
			monitoring.VaultInitsTotal.WithLabelValues("raced").Inc()
			o.logger.Info().Str("mint", mint.String()).Msg("Vault already initialized by a concurrent caller")
			return nil
		}
		monitoring.VaultInitsTotal.WithLabelValues("failed").Inc()
		return err
	}

	monitoring.VaultInitsTotal.WithLabelValues("created").Inc()
	o.publish(ctx, &queue.Event{
		Type:      queue.EventVaultInitialized,
		Mint:      mint.String(),
		Signature: sig.String(),
	})
	o.logger.Info().Str("mint", mint.String()).Str("signature", sig.String()).Msg("Vault initialized")
	return nil
}

// Lock moves amount into the mint's vault under a fresh ticket. On a
// submission failure no ticket exists and the caller may retry with a new
// id.
func (o *Orchestrator) Lock(ctx context.Context, mint solana.PublicKey, amount uint64) (*LockReceipt, error) {
	started := time.Now()
	owner := o.signer.PublicKey()

	ticketID, err := NewTicketID()
	if err != nil {
		return nil, err
	}

	ix, err := buildLockInstruction(o.programs, owner, mint, ticketID, amount)
	if err != nil {
		return nil, err
	}

	sig, err := o.submitAndConfirm(ctx, "lock", ix)
	if err != nil {
		return nil, fmt.Errorf("locking %d of %s: %w", amount, mint, err)
	}

	monitoring.TicketsLockedTotal.Inc()
	monitoring.LockedAmount.Observe(float64(amount))
	monitoring.BridgeStageDuration.WithLabelValues("lock").Observe(time.Since(started).Seconds())

	receipt := &LockReceipt{
		Ticket:    Ticket{ID: ticketID, Owner: owner, Amount: amount, Status: TicketLocked},
		Signature: sig,
	}

	o.publish(ctx, &queue.Event{
		Type:      queue.EventTicketLocked,
		Mint:      mint.String(),
		TicketID:  ticketID,
		Owner:     owner.String(),
		Amount:    amount,
		Signature: sig.String(),
	})
	o.logger.Info().
		Uint64("ticket_id", ticketID).
		Uint64("amount", amount).
		Str("signature", sig.String()).
		Msg("Ticket locked")

	return receipt, nil
}

// BridgeTicket consumes a Locked ticket and emits the cross-chain message.
// It is also the explicit resume path for a ticket whose earlier bridge step
// failed.
func (o *Orchestrator) BridgeTicket(ctx context.Context, ticketID uint64, params BridgeParams) (*BridgeReceipt, error) {
	started := time.Now()
	owner := o.signer.PublicKey()
	mint, dstEid := params.Mint, params.DstEid

	ticket, err := o.fetchTicket(ctx, owner, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != TicketLocked {
		return nil, &InvalidTicketStateError{TicketID: ticketID, Status: ticket.Status}
	}

	store, _, err := o.programs.DeriveStore()
	if err != nil {
		return nil, err
	}
	receiver, err := o.peerAddress(ctx, store, dstEid)
	if err != nil {
		return nil, err
	}

	sendPath, err := o.resolver.Resolve(ctx, store, dstEid, receiver, owner)
	if err != nil {
		monitoring.ResolutionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	monitoring.ResolutionsTotal.WithLabelValues("ok").Inc()
	monitoring.ResolvedAccountCount.Observe(float64(len(sendPath)))

	payload := bridgePayload{
		TicketID:     ticketID,
		DstEid:       dstEid,
		Recipient:    params.Recipient,
		Options:      params.Options,
		NativeFee:    o.fees.EstimateNativeFee(dstEid),
		SecondaryFee: 0,
		AssetName:    params.AssetName,
		AssetSymbol:  params.AssetSymbol,
	}

	ix, err := buildBridgeInstruction(o.programs, owner, mint, payload, sendPath)
	if err != nil {
		return nil, err
	}

	sig, err := o.submitAndConfirm(ctx, "bridge", ix)
	if err != nil {
		return nil, fmt.Errorf("bridging ticket %d: %w", ticketID, err)
	}

	receipt := &BridgeReceipt{TicketID: ticketID, Signature: sig}
	if guid := o.messageGUID(ctx, sig); guid != nil {
		receipt.MessageGUID = guid
	}

	monitoring.BridgeStageDuration.WithLabelValues("bridge").Observe(time.Since(started).Seconds())

	event := &queue.Event{
		Type:      queue.EventTicketBridged,
		Mint:      mint.String(),
		TicketID:  ticketID,
		Owner:     owner.String(),
		DstEid:    dstEid,
		Signature: sig.String(),
	}
	if receipt.MessageGUID != nil {
		event.MessageGUID = fmt.Sprintf("%x", receipt.MessageGUID)
	}
	o.publish(ctx, event)

	o.logger.Info().
		Uint64("ticket_id", ticketID).
		Uint32("dst_eid", dstEid).
		Str("signature", sig.String()).
		Msg("Ticket bridged")

	return receipt, nil
}

// Bridge runs the full two-phase flow: ensure the vault, lock, then bridge.
// Each submission is confirmed before the next begins.
func (o *Orchestrator) Bridge(ctx context.Context, params BridgeParams) (*Result, error) {
	result := &Result{State: StateIdle}
	dstLabel := strconv.FormatUint(uint64(params.DstEid), 10)

	if err := o.EnsureVault(ctx, params.Mint); err != nil {
		result.State = StateFailed
		monitoring.BridgeAttemptsTotal.WithLabelValues(dstLabel, string(StateFailed)).Inc()
		return result, err
	}

	result.State = StateLocking
	lock, err := o.Lock(ctx, params.Mint, params.Amount)
	if err != nil {
		result.State = StateFailed
		monitoring.BridgeAttemptsTotal.WithLabelValues(dstLabel, string(StateFailed)).Inc()
		o.publishFailure(ctx, params, 0, err)
		return result, err
	}
	result.State = StateLocked
	result.Lock = lock

	result.State = StateBridging
	bridge, err := o.BridgeTicket(ctx, lock.Ticket.ID, params)
	if err != nil {
		// The ticket stays Locked on-chain; the caller resumes with
		// BridgeTicket rather than locking again.
		result.State = StateFailed
		monitoring.BridgeAttemptsTotal.WithLabelValues(dstLabel, string(StateFailed)).Inc()
		o.publishFailure(ctx, params, lock.Ticket.ID, err)
		return result, err
	}

	result.State = StateBridged
	result.Bridge = bridge
	monitoring.BridgeAttemptsTotal.WithLabelValues(dstLabel, string(StateBridged)).Inc()
	return result, nil
}

func (o *Orchestrator) fetchTicket(ctx context.Context, owner solana.PublicKey, ticketID uint64) (Ticket, error) {
	ticketKey, _, err := o.programs.DeriveTicket(owner, ticketID)
	if err != nil {
		return Ticket{}, err
	}
	info, err := o.ledger.GetAccount(ctx, ticketKey)
	if err != nil {
		return Ticket{}, fmt.Errorf("fetching ticket: %w", err)
	}
	if info == nil {
		return Ticket{}, &InvalidTicketStateError{TicketID: ticketID}
	}
	ticket, err := DecodeTicket(info.Data)
	if err != nil {
		return Ticket{}, fmt.Errorf("account %s: %w", ticketKey, err)
	}
	return ticket, nil
}

// Peer record layout: discriminator(8) + remote address(32) + bump(1).
func (o *Orchestrator) peerAddress(ctx context.Context, store solana.PublicKey, dstEid uint32) ([32]byte, error) {
	var receiver [32]byte
	peer, _, err := o.programs.DerivePeer(store, dstEid)
	if err != nil {
		return receiver, err
	}
	info, err := o.ledger.GetAccount(ctx, peer)
	if err != nil {
		return receiver, fmt.Errorf("fetching peer: %w", err)
	}
	if info == nil {
		return receiver, &endpoint.NotInitializedError{Role: "peer", Account: peer}
	}
	if len(info.Data) < 8+32 {
		return receiver, &endpoint.DecodeError{
			Kind:   endpoint.DecodeTruncated,
			Record: "peer",
			Need:   8 + 32,
			Have:   len(info.Data),
		}
	}
	copy(receiver[:], info.Data[8:40])
	return receiver, nil
}

// messageGUID extracts the 32-byte cross-chain message identifier from the
// transaction's return data. Only the validated library populates it;
// absence is not a failure.
func (o *Orchestrator) messageGUID(ctx context.Context, sig solana.Signature) []byte {
	data, err := o.ledger.ReturnData(ctx, sig)
	if err != nil {
		o.logger.Warn().Err(err).Str("signature", sig.String()).Msg("Failed to read return data")
		return nil
	}
	if len(data) < 32 {
		return nil
	}
	return data[:32]
}

func (o *Orchestrator) submitAndConfirm(ctx context.Context, operation string, ix solana.Instruction) (solana.Signature, error) {
	blockhash, err := o.ledger.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash,
		solana.TransactionPayer(o.signer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("building %s transaction: %w", operation, err)
	}
	if err := o.signer.Sign(tx); err != nil {
		return solana.Signature{}, err
	}

	sig, err := o.ledger.Submit(ctx, tx)
	if err != nil {
		monitoring.SubmissionsTotal.WithLabelValues(operation, "send_failed").Inc()
		return solana.Signature{}, err
	}
	if err := o.ledger.Confirm(ctx, sig); err != nil {
		monitoring.SubmissionsTotal.WithLabelValues(operation, "rejected").Inc()
		return sig, err
	}

	monitoring.SubmissionsTotal.WithLabelValues(operation, "confirmed").Inc()
	return sig, nil
}

func (o *Orchestrator) publish(ctx context.Context, event *queue.Event) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, event.Stamp()); err != nil {
		o.logger.Warn().Err(err).Str("type", string(event.Type)).Msg("Failed to publish event")
	}
}

func (o *Orchestrator) publishFailure(ctx context.Context, params BridgeParams, ticketID uint64, cause error) {
	o.publish(ctx, &queue.Event{
		Type:     queue.EventBridgeFailed,
		Mint:     params.Mint.String(),
		TicketID: ticketID,
		DstEid:   params.DstEid,
		Error:    cause.Error(),
	})
}
