package bridge

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/nullmatrix0/zaunch/internal/endpoint"
	"github.com/nullmatrix0/zaunch/internal/queue"
	solclient "github.com/nullmatrix0/zaunch/internal/solana"
)

type fakeLedger struct {
	programs    endpoint.Programs
	accounts    map[solana.PublicKey]*endpoint.AccountInfo
	submitErr   error
	returnData  []byte
	submissions int
}

func (f *fakeLedger) GetAccount(_ context.Context, key solana.PublicKey) (*endpoint.AccountInfo, error) {
	return f.accounts[key], nil
}

func (f *fakeLedger) LatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{0x01}, nil
}

func (f *fakeLedger) Submit(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.submissions++
	if f.submitErr != nil {
		return solana.Signature{}, f.submitErr
	}
	f.applyEffects(tx)
	var sig solana.Signature
	sig[0] = byte(f.submissions)
	return sig, nil
}

func (f *fakeLedger) Confirm(context.Context, solana.Signature) error { return nil }

func (f *fakeLedger) ReturnData(context.Context, solana.Signature) ([]byte, error) {
	return f.returnData, nil
}

// applyEffects mimics what the on-chain program does to ticket state, so the
// orchestrator's read-after-write steps see a consistent ledger.
func (f *fakeLedger) applyEffects(tx *solana.Transaction) {
	for _, ci := range tx.Message.Instructions {
		data := []byte(ci.Data)
		if len(data) < 16 {
			continue
		}
		switch {
		case bytes.Equal(data[:8], discriminatorLock):
			id := binary.LittleEndian.Uint64(data[8:16])
			amount := binary.LittleEndian.Uint64(data[16:24])
			owner := tx.Message.AccountKeys[ci.Accounts[0]]
			key, _, _ := f.programs.DeriveTicket(owner, id)
			f.accounts[key] = &endpoint.AccountInfo{
				Owner: f.programs.Bridge,
				Data:  encodeTicket(Ticket{ID: id, Owner: owner, Amount: amount, Status: TicketLocked}),
			}
		case bytes.Equal(data[:8], discriminatorBridge):
			id := binary.LittleEndian.Uint64(data[8:16])
			owner := tx.Message.AccountKeys[ci.Accounts[7]]
			key, _, _ := f.programs.DeriveTicket(owner, id)
			if info := f.accounts[key]; info != nil {
				ticket, _ := DecodeTicket(info.Data)
				ticket.Status = TicketBridged
				info.Data = encodeTicket(ticket)
			}
		}
	}
}

type fakeSigner struct {
	key solana.PublicKey
}

func (f *fakeSigner) PublicKey() solana.PublicKey   { return f.key }
func (f *fakeSigner) Sign(*solana.Transaction) error { return nil }

type fakeResolver struct {
	metas  []*solana.AccountMeta
	err    error
	sender solana.PublicKey
	payer  solana.PublicKey
	calls  int
}

func (f *fakeResolver) Resolve(_ context.Context, sender solana.PublicKey, _ uint32, _ [32]byte, payer solana.PublicKey) ([]*solana.AccountMeta, error) {
	f.calls++
	f.sender = sender
	f.payer = payer
	return f.metas, f.err
}

type fakePublisher struct {
	events []*queue.Event
}

func (f *fakePublisher) Publish(_ context.Context, event *queue.Event) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type orchestratorFixture struct {
	programs  endpoint.Programs
	ledger    *fakeLedger
	resolver  *fakeResolver
	publisher *fakePublisher
	orch      *Orchestrator

	owner solana.PublicKey
	mint  solana.PublicKey
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	programs := testPrograms()
	f := &orchestratorFixture{
		programs: programs,
		ledger: &fakeLedger{
			programs: programs,
			accounts: make(map[solana.PublicKey]*endpoint.AccountInfo),
		},
		resolver: &fakeResolver{
			metas: []*solana.AccountMeta{{PublicKey: solana.SystemProgramID}},
		},
		publisher: &fakePublisher{},
		owner:     solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111"),
		mint:      solana.MustPublicKeyFromBase58("SysvarEpochSchedu1e111111111111111111111111"),
	}
	f.orch = NewOrchestrator(
		f.ledger,
		&fakeSigner{key: f.owner},
		f.resolver,
		programs,
		&FixedFeeEstimator{DefaultLamports: 2_000_000},
		f.publisher,
		solclient.AlreadyProcessed,
		zerolog.Nop(),
	)
	return f
}

func (f *orchestratorFixture) installVault(t *testing.T) {
	t.Helper()
	keys, err := deriveVaultKeys(f.programs, f.mint)
	if err != nil {
		t.Fatalf("Failed to derive vault keys: %v", err)
	}
	buf := make([]byte, vaultAccountLen)
	copy(buf[8:40], f.mint[:])
	copy(buf[40:72], keys.authority[:])
	copy(buf[72:104], keys.tokenAccount[:])
	f.ledger.accounts[keys.vault] = &endpoint.AccountInfo{Owner: f.programs.Bridge, Data: buf}
}

func (f *orchestratorFixture) installPeer(t *testing.T, dstEid uint32) {
	t.Helper()
	store, _, err := f.programs.DeriveStore()
	if err != nil {
		t.Fatalf("Failed to derive store: %v", err)
	}
	peer, _, err := f.programs.DerivePeer(store, dstEid)
	if err != nil {
		t.Fatalf("Failed to derive peer: %v", err)
	}
	data := make([]byte, 8+32+1)
	data[8] = 0xCC // remote peer address
	f.ledger.accounts[peer] = &endpoint.AccountInfo{Owner: f.programs.Bridge, Data: data}
}

func TestVaultStatus_Absent(t *testing.T) {
	f := newOrchestratorFixture(t)

	status, err := f.orch.VaultStatus(context.Background(), f.mint)
	if err != nil {
		t.Fatalf("VaultStatus failed: %v", err)
	}
	if status.Exists {
		t.Error("Vault should not exist")
	}
	if status.VaultTokenAccount.IsZero() {
		t.Error("Derived vault token account should still be reported")
	}
}

func TestEnsureVault_AlreadyExists(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.installVault(t)

	if err := f.orch.EnsureVault(context.Background(), f.mint); err != nil {
		t.Fatalf("EnsureVault failed: %v", err)
	}
	if f.ledger.submissions != 0 {
		t.Errorf("No transaction should be submitted, got %d", f.ledger.submissions)
	}
}

func TestEnsureVault_CreatesWhenMissing(t *testing.T) {
	f := newOrchestratorFixture(t)

	if err := f.orch.EnsureVault(context.Background(), f.mint); err != nil {
		t.Fatalf("EnsureVault failed: %v", err)
	}
	if f.ledger.submissions != 1 {
		t.Errorf("Expected one submission, got %d", f.ledger.submissions)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != queue.EventVaultInitialized {
		t.Error("Vault initialization event should be published")
	}
}

func TestEnsureVault_RaceTreatedAsSuccess(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.ledger.submitErr = errors.New("Allocate: account Address { address: ... } already in use")

	if err := f.orch.EnsureVault(context.Background(), f.mint); err != nil {
		t.Fatalf("A racing duplicate init should succeed, got %v", err)
	}
}

func TestLock_CreatesTicket(t *testing.T) {
	f := newOrchestratorFixture(t)

	receipt, err := f.orch.Lock(context.Background(), f.mint, 750_000)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	if receipt.Ticket.Status != TicketLocked {
		t.Errorf("Ticket status mismatch: got %s", receipt.Ticket.Status)
	}
	if receipt.Ticket.Amount != 750_000 {
		t.Errorf("Amount mismatch: got %d", receipt.Ticket.Amount)
	}

	// The ticket must be readable at its derived address afterwards.
	key, _, err := f.programs.DeriveTicket(f.owner, receipt.Ticket.ID)
	if err != nil {
		t.Fatalf("Failed to derive ticket: %v", err)
	}
	if f.ledger.accounts[key] == nil {
		t.Error("Ticket account should exist after lock")
	}
}

func TestBridgeTicket_UnknownTicket(t *testing.T) {
	f := newOrchestratorFixture(t)

	_, err := f.orch.BridgeTicket(context.Background(), 999, BridgeParams{Mint: f.mint, DstEid: 30101})
	var se *InvalidTicketStateError
	if !errors.As(err, &se) {
		t.Fatalf("Expected InvalidTicketStateError, got %v", err)
	}
}

func TestBridge_FullFlow(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.installVault(t)
	f.installPeer(t, 30101)
	f.ledger.returnData = bytes.Repeat([]byte{0xAB}, 32)

	var recipient [32]byte
	recipient[12] = 0x01

	result, err := f.orch.Bridge(context.Background(), BridgeParams{
		Mint:        f.mint,
		Amount:      1_000_000,
		DstEid:      30101,
		Recipient:   recipient,
		AssetName:   "Launch Token",
		AssetSymbol: "LNCH",
	})
	if err != nil {
		t.Fatalf("Bridge failed: %v", err)
	}

	if result.State != StateBridged {
		t.Errorf("State mismatch: got %s, want %s", result.State, StateBridged)
	}
	if result.Lock == nil || result.Bridge == nil {
		t.Fatal("Both receipts should be populated")
	}
	if !bytes.Equal(result.Bridge.MessageGUID, f.ledger.returnData) {
		t.Error("Message GUID should come from return data")
	}

	// The resolver must see the store as sender and the payer as fee payer.
	store, _, err := f.programs.DeriveStore()
	if err != nil {
		t.Fatalf("Failed to derive store: %v", err)
	}
	if !f.resolver.sender.Equals(store) {
		t.Errorf("Resolver sender mismatch: got %s, want %s", f.resolver.sender, store)
	}
	if !f.resolver.payer.Equals(f.owner) {
		t.Errorf("Resolver payer mismatch: got %s, want %s", f.resolver.payer, f.owner)
	}

	if len(f.publisher.events) != 2 {
		t.Fatalf("Expected lock and bridge events, got %d", len(f.publisher.events))
	}
	if f.publisher.events[1].Type != queue.EventTicketBridged {
		t.Errorf("Second event mismatch: got %s", f.publisher.events[1].Type)
	}
}

func TestBridge_NoReturnDataStillSucceeds(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.installVault(t)
	f.installPeer(t, 30101)

	result, err := f.orch.Bridge(context.Background(), BridgeParams{
		Mint:   f.mint,
		Amount: 100,
		DstEid: 30101,
	})
	if err != nil {
		t.Fatalf("Bridge failed: %v", err)
	}
	if result.Bridge.MessageGUID != nil {
		t.Error("Message GUID should be nil when no return data is present")
	}
}

func TestBridgeTicket_SingleUse(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.installVault(t)
	f.installPeer(t, 30101)

	params := BridgeParams{Mint: f.mint, Amount: 100, DstEid: 30101}
	result, err := f.orch.Bridge(context.Background(), params)
	if err != nil {
		t.Fatalf("Bridge failed: %v", err)
	}

	_, err = f.orch.BridgeTicket(context.Background(), result.Lock.Ticket.ID, params)
	var se *InvalidTicketStateError
	if !errors.As(err, &se) {
		t.Fatalf("Second bridge of one ticket must fail, got %v", err)
	}
	if se.Status != TicketBridged {
		t.Errorf("Status mismatch: got %s, want bridged", se.Status)
	}
}

func TestBridge_MissingPeerFatal(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.installVault(t)

	_, err := f.orch.Bridge(context.Background(), BridgeParams{Mint: f.mint, Amount: 1, DstEid: 30101})
	var nie *endpoint.NotInitializedError
	if !errors.As(err, &nie) {
		t.Fatalf("Expected NotInitializedError for missing peer, got %v", err)
	}
}
