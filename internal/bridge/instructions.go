package bridge

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/nullmatrix0/zaunch/internal/endpoint"
)

// Instruction discriminators of the bridge program (from its IDL).
var (
	discriminatorInitVault = []byte{77, 79, 85, 150, 33, 217, 52, 106}
	discriminatorLock      = []byte{21, 19, 208, 43, 237, 62, 255, 87}
	discriminatorBridge    = []byte{174, 50, 134, 99, 122, 243, 243, 245}
)

// Field truncation limits enforced before submission; the on-chain program
// rejects anything longer.
const (
	maxAssetNameLen   = 32
	maxAssetSymbolLen = 8
)

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func appendU32LE(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendU64LE(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendBytesField(buf, field []byte) []byte {
	buf = appendU32LE(buf, uint32(len(field)))
	return append(buf, field...)
}

// encodeLockData builds the lock operation payload: ticket id and amount.
func encodeLockData(ticketID, amount uint64) []byte {
	data := append([]byte(nil), discriminatorLock...)
	data = appendU64LE(data, ticketID)
	return appendU64LE(data, amount)
}

// bridgePayload carries everything the bridge operation encodes.
type bridgePayload struct {
	TicketID     uint64
	DstEid       uint32
	Recipient    [32]byte
	Options      []byte
	NativeFee    uint64
	SecondaryFee uint64
	AssetName    string
	AssetSymbol  string
}

// encodeBridgeData builds the bridge operation payload. Name and symbol are
// truncated here, not on-chain.
func encodeBridgeData(p bridgePayload) []byte {
	data := append([]byte(nil), discriminatorBridge...)
	data = appendU64LE(data, p.TicketID)
	data = appendU32LE(data, p.DstEid)
	data = append(data, p.Recipient[:]...)
	data = appendBytesField(data, p.Options)
	data = appendU64LE(data, p.NativeFee)
	data = appendU64LE(data, p.SecondaryFee)
	data = appendBytesField(data, []byte(truncate(p.AssetName, maxAssetNameLen)))
	data = appendBytesField(data, []byte(truncate(p.AssetSymbol, maxAssetSymbolLen)))
	return data
}

// vaultKeys bundles the derived addresses of a mint's vault.
type vaultKeys struct {
	vault        solana.PublicKey
	authority    solana.PublicKey
	tokenAccount solana.PublicKey
}

func deriveVaultKeys(programs endpoint.Programs, mint solana.PublicKey) (vaultKeys, error) {
	var k vaultKeys
	var err error
	if k.vault, _, err = programs.DeriveVault(mint); err != nil {
		return k, err
	}
	if k.authority, _, err = programs.DeriveVaultAuthority(mint); err != nil {
		return k, err
	}
	if k.tokenAccount, _, err = solana.FindAssociatedTokenAddress(k.authority, mint); err != nil {
		return k, fmt.Errorf("failed to derive vault token account: %w", err)
	}
	return k, nil
}

// buildInitVaultInstruction constructs the permissionless vault
// initialization. Safe to race: creation at a derived address is exclusive.
func buildInitVaultInstruction(programs endpoint.Programs, payer, mint solana.PublicKey) (solana.Instruction, error) {
	keys, err := deriveVaultKeys(programs, mint)
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: mint},
		{PublicKey: keys.vault, IsWritable: true},
		{PublicKey: keys.authority},
		{PublicKey: keys.tokenAccount, IsWritable: true},
		{PublicKey: solana.TokenProgramID},
		{PublicKey: solana.SPLAssociatedTokenAccountProgramID},
		{PublicKey: solana.SystemProgramID},
	}

	return solana.NewInstruction(programs.Bridge, accounts, append([]byte(nil), discriminatorInitVault...)), nil
}

// buildLockInstruction constructs the lock operation: move amount from the
// owner's token account into the vault and record the ticket.
func buildLockInstruction(programs endpoint.Programs, owner, mint solana.PublicKey, ticketID, amount uint64) (solana.Instruction, error) {
	keys, err := deriveVaultKeys(programs, mint)
	if err != nil {
		return nil, err
	}
	ownerToken, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive owner token account: %w", err)
	}
	ticket, _, err := programs.DeriveTicket(owner, ticketID)
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: owner, IsSigner: true, IsWritable: true},
		{PublicKey: ownerToken, IsWritable: true},
		{PublicKey: mint},
		{PublicKey: keys.vault, IsWritable: true},
		{PublicKey: keys.tokenAccount, IsWritable: true},
		{PublicKey: ticket, IsWritable: true},
		{PublicKey: solana.TokenProgramID},
		{PublicKey: solana.SystemProgramID},
	}

	return solana.NewInstruction(programs.Bridge, accounts, encodeLockData(ticketID, amount)), nil
}

// buildBridgeInstruction constructs the message-send operation. The resolved
// send-path accounts are appended after the program's own accounts, in the
// exact order the resolver emitted them.
func buildBridgeInstruction(programs endpoint.Programs, owner, mint solana.PublicKey, payload bridgePayload, sendPath []*solana.AccountMeta) (solana.Instruction, error) {
	keys, err := deriveVaultKeys(programs, mint)
	if err != nil {
		return nil, err
	}
	ticket, _, err := programs.DeriveTicket(owner, payload.TicketID)
	if err != nil {
		return nil, err
	}
	store, _, err := programs.DeriveStore()
	if err != nil {
		return nil, err
	}
	peer, _, err := programs.DerivePeer(store, payload.DstEid)
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: store},
		{PublicKey: peer},
		{PublicKey: ticket, IsWritable: true},
		{PublicKey: keys.vault, IsWritable: true},
		{PublicKey: keys.tokenAccount, IsWritable: true},
		{PublicKey: keys.authority},
		{PublicKey: mint},
		{PublicKey: owner, IsSigner: true, IsWritable: true},
		{PublicKey: solana.TokenProgramID},
	}
	accounts = append(accounts, sendPath...)

	return solana.NewInstruction(programs.Bridge, accounts, encodeBridgeData(payload)), nil
}
