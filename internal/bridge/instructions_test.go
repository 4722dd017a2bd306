package bridge

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/nullmatrix0/zaunch/internal/endpoint"
)

func testPrograms() endpoint.Programs {
	return endpoint.Programs{
		Bridge:           solana.MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111"),
		Endpoint:         solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111"),
		DirectLibrary:    solana.MustPublicKeyFromBase58("Stake11111111111111111111111111111111111111"),
		ValidatedLibrary: solana.MustPublicKeyFromBase58("SysvarC1ock11111111111111111111111111111111"),
		NoProgram:        solana.SystemProgramID,
	}
}

func TestEncodeLockData(t *testing.T) {
	data := encodeLockData(0x0102030405060708, 1_000_000)

	if !bytes.Equal(data[:8], discriminatorLock) {
		t.Error("Lock discriminator mismatch")
	}
	if got := binary.LittleEndian.Uint64(data[8:16]); got != 0x0102030405060708 {
		t.Errorf("Ticket id mismatch: got %x", got)
	}
	if got := binary.LittleEndian.Uint64(data[16:24]); got != 1_000_000 {
		t.Errorf("Amount mismatch: got %d", got)
	}
	if len(data) != 24 {
		t.Errorf("Payload length mismatch: got %d, want 24", len(data))
	}
}

func TestEncodeBridgeData(t *testing.T) {
	var recipient [32]byte
	recipient[31] = 0xEE

	data := encodeBridgeData(bridgePayload{
		TicketID:     7,
		DstEid:       30101,
		Recipient:    recipient,
		Options:      []byte{0x00, 0x03},
		NativeFee:    2_000_000,
		SecondaryFee: 0,
		AssetName:    "Launch Token",
		AssetSymbol:  "LNCH",
	})

	if !bytes.Equal(data[:8], discriminatorBridge) {
		t.Error("Bridge discriminator mismatch")
	}
	off := 8
	if got := binary.LittleEndian.Uint64(data[off:]); got != 7 {
		t.Errorf("Ticket id mismatch: got %d", got)
	}
	off += 8
	if got := binary.LittleEndian.Uint32(data[off:]); got != 30101 {
		t.Errorf("Destination id mismatch: got %d", got)
	}
	off += 4
	if !bytes.Equal(data[off:off+32], recipient[:]) {
		t.Error("Recipient bytes mismatch")
	}
	off += 32
	if got := binary.LittleEndian.Uint32(data[off:]); got != 2 {
		t.Errorf("Options length mismatch: got %d", got)
	}
	off += 4 + 2
	if got := binary.LittleEndian.Uint64(data[off:]); got != 2_000_000 {
		t.Errorf("Native fee mismatch: got %d", got)
	}
	off += 8 + 8 // native + secondary fee
	if got := binary.LittleEndian.Uint32(data[off:]); got != uint32(len("Launch Token")) {
		t.Errorf("Name length mismatch: got %d", got)
	}
	off += 4
	if string(data[off:off+len("Launch Token")]) != "Launch Token" {
		t.Error("Name bytes mismatch")
	}
}

func TestEncodeBridgeData_TruncatesNameAndSymbol(t *testing.T) {
	longName := "this token name is far longer than the thirty-two byte limit"
	data := encodeBridgeData(bridgePayload{
		AssetName:   longName,
		AssetSymbol: "SYMBOLTOOLONG",
	})

	// Name field sits after disc(8)+id(8)+eid(4)+recipient(32)+options(4+0)+
	// fees(16).
	off := 8 + 8 + 4 + 32 + 4 + 16
	nameLen := binary.LittleEndian.Uint32(data[off:])
	if nameLen != maxAssetNameLen {
		t.Errorf("Name should be truncated to %d bytes, got %d", maxAssetNameLen, nameLen)
	}
	off += 4 + int(nameLen)
	symbolLen := binary.LittleEndian.Uint32(data[off:])
	if symbolLen != maxAssetSymbolLen {
		t.Errorf("Symbol should be truncated to %d bytes, got %d", maxAssetSymbolLen, symbolLen)
	}
}

func TestBuildLockInstruction(t *testing.T) {
	programs := testPrograms()
	owner := solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
	mint := solana.MustPublicKeyFromBase58("SysvarEpochSchedu1e111111111111111111111111")

	ix, err := buildLockInstruction(programs, owner, mint, 42, 500)
	if err != nil {
		t.Fatalf("Failed to build lock instruction: %v", err)
	}

	if !ix.ProgramID().Equals(programs.Bridge) {
		t.Errorf("Program id mismatch: got %s", ix.ProgramID())
	}
	accounts := ix.Accounts()
	if len(accounts) != 8 {
		t.Fatalf("Account count mismatch: got %d, want 8", len(accounts))
	}
	if !accounts[0].PublicKey.Equals(owner) || !accounts[0].IsSigner {
		t.Error("First account should be the signing owner")
	}

	ticket, _, err := programs.DeriveTicket(owner, 42)
	if err != nil {
		t.Fatalf("Failed to derive ticket: %v", err)
	}
	if !accounts[5].PublicKey.Equals(ticket) || !accounts[5].IsWritable {
		t.Error("Ticket account should be the writable sixth entry")
	}
}

func TestBuildBridgeInstruction_AppendsSendPathInOrder(t *testing.T) {
	programs := testPrograms()
	owner := solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
	mint := solana.MustPublicKeyFromBase58("SysvarEpochSchedu1e111111111111111111111111")

	sendPath := []*solana.AccountMeta{
		{PublicKey: solana.MustPublicKeyFromBase58("SysvarS1otHashes111111111111111111111111111")},
		{PublicKey: solana.MustPublicKeyFromBase58("SysvarS1otHistory11111111111111111111111111"), IsWritable: true},
	}

	ix, err := buildBridgeInstruction(programs, owner, mint, bridgePayload{TicketID: 1, DstEid: 30101}, sendPath)
	if err != nil {
		t.Fatalf("Failed to build bridge instruction: %v", err)
	}

	accounts := ix.Accounts()
	if len(accounts) != 9+len(sendPath) {
		t.Fatalf("Account count mismatch: got %d, want %d", len(accounts), 9+len(sendPath))
	}
	tail := accounts[9:]
	for i, meta := range sendPath {
		if !tail[i].PublicKey.Equals(meta.PublicKey) {
			t.Errorf("Send-path account %d out of order: got %s", i, tail[i].PublicKey)
		}
		if tail[i].IsWritable != meta.IsWritable {
			t.Errorf("Send-path account %d writable flag mismatch", i)
		}
	}
}
