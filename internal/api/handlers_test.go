package api

import (
	"bytes"
	"errors"
	"net/http"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/nullmatrix0/zaunch/internal/bridge"
	"github.com/nullmatrix0/zaunch/internal/endpoint"
)

func TestParseRecipient_EVMAddress(t *testing.T) {
	got, err := parseRecipient("0x000102030405060708090a0b0c0d0e0f10111213")
	if err != nil {
		t.Fatalf("parseRecipient failed: %v", err)
	}

	// A 20-byte address is left-padded to 32 bytes.
	if !bytes.Equal(got[:12], make([]byte, 12)) {
		t.Error("Leading 12 bytes should be zero")
	}
	if got[12] != 0x00 || got[31] != 0x13 {
		t.Errorf("Address bytes misplaced: % x", got)
	}
}

func TestParseRecipient_FullWidthHex(t *testing.T) {
	input := "0x" + "ab" + "00000000000000000000000000000000000000000000000000000000000000"
	got, err := parseRecipient(input)
	if err != nil {
		t.Fatalf("parseRecipient failed: %v", err)
	}
	if got[0] != 0xAB {
		t.Errorf("First byte mismatch: got %x", got[0])
	}
}

func TestParseRecipient_Base58(t *testing.T) {
	key := solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
	got, err := parseRecipient(key.String())
	if err != nil {
		t.Fatalf("parseRecipient failed: %v", err)
	}
	if !bytes.Equal(got[:], key[:]) {
		t.Error("Base58 recipient should pass through unchanged")
	}
}

func TestParseRecipient_Rejected(t *testing.T) {
	for _, input := range []string{"", "0x0102", "not-a-key"} {
		if _, err := parseRecipient(input); err == nil {
			t.Errorf("parseRecipient(%q) should fail", input)
		}
	}
}

func TestBridgeErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&bridge.InvalidTicketStateError{TicketID: 1, Status: bridge.TicketBridged}, http.StatusConflict},
		{&endpoint.NotInitializedError{Role: "executor config"}, http.StatusUnprocessableEntity},
		{endpoint.ErrLibraryNotConfigured, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := bridgeErrorStatus(tc.err); got != tc.want {
			t.Errorf("bridgeErrorStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
