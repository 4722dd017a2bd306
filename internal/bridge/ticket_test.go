package bridge

import (
	"encoding/binary"
	"testing"

	"github.com/nullmatrix0/zaunch/internal/endpoint"
)

func encodeTicket(t Ticket) []byte {
	buf := make([]byte, ticketAccountLen)
	binary.LittleEndian.PutUint64(buf[8:], t.ID)
	copy(buf[16:48], t.Owner[:])
	binary.LittleEndian.PutUint64(buf[48:], t.Amount)
	buf[56] = byte(t.Status)
	return buf
}

func TestDecodeTicket(t *testing.T) {
	owner := testPrograms().Endpoint
	want := Ticket{ID: 987654321, Owner: owner, Amount: 5_000_000, Status: TicketLocked}

	got, err := DecodeTicket(encodeTicket(want))
	if err != nil {
		t.Fatalf("Failed to decode ticket: %v", err)
	}

	if got.ID != want.ID {
		t.Errorf("ID mismatch: got %d, want %d", got.ID, want.ID)
	}
	if !got.Owner.Equals(want.Owner) {
		t.Errorf("Owner mismatch: got %s, want %s", got.Owner, want.Owner)
	}
	if got.Amount != want.Amount {
		t.Errorf("Amount mismatch: got %d, want %d", got.Amount, want.Amount)
	}
	if got.Status != TicketLocked {
		t.Errorf("Status mismatch: got %s, want locked", got.Status)
	}
}

func TestDecodeTicket_Truncated(t *testing.T) {
	_, err := DecodeTicket(make([]byte, 20))
	if !endpoint.IsDecodeError(err, endpoint.DecodeTruncated) {
		t.Fatalf("Expected truncated decode error, got %v", err)
	}
}

func TestNewTicketID_Distinct(t *testing.T) {
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		id, err := NewTicketID()
		if err != nil {
			t.Fatalf("Failed to generate ticket id: %v", err)
		}
		if seen[id] {
			t.Fatalf("Duplicate ticket id generated: %d", id)
		}
		seen[id] = true
	}
}
