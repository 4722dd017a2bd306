package bridge

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/nullmatrix0/zaunch/internal/endpoint"
)

// TicketStatus is the lifecycle state of a lock ticket.
type TicketStatus uint8

const (
	// TicketLocked: funds are in the vault, the send has not happened.
	TicketLocked TicketStatus = 1
	// TicketBridged: the cross-chain message was emitted; the record stays
	// on-chain as an audit trail.
	TicketBridged TicketStatus = 2
)

func (s TicketStatus) String() string {
	switch s {
	case TicketLocked:
		return "locked"
	case TicketBridged:
		return "bridged"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Ticket is a one-shot record binding a locked amount to a pending
// cross-chain send, addressed on-chain by (owner, id).
type Ticket struct {
	ID     uint64
	Owner  solana.PublicKey
	Amount uint64
	Status TicketStatus
}

// InvalidTicketStateError reports a bridge attempt against a ticket that is
// not in the Locked state. This is a caller logic error, not retryable.
type InvalidTicketStateError struct {
	TicketID uint64
	Status   TicketStatus
}

func (e *InvalidTicketStateError) Error() string {
	return fmt.Sprintf("ticket %d is %s, expected locked", e.TicketID, e.Status)
}

// NewTicketID draws a fresh ticket id from the full uint64 range.
func NewTicketID() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("failed to generate ticket id: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Ticket account layout: discriminator(8) + id(8 LE) + owner(32) +
// amount(8 LE) + status(1).
const ticketAccountLen = 8 + 8 + 32 + 8 + 1

// DecodeTicket parses a raw ticket account.
func DecodeTicket(raw []byte) (Ticket, error) {
	if len(raw) < ticketAccountLen {
		return Ticket{}, &endpoint.DecodeError{
			Kind:   endpoint.DecodeTruncated,
			Record: "ticket",
			Need:   ticketAccountLen,
			Have:   len(raw),
		}
	}

	var t Ticket
	t.ID = binary.LittleEndian.Uint64(raw[8:16])
	copy(t.Owner[:], raw[16:48])
	t.Amount = binary.LittleEndian.Uint64(raw[48:56])
	t.Status = TicketStatus(raw[56])
	return t, nil
}
