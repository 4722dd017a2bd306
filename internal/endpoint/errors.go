package endpoint

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrNoValidAddress means the bump search space was exhausted during
	// derivation. Treated as an unrecoverable environment fault.
	ErrNoValidAddress = errors.New("no valid program derived address")

	// ErrLibraryNotConfigured means the send-library pointer for the
	// destination is missing on-chain. Not recoverable locally; an operator
	// has not completed setup for this destination.
	ErrLibraryNotConfigured = errors.New("send library not configured for destination")
)

// NotInitializedError reports a required on-chain account that does not
// exist. It names the account so the caller can render an actionable message.
type NotInitializedError struct {
	Role    string
	Account solana.PublicKey
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("%s account %s is not initialized", e.Role, e.Account)
}

// DecodeErrorKind classifies how a raw account buffer failed to decode.
type DecodeErrorKind string

const (
	// DecodeTruncated: the buffer is shorter than the record's fixed fields.
	DecodeTruncated DecodeErrorKind = "truncated"
	// DecodeArrayOverrun: an array count implies a read past the buffer end.
	DecodeArrayOverrun DecodeErrorKind = "array_overrun"
)

// DecodeError reports a buffer that does not match the expected record
// layout. Either kind is fatal for the whole resolution: the chain state does
// not match the protocol version this client was built against.
type DecodeError struct {
	Kind   DecodeErrorKind
	Record string
	Offset int
	Need   int
	Have   int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %s at offset %d: need %d bytes, have %d",
		e.Record, e.Kind, e.Offset, e.Need, e.Have)
}

// IsDecodeError reports whether err is a DecodeError of the given kind.
func IsDecodeError(err error, kind DecodeErrorKind) bool {
	var de *DecodeError
	return errors.As(err, &de) && de.Kind == kind
}
