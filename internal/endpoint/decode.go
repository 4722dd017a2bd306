package endpoint

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// The on-chain records decoded here carry no schema: every account is an
// 8-byte discriminator followed by fields at fixed, strictly increasing
// offsets, with variable-length arrays encoded as a count followed by that
// many fixed-size elements. The cursor below is the single place that does
// offset arithmetic and bounds checking; record decoders compose its typed
// reads in layout order.

const discriminatorLen = 8

// validatorSignerLen is the width of one validator signer entry. Signers are
// uncompressed secp256k1 points, wider than an account identifier.
const validatorSignerLen = 64

type cursor struct {
	record string
	buf    []byte
	off    int
}

func newCursor(record string, buf []byte) *cursor {
	return &cursor{record: record, buf: buf}
}

func (c *cursor) need(n int, kind DecodeErrorKind) error {
	if c.off+n > len(c.buf) {
		return &DecodeError{
			Kind:   kind,
			Record: c.record,
			Offset: c.off,
			Need:   n,
			Have:   len(c.buf) - c.off,
		}
	}
	return nil
}

func (c *cursor) skip(n int) error {
	if err := c.need(n, DecodeTruncated); err != nil {
		return err
	}
	c.off += n
	return nil
}

func (c *cursor) u8() (byte, error) {
	if err := c.need(1, DecodeTruncated); err != nil {
		return 0, err
	}
	v := c.buf[c.off]
	c.off++
	return v, nil
}

func (c *cursor) u16() (uint16, error) {
	if err := c.need(2, DecodeTruncated); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.off:])
	c.off += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4, DecodeTruncated); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.off:])
	c.off += 4
	return v, nil
}

func (c *cursor) u64() (uint64, error) {
	if err := c.need(8, DecodeTruncated); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.off:])
	c.off += 8
	return v, nil
}

func (c *cursor) pubkey() (solana.PublicKey, error) {
	if err := c.need(solana.PublicKeyLength, DecodeTruncated); err != nil {
		return solana.PublicKey{}, err
	}
	var k solana.PublicKey
	copy(k[:], c.buf[c.off:])
	c.off += solana.PublicKeyLength
	return k, nil
}

// pubkeyArray reads count keys with no length prefix; the count came from an
// earlier field of the record.
func (c *cursor) pubkeyArray(count int) ([]solana.PublicKey, error) {
	if err := c.need(count*solana.PublicKeyLength, DecodeArrayOverrun); err != nil {
		return nil, err
	}
	keys := make([]solana.PublicKey, count)
	for i := range keys {
		copy(keys[i][:], c.buf[c.off:])
		c.off += solana.PublicKeyLength
	}
	return keys, nil
}

// pubkeyVec reads a 4-byte little-endian count immediately followed by that
// many keys.
func (c *cursor) pubkeyVec() ([]solana.PublicKey, error) {
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	return c.pubkeyArray(int(count))
}

// byteVecArray reads a 4-byte little-endian count followed by that many
// fixed-width byte elements.
func (c *cursor) byteVecArray(width int) ([][]byte, error) {
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	if err := c.need(int(count)*width, DecodeArrayOverrun); err != nil {
		return nil, err
	}
	out := make([][]byte, count)
	for i := range out {
		out[i] = append([]byte(nil), c.buf[c.off:c.off+width]...)
		c.off += width
	}
	return out, nil
}

// LibraryPointer is the endpoint's library-selection record: which message
// library handles sends for a (sender, destination) pair.
type LibraryPointer struct {
	MessageLib solana.PublicKey
}

// DecodeLibraryPointer parses a raw send-library-config account.
func DecodeLibraryPointer(raw []byte) (LibraryPointer, error) {
	c := newCursor("library pointer", raw)
	if err := c.skip(discriminatorLen); err != nil {
		return LibraryPointer{}, err
	}
	lib, err := c.pubkey()
	if err != nil {
		return LibraryPointer{}, err
	}
	return LibraryPointer{MessageLib: lib}, nil
}

// SendConfig is the validated path's per-destination send configuration:
// the validator sets and the executor that fronts delivery.
//
// Unlike the other records, its array lengths come from the u8 count fields
// that precede the threshold byte; the arrays themselves carry no prefix.
type SendConfig struct {
	Bump               uint8
	Confirmations      uint64
	OptionalThreshold  uint8
	RequiredValidators []solana.PublicKey
	OptionalValidators []solana.PublicKey
	MaxMessageSize     uint32
	Executor           solana.PublicKey
}

// DecodeSendConfig parses a raw send-config account.
func DecodeSendConfig(raw []byte) (SendConfig, error) {
	var cfg SendConfig
	c := newCursor("send config", raw)
	var err error

	if err = c.skip(discriminatorLen); err != nil {
		return cfg, err
	}
	if cfg.Bump, err = c.u8(); err != nil {
		return cfg, err
	}
	if cfg.Confirmations, err = c.u64(); err != nil {
		return cfg, err
	}
	requiredCount, err := c.u8()
	if err != nil {
		return cfg, err
	}
	optionalCount, err := c.u8()
	if err != nil {
		return cfg, err
	}
	if cfg.OptionalThreshold, err = c.u8(); err != nil {
		return cfg, err
	}
	if cfg.RequiredValidators, err = c.pubkeyArray(int(requiredCount)); err != nil {
		return cfg, err
	}
	if cfg.OptionalValidators, err = c.pubkeyArray(int(optionalCount)); err != nil {
		return cfg, err
	}
	if cfg.MaxMessageSize, err = c.u32(); err != nil {
		return cfg, err
	}
	if cfg.Executor, err = c.pubkey(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ExecutorConfig is an executor's on-chain registration: its access lists and
// the price feed it prices delivery with.
type ExecutorConfig struct {
	Bump          uint8
	Owner         solana.PublicKey
	Allowlist     []solana.PublicKey
	Denylist      []solana.PublicKey
	Admins        []solana.PublicKey
	Executors     []solana.PublicKey
	MessageLibs   []solana.PublicKey
	Paused        bool
	MultiplierBps uint16
	PriceFeed     solana.PublicKey
}

// DecodeExecutorConfig parses a raw executor-config account.
func DecodeExecutorConfig(raw []byte) (ExecutorConfig, error) {
	var cfg ExecutorConfig
	c := newCursor("executor config", raw)
	var err error

	if err = c.skip(discriminatorLen); err != nil {
		return cfg, err
	}
	if cfg.Bump, err = c.u8(); err != nil {
		return cfg, err
	}
	if cfg.Owner, err = c.pubkey(); err != nil {
		return cfg, err
	}
	if cfg.Allowlist, err = c.pubkeyVec(); err != nil {
		return cfg, err
	}
	if cfg.Denylist, err = c.pubkeyVec(); err != nil {
		return cfg, err
	}
	if cfg.Admins, err = c.pubkeyVec(); err != nil {
		return cfg, err
	}
	if cfg.Executors, err = c.pubkeyVec(); err != nil {
		return cfg, err
	}
	if cfg.MessageLibs, err = c.pubkeyVec(); err != nil {
		return cfg, err
	}
	paused, err := c.u8()
	if err != nil {
		return cfg, err
	}
	cfg.Paused = paused != 0
	if cfg.MultiplierBps, err = c.u16(); err != nil {
		return cfg, err
	}
	if cfg.PriceFeed, err = c.pubkey(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ValidatorConfig is a validator's on-chain registration: its signer set,
// quorum, and price feed.
type ValidatorConfig struct {
	Vid         uint32
	Bump        uint8
	Signers     [][]byte
	Quorum      uint8
	Allowlist   []solana.PublicKey
	Denylist    []solana.PublicKey
	Paused      bool
	MessageLibs []solana.PublicKey
	Admins      []solana.PublicKey
	PriceFeed   solana.PublicKey
}

// DecodeValidatorConfig parses a raw validator-config account.
func DecodeValidatorConfig(raw []byte) (ValidatorConfig, error) {
	var cfg ValidatorConfig
	c := newCursor("validator config", raw)
	var err error

	if err = c.skip(discriminatorLen); err != nil {
		return cfg, err
	}
	if cfg.Vid, err = c.u32(); err != nil {
		return cfg, err
	}
	if cfg.Bump, err = c.u8(); err != nil {
		return cfg, err
	}
	if cfg.Signers, err = c.byteVecArray(validatorSignerLen); err != nil {
		return cfg, err
	}
	if cfg.Quorum, err = c.u8(); err != nil {
		return cfg, err
	}
	if cfg.Allowlist, err = c.pubkeyVec(); err != nil {
		return cfg, err
	}
	if cfg.Denylist, err = c.pubkeyVec(); err != nil {
		return cfg, err
	}
	paused, err := c.u8()
	if err != nil {
		return cfg, err
	}
	cfg.Paused = paused != 0
	if cfg.MessageLibs, err = c.pubkeyVec(); err != nil {
		return cfg, err
	}
	if cfg.Admins, err = c.pubkeyVec(); err != nil {
		return cfg, err
	}
	if cfg.PriceFeed, err = c.pubkey(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
