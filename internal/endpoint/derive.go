package endpoint

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PDA seeds for accounts owned by the bridge program.
var (
	SeedStore          = []byte("Store")
	SeedPeer           = []byte("Peer")
	SeedVault          = []byte("Vault")
	SeedVaultAuthority = []byte("VaultAuthority")
	SeedTicket         = []byte("Ticket")
)

// PDA seeds for accounts owned by the endpoint program.
var (
	SeedEndpoint          = []byte("Endpoint")
	SeedMessageLib        = []byte("MessageLib")
	SeedSendLibraryConfig = []byte("SendLibraryConfig")
	SeedNonce             = []byte("Nonce")
	SeedEventAuthority    = []byte("__event_authority")
)

// PDA seeds for accounts owned by a message library program.
var (
	SeedSendConfig = []byte("SendConfig")
)

// Destination chain identifiers are encoded big-endian in seeds. This matches
// the on-chain programs; a little-endian seed derives a different (and wrong)
// address.
func eidSeed(eid uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, eid)
	return b
}

// Ticket ids are little-endian in seeds, like every other non-eid integer.
func ticketIDSeed(id uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, id)
	return b
}

// derive wraps FindProgramAddress. The bump search failing means no address
// off the ed25519 curve exists for these seeds, which does not happen for
// well-formed protocol seeds; it is surfaced as a fatal environment fault.
func derive(seeds [][]byte, program solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: seeds under program %s: %v", ErrNoValidAddress, program, err)
	}
	return addr, bump, nil
}

// DeriveStore derives the bridge program's global store account.
func (p Programs) DeriveStore() (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedStore}, p.Bridge)
}

// DerivePeer derives the per-destination peer record for a store.
func (p Programs) DerivePeer(store solana.PublicKey, dstEid uint32) (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedPeer, store.Bytes(), eidSeed(dstEid)}, p.Bridge)
}

// DeriveVault derives the per-mint lock vault.
func (p Programs) DeriveVault(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedVault, mint.Bytes()}, p.Bridge)
}

// DeriveVaultAuthority derives the authority that owns a vault's token
// account.
func (p Programs) DeriveVaultAuthority(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedVaultAuthority, mint.Bytes()}, p.Bridge)
}

// DeriveTicket derives the lock ticket record for (owner, id).
func (p Programs) DeriveTicket(owner solana.PublicKey, id uint64) (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedTicket, owner.Bytes(), ticketIDSeed(id)}, p.Bridge)
}

// DeriveEndpointSettings derives the endpoint program's global settings
// account.
func (p Programs) DeriveEndpointSettings() (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedEndpoint}, p.Endpoint)
}

// DeriveMessageLibInfo derives the endpoint's registration record for a
// message library.
func (p Programs) DeriveMessageLibInfo(lib solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedMessageLib, lib.Bytes()}, p.Endpoint)
}

// DeriveSendLibraryConfig derives the per-sender library selection record for
// a destination.
func (p Programs) DeriveSendLibraryConfig(sender solana.PublicKey, dstEid uint32) (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedSendLibraryConfig, sender.Bytes(), eidSeed(dstEid)}, p.Endpoint)
}

// DeriveDefaultSendLibraryConfig derives the destination-wide default library
// selection record.
func (p Programs) DeriveDefaultSendLibraryConfig(dstEid uint32) (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedSendLibraryConfig, eidSeed(dstEid)}, p.Endpoint)
}

// DeriveNonce derives the outbound message counter for
// (sender, destination, receiver).
func (p Programs) DeriveNonce(sender solana.PublicKey, dstEid uint32, receiver [32]byte) (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedNonce, sender.Bytes(), eidSeed(dstEid), receiver[:]}, p.Endpoint)
}

// DeriveEventAuthority derives the endpoint program's event-logging
// authority.
func (p Programs) DeriveEventAuthority() (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedEventAuthority}, p.Endpoint)
}

// DeriveLibrarySettings derives a message library's own settings account,
// owned by the library program itself.
func DeriveLibrarySettings(library solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedMessageLib}, library)
}

// DeriveSendConfig derives the per-sender send configuration under a message
// library program.
func DeriveSendConfig(library solana.PublicKey, dstEid uint32, sender solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedSendConfig, eidSeed(dstEid), sender.Bytes()}, library)
}

// DeriveDefaultSendConfig derives the destination-wide default send
// configuration under a message library program.
func DeriveDefaultSendConfig(library solana.PublicKey, dstEid uint32) (solana.PublicKey, uint8, error) {
	return derive([][]byte{SeedSendConfig, eidSeed(dstEid)}, library)
}
