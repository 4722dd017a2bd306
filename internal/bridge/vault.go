package bridge

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/nullmatrix0/zaunch/internal/endpoint"
)

// Vault is the per-mint custodial record holding locked funds.
type Vault struct {
	Mint         solana.PublicKey
	Authority    solana.PublicKey
	TokenAccount solana.PublicKey
	TotalLocked  uint64
	Bump         uint8
}

// VaultStatus is the read-only view of a vault. Absence is reported, never
// an error.
type VaultStatus struct {
	Exists            bool             `json:"exists"`
	TotalLocked       uint64           `json:"total_locked"`
	VaultTokenAccount solana.PublicKey `json:"vault_token_account"`
}

// Vault account layout: discriminator(8) + mint(32) + authority(32) +
// tokenAccount(32) + totalLocked(8 LE) + bump(1).
const vaultAccountLen = 8 + 32 + 32 + 32 + 8 + 1

// DecodeVault parses a raw vault account.
func DecodeVault(raw []byte) (Vault, error) {
	if len(raw) < vaultAccountLen {
		return Vault{}, &endpoint.DecodeError{
			Kind:   endpoint.DecodeTruncated,
			Record: "vault",
			Need:   vaultAccountLen,
			Have:   len(raw),
		}
	}

	var v Vault
	copy(v.Mint[:], raw[8:40])
	copy(v.Authority[:], raw[40:72])
	copy(v.TokenAccount[:], raw[72:104])
	v.TotalLocked = binary.LittleEndian.Uint64(raw[104:112])
	v.Bump = raw[112]
	return v, nil
}
