package endpoint

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Programs is the immutable table of protocol program addresses, keyed by
// logical role. It is built once from configuration and injected into the
// resolver, so the same code runs against mainnet, devnet, or a sandbox
// deployment.
type Programs struct {
	// Bridge is the token-launch bridge program that owns stores, peers,
	// vaults, and tickets.
	Bridge solana.PublicKey

	// Endpoint is the messaging endpoint program that owns library
	// registrations, send-library configs, and nonce accounts.
	Endpoint solana.PublicKey

	// DirectLibrary is the no-validation message library.
	DirectLibrary solana.PublicKey

	// ValidatedLibrary is the validator-quorum (ULN) message library.
	ValidatedLibrary solana.PublicKey

	// NoProgram is the well-known placeholder substituted for price-feed
	// accounts that do not exist yet.
	NoProgram solana.PublicKey
}

// ProgramAddresses is the base58 form of Programs as it appears in
// configuration files.
type ProgramAddresses struct {
	Bridge           string `mapstructure:"bridge"`
	Endpoint         string `mapstructure:"endpoint"`
	DirectLibrary    string `mapstructure:"direct_library"`
	ValidatedLibrary string `mapstructure:"validated_library"`
	NoProgram        string `mapstructure:"no_program"`
}

// NewPrograms parses a ProgramAddresses table into a Programs registry.
func NewPrograms(addrs ProgramAddresses) (Programs, error) {
	var p Programs
	var err error

	if p.Bridge, err = solana.PublicKeyFromBase58(addrs.Bridge); err != nil {
		return p, fmt.Errorf("invalid bridge program address %q: %w", addrs.Bridge, err)
	}
	if p.Endpoint, err = solana.PublicKeyFromBase58(addrs.Endpoint); err != nil {
		return p, fmt.Errorf("invalid endpoint program address %q: %w", addrs.Endpoint, err)
	}
	if p.DirectLibrary, err = solana.PublicKeyFromBase58(addrs.DirectLibrary); err != nil {
		return p, fmt.Errorf("invalid direct library address %q: %w", addrs.DirectLibrary, err)
	}
	if p.ValidatedLibrary, err = solana.PublicKeyFromBase58(addrs.ValidatedLibrary); err != nil {
		return p, fmt.Errorf("invalid validated library address %q: %w", addrs.ValidatedLibrary, err)
	}
	if addrs.NoProgram != "" {
		if p.NoProgram, err = solana.PublicKeyFromBase58(addrs.NoProgram); err != nil {
			return p, fmt.Errorf("invalid no-program placeholder address %q: %w", addrs.NoProgram, err)
		}
	} else {
		p.NoProgram = solana.SystemProgramID
	}

	return p, nil
}

// IsSentinel reports whether key is the all-zero "not overridden" sentinel.
func IsSentinel(key solana.PublicKey) bool {
	return key.IsZero()
}
