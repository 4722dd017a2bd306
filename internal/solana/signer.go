package solana

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Signer holds the payer keypair used to sign lock and bridge transactions.
type Signer struct {
	key solana.PrivateKey
}

// KeystoreFile is the JSON structure of a keystore file. The private key may
// be hex or base58 encoded.
type KeystoreFile struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

// NewSignerFromKeystore loads the payer keypair from a JSON keystore file.
func NewSignerFromKeystore(path string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	var keystore KeystoreFile
	if err := json.Unmarshal(data, &keystore); err != nil {
		return nil, fmt.Errorf("failed to parse keystore: %w", err)
	}

	return NewSignerFromString(keystore.PrivateKey)
}

// NewSignerFromString parses a hex- or base58-encoded private key.
func NewSignerFromString(encoded string) (*Signer, error) {
	keyBytes, err := hex.DecodeString(encoded)
	if err != nil {
		keyBytes, err = base58.Decode(encoded)
		if err != nil || len(keyBytes) == 0 {
			return nil, fmt.Errorf("failed to decode private key: %w", err)
		}
	}

	if len(keyBytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size: expected %d, got %d",
			ed25519.PrivateKeySize, len(keyBytes))
	}

	return &Signer{key: solana.PrivateKey(keyBytes)}, nil
}

// PublicKey returns the payer's public key.
func (s *Signer) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// Sign signs every required signature slot of tx that matches the payer key.
func (s *Signer) Sign(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}
