package endpoint

import (
	"github.com/gagliardetto/solana-go"
)

// MergeSendConfig computes the effective send configuration from the
// destination-wide default and the per-sender override. A field equal to its
// sentinel (all-zero key, zero scalar, empty array) inherits the default;
// a non-empty validator array replaces the default wholesale, with sentinel
// entries filtered out.
func MergeSendConfig(def, override SendConfig) SendConfig {
	merged := def

	if !IsSentinel(override.Executor) {
		merged.Executor = override.Executor
	}
	if override.Confirmations != 0 {
		merged.Confirmations = override.Confirmations
	}
	if override.OptionalThreshold != 0 {
		merged.OptionalThreshold = override.OptionalThreshold
	}
	if override.MaxMessageSize != 0 {
		merged.MaxMessageSize = override.MaxMessageSize
	}
	if len(override.RequiredValidators) > 0 {
		merged.RequiredValidators = filterSentinels(override.RequiredValidators)
	}
	if len(override.OptionalValidators) > 0 {
		merged.OptionalValidators = filterSentinels(override.OptionalValidators)
	}

	return merged
}

func filterSentinels(keys []solana.PublicKey) []solana.PublicKey {
	out := make([]solana.PublicKey, 0, len(keys))
	for _, k := range keys {
		if !IsSentinel(k) {
			out = append(out, k)
		}
	}
	return out
}
