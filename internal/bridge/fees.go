package bridge

// FeeEstimator prices the native fee attached to a send. The default
// implementation returns a configured overestimate; a dynamic quote against
// the library can replace it without touching the orchestrator.
type FeeEstimator interface {
	EstimateNativeFee(dstEid uint32) uint64
}

// FixedFeeEstimator returns a flat configured lamport amount, with optional
// per-destination overrides.
type FixedFeeEstimator struct {
	DefaultLamports uint64
	PerDestination  map[uint32]uint64
}

// EstimateNativeFee returns the configured fee for a destination.
func (f *FixedFeeEstimator) EstimateNativeFee(dstEid uint32) uint64 {
	if fee, ok := f.PerDestination[dstEid]; ok {
		return fee
	}
	return f.DefaultLamports
}
