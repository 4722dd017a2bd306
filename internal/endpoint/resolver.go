package endpoint

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

// AccountInfo is the slice of on-chain account state the resolver needs:
// the owning program and the raw data buffer.
type AccountInfo struct {
	Owner solana.PublicKey
	Data  []byte
}

// AccountFetcher reads accounts from the ledger. A nil result (with nil
// error) means the account does not exist. GetAccounts preserves input order
// and returns one entry per requested key.
type AccountFetcher interface {
	GetAccount(ctx context.Context, key solana.PublicKey) (*AccountInfo, error)
	GetAccounts(ctx context.Context, keys []solana.PublicKey) ([]*AccountInfo, error)
}

// Resolver assembles the ordered account list a send through the messaging
// endpoint requires. The list is data-dependent: its length and content
// change with the configured message library and validator set.
type Resolver struct {
	fetcher  AccountFetcher
	programs Programs
	logger   zerolog.Logger
}

// NewResolver creates a resolver against the given ledger fetcher and
// program registry.
func NewResolver(fetcher AccountFetcher, programs Programs, logger zerolog.Logger) *Resolver {
	return &Resolver{
		fetcher:  fetcher,
		programs: programs,
		logger:   logger.With().Str("component", "resolver").Logger(),
	}
}

// Accounts fixed per path: ten endpoint-level entries, then two on the
// direct path or eight on the validated path, then four per executor and
// four per validator.
const (
	endpointAccountCount  = 10
	directExtraCount      = 2
	validatedFixedCount   = 8
	executorAccountCount  = 4
	validatorAccountCount = 4
)

// Resolve returns the exact ordered account list for sending a message from
// sender to the given destination and receiver, with payer fronting fees.
// The ordering is a hard contract with the on-chain call; callers must pass
// the slice through untouched.
func (r *Resolver) Resolve(ctx context.Context, sender solana.PublicKey, dstEid uint32, receiver [32]byte, payer solana.PublicKey) ([]*solana.AccountMeta, error) {
	senderLibCfg, _, err := r.programs.DeriveSendLibraryConfig(sender, dstEid)
	if err != nil {
		return nil, err
	}
	defaultLibCfg, _, err := r.programs.DeriveDefaultSendLibraryConfig(dstEid)
	if err != nil {
		return nil, err
	}

	// Round trip 1: both library pointers at once.
	infos, err := r.fetcher.GetAccounts(ctx, []solana.PublicKey{senderLibCfg, defaultLibCfg})
	if err != nil {
		return nil, fmt.Errorf("fetching library pointers: %w", err)
	}
	if infos[0] == nil || infos[1] == nil {
		return nil, fmt.Errorf("%w: destination %d", ErrLibraryNotConfigured, dstEid)
	}

	senderPtr, err := DecodeLibraryPointer(infos[0].Data)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", senderLibCfg, err)
	}
	defaultPtr, err := DecodeLibraryPointer(infos[1].Data)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", defaultLibCfg, err)
	}

	library := senderPtr.MessageLib
	if IsSentinel(library) {
		library = defaultPtr.MessageLib
	}

	list := newAccountList(endpointAccountCount + validatedFixedCount + executorAccountCount)
	if err := r.appendEndpointAccounts(list, sender, dstEid, receiver, library, senderLibCfg, defaultLibCfg); err != nil {
		return nil, err
	}

	if library.Equals(r.programs.DirectLibrary) {
		list.readonly(r.programs.DirectLibrary)
		list.signer(payer, true)
		r.logger.Debug().
			Uint32("dst_eid", dstEid).
			Int("accounts", len(list.flatten())).
			Msg("Resolved direct send path")
		return list.flatten(), nil
	}

	if err := r.appendValidatedAccounts(ctx, list, sender, dstEid, library, payer); err != nil {
		return nil, err
	}

	r.logger.Debug().
		Uint32("dst_eid", dstEid).
		Str("library", library.String()).
		Int("accounts", len(list.flatten())).
		Msg("Resolved validated send path")
	return list.flatten(), nil
}

// appendEndpointAccounts emits the ten endpoint-level entries common to both
// paths. The outbound counter is the only writable one; sends increment it.
func (r *Resolver) appendEndpointAccounts(list *accountList, sender solana.PublicKey, dstEid uint32, receiver [32]byte, library, senderLibCfg, defaultLibCfg solana.PublicKey) error {
	libInfo, _, err := r.programs.DeriveMessageLibInfo(library)
	if err != nil {
		return err
	}
	settings, _, err := r.programs.DeriveEndpointSettings()
	if err != nil {
		return err
	}
	nonce, _, err := r.programs.DeriveNonce(sender, dstEid, receiver)
	if err != nil {
		return err
	}
	eventAuthority, _, err := r.programs.DeriveEventAuthority()
	if err != nil {
		return err
	}

	list.readonly(r.programs.Endpoint)
	list.readonly(sender)
	list.readonly(library)
	list.readonly(senderLibCfg)
	list.readonly(defaultLibCfg)
	list.readonly(libInfo)
	list.readonly(settings)
	list.writable(nonce)
	list.readonly(eventAuthority)
	list.readonly(r.programs.Endpoint)
	return nil
}

func (r *Resolver) appendValidatedAccounts(ctx context.Context, list *accountList, sender solana.PublicKey, dstEid uint32, library, payer solana.PublicKey) error {
	librarySettings, _, err := DeriveLibrarySettings(library)
	if err != nil {
		return err
	}
	defaultSendCfg, _, err := DeriveDefaultSendConfig(library, dstEid)
	if err != nil {
		return err
	}
	senderSendCfg, _, err := DeriveSendConfig(library, dstEid, sender)
	if err != nil {
		return err
	}
	libraryEventAuthority, _, err := derive([][]byte{SeedEventAuthority}, library)
	if err != nil {
		return err
	}

	// Round trip 2: library settings plus both send configs.
	infos, err := r.fetcher.GetAccounts(ctx, []solana.PublicKey{librarySettings, defaultSendCfg, senderSendCfg})
	if err != nil {
		return fmt.Errorf("fetching send configs: %w", err)
	}
	if infos[0] == nil {
		return &NotInitializedError{Role: "message library settings", Account: librarySettings}
	}
	if infos[1] == nil {
		return &NotInitializedError{Role: "default send config", Account: defaultSendCfg}
	}

	def, err := DecodeSendConfig(infos[1].Data)
	if err != nil {
		return fmt.Errorf("account %s: %w", defaultSendCfg, err)
	}

	// A sender that never customized its path has no override account; an
	// all-sentinel override inherits every default field.
	var override SendConfig
	if infos[2] != nil {
		if override, err = DecodeSendConfig(infos[2].Data); err != nil {
			return fmt.Errorf("account %s: %w", senderSendCfg, err)
		}
	}

	merged := MergeSendConfig(def, override)
	if IsSentinel(merged.Executor) {
		return &NotInitializedError{Role: "executor config", Account: merged.Executor}
	}

	list.readonly(librarySettings)
	list.readonly(defaultSendCfg)
	list.readonly(senderSendCfg)
	list.signer(payer, true)
	list.readonly(library) // treasury placeholder until one is registered
	list.readonly(solana.SystemProgramID)
	list.readonly(libraryEventAuthority)
	list.readonly(library)

	// Round trip 3: the executor config plus every validator config,
	// required before optional. Validator order is part of the contract.
	validators := make([]solana.PublicKey, 0, len(merged.RequiredValidators)+len(merged.OptionalValidators))
	validators = append(validators, merged.RequiredValidators...)
	validators = append(validators, merged.OptionalValidators...)

	keys := append([]solana.PublicKey{merged.Executor}, validators...)
	infos, err = r.fetcher.GetAccounts(ctx, keys)
	if err != nil {
		return fmt.Errorf("fetching executor and validator configs: %w", err)
	}
	if infos[0] == nil {
		return &NotInitializedError{Role: "executor config", Account: merged.Executor}
	}
	executorCfg, err := DecodeExecutorConfig(infos[0].Data)
	if err != nil {
		return fmt.Errorf("account %s: %w", merged.Executor, err)
	}
	executorProgram := infos[0].Owner

	validatorCfgs := make([]ValidatorConfig, len(validators))
	validatorPrograms := make([]solana.PublicKey, len(validators))
	for i, key := range validators {
		info := infos[i+1]
		if info == nil {
			return &NotInitializedError{Role: "validator config", Account: key}
		}
		if validatorCfgs[i], err = DecodeValidatorConfig(info.Data); err != nil {
			return fmt.Errorf("account %s: %w", key, err)
		}
		validatorPrograms[i] = info.Owner
	}

	// Round trip 4: price feeds. Their addresses only became known above, so
	// this read is sequenced after the config decode.
	feedKeys := make([]solana.PublicKey, 0, 1+len(validators))
	feedKeys = append(feedKeys, executorCfg.PriceFeed)
	for _, cfg := range validatorCfgs {
		feedKeys = append(feedKeys, cfg.PriceFeed)
	}
	feedInfos, err := r.fetcher.GetAccounts(ctx, feedKeys)
	if err != nil {
		return fmt.Errorf("fetching price feeds: %w", err)
	}

	appendFeed := func(feed solana.PublicKey, info *AccountInfo, role string) {
		if info == nil {
			// Price feeds may legitimately not exist for a fresh
			// registration; substitute the placeholder and keep going.
			r.logger.Warn().
				Str("role", role).
				Str("price_feed", feed.String()).
				Msg("Price feed account missing, substituting placeholder")
			list.readonly(r.programs.NoProgram)
			list.readonly(r.programs.NoProgram)
			return
		}
		list.readonly(info.Owner)
		list.readonly(feed)
	}

	list.readonly(executorProgram)
	list.writable(merged.Executor)
	appendFeed(executorCfg.PriceFeed, feedInfos[0], "executor")

	for i, key := range validators {
		list.readonly(validatorPrograms[i])
		list.writable(key)
		appendFeed(validatorCfgs[i].PriceFeed, feedInfos[i+1], "validator")
	}

	return nil
}
