package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"

	"github.com/nullmatrix0/zaunch/internal/bridge"
	"github.com/nullmatrix0/zaunch/internal/endpoint"
	solclient "github.com/nullmatrix0/zaunch/internal/solana"
)

// Vault handlers

func (s *Server) handleVaultInit(w http.ResponseWriter, r *http.Request) {
	mint, ok := s.mintFromPath(w, r)
	if !ok {
		return
	}

	if err := s.orch.EnsureVault(r.Context(), mint); err != nil {
		s.respondBridgeError(w, err)
		return
	}

	status, err := s.orch.VaultStatus(r.Context(), mint)
	if err != nil {
		s.respondBridgeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleVaultStatus(w http.ResponseWriter, r *http.Request) {
	mint, ok := s.mintFromPath(w, r)
	if !ok {
		return
	}

	status, err := s.orch.VaultStatus(r.Context(), mint)
	if err != nil {
		s.respondBridgeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

// Bridge handlers

type LockRequest struct {
	Mint   string `json:"mint"`
	Amount string `json:"amount"`
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	mint, err := solana.PublicKeyFromBase58(req.Mint)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid mint", err)
		return
	}
	amount, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil || amount == 0 {
		respondError(w, http.StatusBadRequest, "amount must be a positive integer", err)
		return
	}

	receipt, err := s.orch.Lock(r.Context(), mint, amount)
	if err != nil {
		s.respondBridgeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ticket_id": strconv.FormatUint(receipt.Ticket.ID, 10),
		"owner":     receipt.Ticket.Owner.String(),
		"amount":    req.Amount,
		"signature": receipt.Signature.String(),
	})
}

type BridgeRequest struct {
	TicketID    string `json:"ticket_id,omitempty"`
	Mint        string `json:"mint"`
	Amount      string `json:"amount,omitempty"`
	DstEid      uint32 `json:"dst_eid"`
	Recipient   string `json:"recipient"`
	Options     string `json:"options,omitempty"`
	AssetName   string `json:"asset_name,omitempty"`
	AssetSymbol string `json:"asset_symbol,omitempty"`
}

func (s *Server) handleBridgeTicket(w http.ResponseWriter, r *http.Request) {
	req, params, ok := s.bridgeParamsFromBody(w, r, false)
	if !ok {
		return
	}

	ticketID, err := strconv.ParseUint(req.TicketID, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "ticket_id must be an unsigned integer", err)
		return
	}

	receipt, err := s.orch.BridgeTicket(r.Context(), ticketID, params)
	if err != nil {
		s.respondBridgeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, bridgeReceiptJSON(receipt))
}

func (s *Server) handleBridgeFull(w http.ResponseWriter, r *http.Request) {
	_, params, ok := s.bridgeParamsFromBody(w, r, true)
	if !ok {
		return
	}

	result, err := s.orch.Bridge(r.Context(), params)
	if err != nil {
		// A locked ticket survives a failed bridge step; surface it so the
		// caller can resume instead of double-locking.
		resp := map[string]interface{}{
			"state": result.State,
			"error": err.Error(),
		}
		if result.Lock != nil {
			resp["ticket_id"] = strconv.FormatUint(result.Lock.Ticket.ID, 10)
		}
		respondJSON(w, bridgeErrorStatus(err), resp)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"state":     result.State,
		"ticket_id": strconv.FormatUint(result.Lock.Ticket.ID, 10),
		"lock":      map[string]interface{}{"signature": result.Lock.Signature.String()},
		"bridge":    bridgeReceiptJSON(result.Bridge),
	})
}

// Send-path preview

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	dstEid64, err := strconv.ParseUint(query.Get("dst_eid"), 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "dst_eid must be an unsigned integer", err)
		return
	}
	receiver, err := parseRecipient(query.Get("recipient"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid recipient", err)
		return
	}

	store, _, err := s.programs.DeriveStore()
	if err != nil {
		s.respondBridgeError(w, err)
		return
	}

	metas, err := s.resolver.Resolve(r.Context(), store, uint32(dstEid64), receiver, s.payer)
	if err != nil {
		s.respondBridgeError(w, err)
		return
	}

	accounts := make([]map[string]interface{}, 0, len(metas))
	for _, meta := range metas {
		accounts = append(accounts, map[string]interface{}{
			"pubkey":   meta.PublicKey.String(),
			"writable": meta.IsWritable,
			"signer":   meta.IsSigner,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sender":   store.String(),
		"dst_eid":  dstEid64,
		"accounts": accounts,
		"total":    len(accounts),
	})
}

// Request plumbing

func (s *Server) mintFromPath(w http.ResponseWriter, r *http.Request) (solana.PublicKey, bool) {
	mint, err := solana.PublicKeyFromBase58(mux.Vars(r)["mint"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid mint", err)
		return solana.PublicKey{}, false
	}
	return mint, true
}

func (s *Server) bridgeParamsFromBody(w http.ResponseWriter, r *http.Request, needAmount bool) (BridgeRequest, bridge.BridgeParams, bool) {
	var req BridgeRequest
	var params bridge.BridgeParams

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return req, params, false
	}
	if req.DstEid == 0 {
		respondError(w, http.StatusBadRequest, "dst_eid is required", nil)
		return req, params, false
	}

	mint, err := solana.PublicKeyFromBase58(req.Mint)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid mint", err)
		return req, params, false
	}

	recipient, err := parseRecipient(req.Recipient)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid recipient", err)
		return req, params, false
	}

	var options []byte
	if req.Options != "" {
		options, err = hexutil.Decode(req.Options)
		if err != nil {
			respondError(w, http.StatusBadRequest, "options must be 0x-prefixed hex", err)
			return req, params, false
		}
	}

	var amount uint64
	if needAmount {
		amount, err = strconv.ParseUint(req.Amount, 10, 64)
		if err != nil || amount == 0 {
			respondError(w, http.StatusBadRequest, "amount must be a positive integer", err)
			return req, params, false
		}
	}

	params = bridge.BridgeParams{
		Mint:        mint,
		Amount:      amount,
		DstEid:      req.DstEid,
		Recipient:   recipient,
		Options:     options,
		AssetName:   req.AssetName,
		AssetSymbol: req.AssetSymbol,
	}
	return req, params, true
}

// parseRecipient accepts a 0x-prefixed EVM address (left-padded to 32
// bytes), a 0x-prefixed 32-byte value, or a base58 public key.
func parseRecipient(input string) ([32]byte, error) {
	var out [32]byte
	if input == "" {
		return out, fmt.Errorf("recipient is required")
	}

	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		raw, err := hexutil.Decode(strings.ToLower(input[:2]) + input[2:])
		if err != nil {
			return out, err
		}
		switch len(raw) {
		case common.AddressLength:
			copy(out[32-common.AddressLength:], raw)
		case len(out):
			copy(out[:], raw)
		default:
			return out, fmt.Errorf("recipient must be %d or %d bytes, got %d", common.AddressLength, len(out), len(raw))
		}
		return out, nil
	}

	key, err := solana.PublicKeyFromBase58(input)
	if err != nil {
		return out, err
	}
	copy(out[:], key[:])
	return out, nil
}

func bridgeReceiptJSON(receipt *bridge.BridgeReceipt) map[string]interface{} {
	resp := map[string]interface{}{
		"ticket_id": strconv.FormatUint(receipt.TicketID, 10),
		"signature": receipt.Signature.String(),
	}
	if receipt.MessageGUID != nil {
		resp["message_guid"] = hexutil.Encode(receipt.MessageGUID)
	}
	return resp
}

// respondBridgeError maps domain errors onto HTTP statuses.
func (s *Server) respondBridgeError(w http.ResponseWriter, err error) {
	respondError(w, bridgeErrorStatus(err), "bridge operation failed", err)
}

func bridgeErrorStatus(err error) int {
	var ticketErr *bridge.InvalidTicketStateError
	var notInit *endpoint.NotInitializedError
	var submission *solclient.SubmissionError

	switch {
	case errors.As(err, &ticketErr):
		return http.StatusConflict
	case errors.As(err, &notInit), errors.Is(err, endpoint.ErrLibraryNotConfigured):
		return http.StatusUnprocessableEntity
	case errors.As(err, &submission):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
