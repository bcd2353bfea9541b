package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	coretypes "collectvault/core/types"
	"collectvault/native/custody"
	"collectvault/native/loan"
	"collectvault/native/redemption"
)

const (
	codeVaultInvalidParams = -32021
	codeVaultNotFound      = -32022
	codeVaultForbidden     = -32023
	codeVaultConflict      = -32024
	codeVaultInternal      = -32025
)

type loanOpenParams struct {
	Asset     string `json:"asset"`
	Owner     string `json:"owner"`
	Principal uint64 `json:"principal"`
	Interest  uint64 `json:"interest"`
	Duration  int64  `json:"duration"`
}

type assetParams struct {
	Asset string `json:"asset"`
}

type assetActorParams struct {
	Asset  string `json:"asset"`
	Caller string `json:"caller"`
}

type loanFundParams struct {
	Asset  string `json:"asset"`
	Lender string `json:"lender"`
}

type balanceParams struct {
	Address string `json:"address"`
}

type loanJSON struct {
	Asset     string `json:"asset"`
	Owner     string `json:"owner"`
	Principal uint64 `json:"principal"`
	Interest  uint64 `json:"interest"`
	Duration  int64  `json:"duration"`
	Lender    string `json:"lender,omitempty"`
	FundedAt  int64  `json:"fundedAt,omitempty"`
	Deadline  int64  `json:"deadline,omitempty"`
	Active    bool   `json:"active"`
}

type redemptionJSON struct {
	Asset       string `json:"asset"`
	Owner       string `json:"owner"`
	RequestedAt int64  `json:"requestedAt"`
	Fulfilled   bool   `json:"fulfilled"`
}

type balanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type eventJSON struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func loanToJSON(r *loan.Record) loanJSON {
	out := loanJSON{
		Asset:     formatAssetID(r.Asset),
		Owner:     formatAddress(r.Owner),
		Principal: r.Principal,
		Interest:  r.Interest,
		Duration:  r.Duration,
		Active:    r.Active,
	}
	if r.Funding != nil {
		out.Lender = formatAddress(r.Funding.Lender)
		out.FundedAt = r.Funding.FundedAt
		if deadline, ok := r.Deadline(); ok {
			out.Deadline = deadline
		}
	}
	return out
}

func redemptionToJSON(r *redemption.Record) redemptionJSON {
	return redemptionJSON{
		Asset:       formatAssetID(r.Asset),
		Owner:       formatAddress(r.Owner),
		RequestedAt: r.RequestedAt,
		Fulfilled:   r.Fulfilled,
	}
}

func decodeSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func (s *Server) handleLoanOpen(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params loanOpenParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	asset, err := parseAssetID(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	rec, err := s.node.OpenLoan(asset, owner, params.Principal, params.Interest, params.Duration)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, loanToJSON(rec))
}

func (s *Server) handleLoanFund(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params loanFundParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	asset, err := parseAssetID(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	lender, err := parseBech32Address(params.Lender)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.FundLoan(asset, lender); err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"funded": true})
}

func (s *Server) assetTransition(w http.ResponseWriter, req *RPCRequest, apply func([32]byte, [20]byte) error, result string) {
	var params assetActorParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	asset, err := parseAssetID(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := apply(asset, caller); err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": result})
}

func (s *Server) handleLoanRepay(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.assetTransition(w, req, s.node.RepayLoan, "repaid")
}

func (s *Server) handleLoanClaimDefault(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.assetTransition(w, req, s.node.ClaimDefault, "defaulted")
}

func (s *Server) handleLoanCancel(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.assetTransition(w, req, s.node.CancelLoan, "cancelled")
}

func (s *Server) handleLoanGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params assetParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	asset, err := parseAssetID(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	rec, ok := s.node.GetLoan(asset)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeVaultNotFound, "not_found", "loan record not found")
		return
	}
	writeResult(w, req.ID, loanToJSON(rec))
}

func (s *Server) handleRedemptionOpen(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params assetActorParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	asset, err := parseAssetID(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	rec, err := s.node.OpenRedemption(asset, owner)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, redemptionToJSON(rec))
}

func (s *Server) handleRedemptionCancel(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.assetTransition(w, req, s.node.CancelRedemption, "cancelled")
}

func (s *Server) handleRedemptionFulfill(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.assetTransition(w, req, s.node.FulfillRedemption, "fulfilled")
}

func (s *Server) handleRedemptionGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params assetParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	asset, err := parseAssetID(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	rec, ok := s.node.GetRedemption(asset)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeVaultNotFound, "not_found", "redemption record not found")
		return
	}
	writeResult(w, req.ID, redemptionToJSON(rec))
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params balanceParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseBech32Address(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVaultInvalidParams, "invalid_params", err.Error())
		return
	}
	acc, err := s.node.GetAccount(addr)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	acc = coretypes.EnsureAccount(acc)
	writeResult(w, req.ID, balanceResult{
		Address: formatAddress(addr),
		Balance: acc.Balance.String(),
		Nonce:   acc.Nonce,
	})
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	recent := s.node.RecentEvents()
	out := make([]eventJSON, 0, len(recent))
	for _, evt := range recent {
		entry := eventJSON{Type: evt.EventType()}
		if carrier, ok := evt.(interface{ Event() *coretypes.Event }); ok {
			if inner := carrier.Event(); inner != nil {
				entry.Attributes = inner.Attributes
			}
		}
		out = append(out, entry)
	}
	writeResult(w, req.ID, out)
}

func writeVaultError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codeVaultInternal
	message := "internal_error"
	switch {
	case errors.Is(err, loan.ErrLoanNotFound),
		errors.Is(err, redemption.ErrRequestNotFound),
		errors.Is(err, custody.ErrAssetNotFound):
		status = http.StatusNotFound
		code = codeVaultNotFound
		message = "not_found"
	case errors.Is(err, loan.ErrInvalidBorrower),
		errors.Is(err, loan.ErrInvalidLender),
		errors.Is(err, loan.ErrUnauthorizedCancellation),
		errors.Is(err, redemption.ErrUnauthorizedRequest),
		errors.Is(err, redemption.ErrUnauthorizedSigner),
		errors.Is(err, custody.ErrNotHolder),
		errors.Is(err, custody.ErrWrongAuthority):
		status = http.StatusForbidden
		code = codeVaultForbidden
		message = "forbidden"
	case errors.Is(err, loan.ErrInvalidLoanDuration):
		status = http.StatusBadRequest
		code = codeVaultInvalidParams
		message = "invalid_params"
	case errors.Is(err, loan.ErrLoanExists),
		errors.Is(err, loan.ErrLoanAlreadyActive),
		errors.Is(err, loan.ErrLoanAlreadyFunded),
		errors.Is(err, loan.ErrLoanNotActive),
		errors.Is(err, loan.ErrLoanExpired),
		errors.Is(err, loan.ErrLoanNotExpired),
		errors.Is(err, loan.ErrCalculation),
		errors.Is(err, loan.ErrInsufficientFunds),
		errors.Is(err, loan.ErrInsufficientBalance),
		errors.Is(err, redemption.ErrRequestExists),
		errors.Is(err, redemption.ErrAlreadyFulfilled),
		errors.Is(err, redemption.ErrInsufficientBalance),
		errors.Is(err, custody.ErrAlreadyHeld),
		errors.Is(err, custody.ErrNotHeld),
		errors.Is(err, custody.ErrHoldingInUse):
		status = http.StatusConflict
		code = codeVaultConflict
		message = "conflict"
	}
	writeError(w, status, id, code, message, err.Error())
}
