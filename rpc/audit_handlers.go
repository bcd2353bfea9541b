package rpc

import (
	"errors"
	"net/http"

	"collectvault/native/audit"
)

const (
	codeAuditInvalidParams = -32041
	codeAuditNotFound      = -32042
	codeAuditForbidden     = -32043
	codeAuditConflict      = -32044
	codeAuditInternal      = -32045
)

type auditRequestParams struct {
	Asset     string `json:"asset"`
	Requester string `json:"requester"`
}

type auditSnapshotParams struct {
	Caller    string   `json:"caller"`
	RequestID string   `json:"requestId"`
	ImageURLs []string `json:"imageUrls"`
}

type auditActionParams struct {
	Caller    string `json:"caller"`
	RequestID string `json:"requestId"`
}

type auditIDParams struct {
	RequestID string `json:"requestId"`
}

type auditRequestJSON struct {
	ID          string `json:"id"`
	Asset       string `json:"asset"`
	Requester   string `json:"requester"`
	RequestedAt int64  `json:"requestedAt"`
	CompletedAt int64  `json:"completedAt,omitempty"`
	Status      string `json:"status"`
}

type auditSnapshotJSON struct {
	Asset     string   `json:"asset"`
	RequestID string   `json:"requestId"`
	Sequence  uint64   `json:"sequence"`
	ImageURLs []string `json:"imageUrls"`
	Timestamp int64    `json:"timestamp"`
}

func auditRequestToJSON(r *audit.Request) auditRequestJSON {
	return auditRequestJSON{
		ID:          r.ID,
		Asset:       formatAssetID(r.Asset),
		Requester:   formatAddress(r.Requester),
		RequestedAt: r.RequestedAt,
		CompletedAt: r.CompletedAt,
		Status:      r.Status.String(),
	}
}

func auditSnapshotToJSON(s *audit.Snapshot) auditSnapshotJSON {
	return auditSnapshotJSON{
		Asset:     formatAssetID(s.Asset),
		RequestID: s.RequestID,
		Sequence:  s.Sequence,
		ImageURLs: s.ImageURLs,
		Timestamp: s.Timestamp,
	}
}

func (s *Server) handleAuditRequest(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params auditRequestParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuditInvalidParams, "invalid_params", err.Error())
		return
	}
	asset, err := parseAssetID(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuditInvalidParams, "invalid_params", err.Error())
		return
	}
	requester, err := parseBech32Address(params.Requester)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuditInvalidParams, "invalid_params", err.Error())
		return
	}
	created, err := s.node.RequestAudit(asset, requester)
	if err != nil {
		writeAuditError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, auditRequestToJSON(created))
}

func (s *Server) handleAuditProvideSnapshot(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params auditSnapshotParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuditInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuditInvalidParams, "invalid_params", err.Error())
		return
	}
	snap, err := s.node.ProvideAuditSnapshot(caller, params.RequestID, params.ImageURLs)
	if err != nil {
		writeAuditError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, auditSnapshotToJSON(snap))
}

func (s *Server) handleAuditReject(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params auditActionParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuditInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuditInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.RejectAudit(caller, params.RequestID); err != nil {
		writeAuditError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "rejected"})
}

func (s *Server) handleAuditGetRequest(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params auditIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuditInvalidParams, "invalid_params", err.Error())
		return
	}
	found, ok := s.node.GetAuditRequest(params.RequestID)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeAuditNotFound, "not_found", "audit request not found")
		return
	}
	writeResult(w, req.ID, auditRequestToJSON(found))
}

func (s *Server) handleAuditGetSnapshots(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params assetParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuditInvalidParams, "invalid_params", err.Error())
		return
	}
	asset, err := parseAssetID(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAuditInvalidParams, "invalid_params", err.Error())
		return
	}
	snaps, err := s.node.GetAuditSnapshots(asset)
	if err != nil {
		writeAuditError(w, req.ID, err)
		return
	}
	out := make([]auditSnapshotJSON, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, auditSnapshotToJSON(snap))
	}
	writeResult(w, req.ID, out)
}

func writeAuditError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codeAuditInternal
	message := "internal_error"
	switch {
	case errors.Is(err, audit.ErrRequestNotFound), errors.Is(err, audit.ErrAssetNotFound):
		status = http.StatusNotFound
		code = codeAuditNotFound
		message = "not_found"
	case errors.Is(err, audit.ErrUnauthorizedSigner):
		status = http.StatusForbidden
		code = codeAuditForbidden
		message = "forbidden"
	case errors.Is(err, audit.ErrNoImages), errors.Is(err, audit.ErrURLTooLong):
		status = http.StatusBadRequest
		code = codeAuditInvalidParams
		message = "invalid_params"
	case errors.Is(err, audit.ErrRequestClosed), errors.Is(err, audit.ErrInsufficientFee):
		status = http.StatusConflict
		code = codeAuditConflict
		message = "conflict"
	}
	writeError(w, status, id, code, message, err.Error())
}
