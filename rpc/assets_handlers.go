package rpc

import (
	"errors"
	"net/http"

	"collectvault/native/assets"
)

const (
	codeAssetsInvalidParams = -32031
	codeAssetsNotFound      = -32032
	codeAssetsForbidden     = -32033
	codeAssetsConflict      = -32034
	codeAssetsInternal      = -32035
)

type collectionCreateParams struct {
	Caller string `json:"caller"`
	Name   string `json:"name"`
}

type mintParams struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	URI        string `json:"uri"`
}

type transferParams struct {
	Asset string `json:"asset"`
	From  string `json:"from"`
	To    string `json:"to"`
}

type collectionJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

type assetJSON struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Sequence   uint64 `json:"sequence"`
	Owner      string `json:"owner"`
	URI        string `json:"uri"`
	Burned     bool   `json:"burned"`
}

func assetToJSON(a *assets.Asset) assetJSON {
	return assetJSON{
		ID:         formatAssetID(a.ID),
		Collection: formatAssetID(a.Collection),
		Sequence:   a.Sequence,
		Owner:      formatAddress(a.Owner),
		URI:        a.URI,
		Burned:     a.Burned,
	}
}

func (s *Server) handleAssetsCreateCollection(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params collectionCreateParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	col, err := s.node.CreateCollection(caller, params.Name)
	if err != nil {
		writeAssetsError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, collectionJSON{ID: formatAssetID(col.ID), Name: col.Name, Count: col.Count})
}

func (s *Server) handleAssetsMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params mintParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	collection, err := parseAssetID(params.Collection)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	minted, err := s.node.MintAsset(caller, collection, params.URI)
	if err != nil {
		writeAssetsError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, assetToJSON(minted))
}

func (s *Server) handleAssetsTransfer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params transferParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	asset, err := parseAssetID(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	from, err := parseBech32Address(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	to, err := parseBech32Address(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.TransferAsset(asset, from, to); err != nil {
		writeAssetsError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "transferred"})
}

func (s *Server) handleAssetsBurn(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params assetActorParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	asset, err := parseAssetID(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.BurnAsset(asset, caller); err != nil {
		writeAssetsError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "burned"})
}

func (s *Server) handleAssetsGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params assetParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	asset, err := parseAssetID(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAssetsInvalidParams, "invalid_params", err.Error())
		return
	}
	found, ok := s.node.GetAsset(asset)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeAssetsNotFound, "not_found", "asset not found")
		return
	}
	writeResult(w, req.ID, assetToJSON(found))
}

func writeAssetsError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codeAssetsInternal
	message := "internal_error"
	switch {
	case errors.Is(err, assets.ErrAssetNotFound), errors.Is(err, assets.ErrCollectionNotFound):
		status = http.StatusNotFound
		code = codeAssetsNotFound
		message = "not_found"
	case errors.Is(err, assets.ErrUnauthorizedSigner), errors.Is(err, assets.ErrNotAssetOwner):
		status = http.StatusForbidden
		code = codeAssetsForbidden
		message = "forbidden"
	case errors.Is(err, assets.ErrEmptyURI), errors.Is(err, assets.ErrURITooLong):
		status = http.StatusBadRequest
		code = codeAssetsInvalidParams
		message = "invalid_params"
	case errors.Is(err, assets.ErrCollectionExists),
		errors.Is(err, assets.ErrCollectionMismatch),
		errors.Is(err, assets.ErrAssetBurned),
		errors.Is(err, assets.ErrCalculation):
		status = http.StatusConflict
		code = codeAssetsConflict
		message = "conflict"
	}
	writeError(w, status, id, code, message, err.Error())
}
