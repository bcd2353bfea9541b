package redemption

import "errors"

var (
	ErrNilState            = errors.New("redemption: state not configured")
	ErrNilVault            = errors.New("redemption: custody vault not configured")
	ErrRequestNotFound     = errors.New("redemption: no redemption request for asset")
	ErrRequestExists       = errors.New("redemption: redemption request already exists for asset")
	ErrUnauthorizedRequest = errors.New("redemption: unauthorized redemption request")
	ErrAlreadyFulfilled    = errors.New("redemption: redemption request already fulfilled")
	ErrUnauthorizedSigner  = errors.New("redemption: unauthorized transaction signer")
	ErrAdminNotConfigured  = errors.New("redemption: administrator not configured")
	ErrInsufficientBalance = errors.New("redemption: insufficient balance")
)
