package audit

import "errors"

var (
	ErrNilState           = errors.New("audit: state not configured")
	ErrUnauthorizedSigner = errors.New("audit: unauthorized transaction signer")
	ErrAdminNotConfigured = errors.New("audit: administrator not configured")
	ErrAssetNotFound      = errors.New("audit: asset not found")
	ErrRequestNotFound    = errors.New("audit: audit request not found")
	ErrRequestClosed      = errors.New("audit: audit request already closed")
	ErrNoImages           = errors.New("audit: at least one image URL required")
	ErrURLTooLong         = errors.New("audit: image URL too long")
	ErrInsufficientFee    = errors.New("audit: insufficient balance for service fee")
)
