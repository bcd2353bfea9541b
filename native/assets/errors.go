package assets

import "errors"

var (
	ErrNilState           = errors.New("assets: state not configured")
	ErrUnauthorizedSigner = errors.New("assets: unauthorized transaction signer")
	ErrCollectionExists   = errors.New("assets: collection already exists")
	ErrCollectionNotFound = errors.New("assets: collection not found")
	ErrCollectionMismatch = errors.New("assets: collection does not match")
	ErrAssetNotFound      = errors.New("assets: asset not found")
	ErrAssetBurned        = errors.New("assets: asset has been burned")
	ErrNotAssetOwner      = errors.New("assets: caller does not own the asset")
	ErrEmptyURI           = errors.New("assets: product detail URI required")
	ErrURITooLong         = errors.New("assets: product detail URI too long")
	ErrCalculation        = errors.New("assets: sequence counter overflow")
)
