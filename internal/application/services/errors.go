package services

import "errors"

var (
	// ErrWalletNotFound means no wallet document exists in the store
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrAssetNotFound means the wallet holds no asset with the requested id
	ErrAssetNotFound = errors.New("asset not found")

	// ErrDuplicateAssetID means a wallet replacement carried the same asset id twice
	ErrDuplicateAssetID = errors.New("duplicate asset id")

	// ErrConflict means another writer changed the wallet between read and write
	ErrConflict = errors.New("wallet was modified concurrently")
)

// AssetNotFoundError carries the id of the missing asset and matches
// ErrAssetNotFound with errors.Is
type AssetNotFoundError struct {
	ID string
}

func (e *AssetNotFoundError) Error() string {
	return ErrAssetNotFound.Error() + ": " + e.ID
}

func (e *AssetNotFoundError) Is(target error) bool {
	return target == ErrAssetNotFound
}
