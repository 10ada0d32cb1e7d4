package services

import (
	apperrors "claimsledger/internal/errors"
)

// ErrLedgerNotLoaded is returned by queries issued before any successful load.
var ErrLedgerNotLoaded = apperrors.NewStorageError("ledger artifacts not loaded", nil)
