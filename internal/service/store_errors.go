package service

import (
	"context"
	"errors"

	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
	"github.com/noah-isme/painel-aulas-api/pkg/storage"
)

// translateStoreError maps a remote store failure onto the API error taxonomy,
// keeping the original error in the chain.
func translateStoreError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, storage.ErrNotConfigured) {
		return appErrors.WrapAs(appErrors.ErrConfiguration, err, "")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return appErrors.WrapAs(appErrors.ErrUpstream, err, message+": remote store did not answer in time")
	}

	storeErr, ok := storage.AsStoreError(err)
	if !ok {
		return appErrors.WrapAs(appErrors.ErrInternal, err, message)
	}
	switch {
	case storeErr.Conflict():
		return appErrors.WrapAs(appErrors.ErrConflict, err, message+": the dataset changed remotely, reload and try again")
	case storeErr.Unauthorized():
		return appErrors.WrapAs(appErrors.ErrUpstreamAuth, err, message+": check credentials/permissions")
	case storeErr.TooLarge():
		return appErrors.WrapAs(appErrors.ErrPayloadTooLarge, err, message+": payload too large")
	default:
		return appErrors.WrapAs(appErrors.ErrUpstream, err, message)
	}
}

func isConflict(err error) bool {
	if storeErr, ok := storage.AsStoreError(err); ok {
		return storeErr.Conflict()
	}
	return errors.Is(err, appErrors.ErrConflict)
}
