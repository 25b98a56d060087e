package loader

import (
	"errors"
	"fmt"
)

// ErrLoaderReleased is returned by Load and LoadAll after Release.
var ErrLoaderReleased = errors.New("loader: released")

// AssetLoadError reports a failed actor load. It names the actor and the bundle URL so the
// caller can tell which of several concurrent loads failed.
type AssetLoadError struct {
	URL     string
	ActorID string
	Cause   error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("failed to load asset %q for actor %q: %v", e.URL, e.ActorID, e.Cause)
}

func (e *AssetLoadError) Unwrap() error {
	return e.Cause
}

// newAssetLoadError wraps err for req unless it already is an AssetLoadError.
func newAssetLoadError(req LoadRequest, err error) *AssetLoadError {
	var ale *AssetLoadError
	if errors.As(err, &ale) && ale.ActorID == req.ActorID {
		return ale
	}
	return &AssetLoadError{URL: req.AssetURL, ActorID: req.ActorID, Cause: err}
}
