package checkout

import "errors"

var (
	// ErrSessionCreationFailed: the session endpoint failed, timed out or
	// answered without a token. Checkout state is left untouched.
	ErrSessionCreationFailed = errors.New("payment session creation failed")

	// ErrMissingMountTarget: no element with the container id exists. The
	// card method may already be registered in the checkout state.
	ErrMissingMountTarget = errors.New("payment form mount target not found")

	ErrMountFailed    = errors.New("payment form mount failed")
	ErrStateUnchanged = errors.New("checkout state update failed")
	ErrUnknownWidget  = errors.New("no mounted payment form for token")
)
