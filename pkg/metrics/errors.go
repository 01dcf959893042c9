package metrics

import "errors"

// ErrNoAddr is returned when Start is called without a listen address.
var ErrNoAddr = errors.New("metrics listen address is empty")
