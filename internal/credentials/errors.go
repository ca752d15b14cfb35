package credentials

import (
	"errors"
	"fmt"
)

var ErrNotProvisioned = errors.New("device not provisioned")

// StoreError is returned by every failing Store operation.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("credential store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("credential store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
