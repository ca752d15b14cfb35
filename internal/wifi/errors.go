package wifi

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSSID    = errors.New("wifi ssid not configured")
	ErrConnectFailed  = errors.New("wifi association failed")
	ErrAddressTimeout = errors.New("no address assigned")
	ErrRadio          = errors.New("radio error")
)

// JoinError reports the step at which the join procedure stopped. It
// matches one of the sentinel errors above through errors.Is and also
// unwraps to the driver error, if any.
type JoinError struct {
	Step string
	Kind error
	Err  error
}

func (e *JoinError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("wifi %s: %v", e.Step, e.Kind)
	}
	return fmt.Sprintf("wifi %s: %v: %v", e.Step, e.Kind, e.Err)
}

func (e *JoinError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
