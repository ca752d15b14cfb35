package nvs

import "errors"

var (
	ErrBufferTooSmall = errors.New("value does not fit in buffer")
	ErrKindMismatch   = errors.New("stored value has a different type")
	ErrClosed         = errors.New("storage is closed")
)
