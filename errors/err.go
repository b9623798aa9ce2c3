package errors

import (
	"fmt"
)

var (
	ErrInvalidParams        = fmt.Errorf("chatrelay: invalid params")
	ErrNotFound             = fmt.Errorf("chatrelay: not found")
	ErrUpstream             = fmt.Errorf("chatrelay: upstream error")
	ErrUpstreamTimeout      = fmt.Errorf("chatrelay: upstream timeout")
	ErrModelUnavailable     = fmt.Errorf("chatrelay: model unavailable")
	ErrInvalidResponseShape = fmt.Errorf("chatrelay: invalid response shape")
	ErrEmptyReply           = fmt.Errorf("chatrelay: empty reply")
	ErrPersistence          = fmt.Errorf("chatrelay: persistence failure")
)
