package ipc

import "errors"

var (
	ErrTimeout  = errors.New("ipc: wait timed out")
	ErrFull     = errors.New("ipc: queue full")
	ErrEmpty    = errors.New("ipc: queue empty")
	ErrItemSize = errors.New("ipc: item size does not match queue")
	ErrTooLarge = errors.New("ipc: item size exceeds MaxItemSize")
	ErrBadValue = errors.New("ipc: invalid constructor argument")
	ErrNotOwner = errors.New("ipc: mutex not held by caller")
	ErrSelfLock = errors.New("ipc: mutex already held by caller")
)
