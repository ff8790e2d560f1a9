package entity

import "errors"

// ErrorKind машиночитаемый тип ошибки
type ErrorKind string

const (
	KindModelNotReady  ErrorKind = "model_not_ready"
	KindNoDetection    ErrorKind = "no_detection"
	KindInvalidInput   ErrorKind = "invalid_input"
	KindAdapterFailure ErrorKind = "adapter_failure"
	KindStorageFailure ErrorKind = "storage_failure"
	KindNotFound       ErrorKind = "not_found"
	KindInternal       ErrorKind = "internal"
)

var (
	ErrModelNotReady  = errors.New("segmentation model is not ready")
	ErrNoDetection    = errors.New("no pothole detected")
	ErrInvalidInput   = errors.New("invalid input")
	ErrAdapterFailure = errors.New("segmentation failed")
	ErrStorageFailure = errors.New("storage failure")
	ErrNotFound       = errors.New("not found")
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrModelNotReady, KindModelNotReady},
	{ErrNoDetection, KindNoDetection},
	{ErrInvalidInput, KindInvalidInput},
	{ErrAdapterFailure, KindAdapterFailure},
	{ErrStorageFailure, KindStorageFailure},
	{ErrNotFound, KindNotFound},
}

// KindOf определяет тип ошибки по цепочке обёрток
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
