package domain

import "errors"

var (
	ErrUnknownCollector   = errors.New("unknown collector")
	ErrCollectorExists    = errors.New("collector already registered")
	ErrCollectorClosed    = errors.New("collector closed")
	ErrUnknownKind        = errors.New("unknown record kind")
	ErrMalformedRecord    = errors.New("malformed record")
	ErrStaleUpdate        = errors.New("stale update")
	ErrEntryNotFound      = errors.New("entry not found")
	ErrMonitorClosed      = errors.New("monitor closed")
	ErrDetectorRegistered = errors.New("detector already registered")
	ErrSinkClosed         = errors.New("sample sink closed")
)
