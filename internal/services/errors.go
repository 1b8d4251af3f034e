package services

import "errors"

var (
	ErrDownload     = errors.New("download failed")
	ErrDecode       = errors.New("image decode failed")
	ErrExtraction   = errors.New("extraction failed")
	ErrPersistence  = errors.New("persistence failed")
	ErrValidation   = errors.New("validation failed")
	ErrUnknownField = errors.New("unknown field")
	ErrStaleAction  = errors.New("action does not match the scan awaiting review")
)
