package fileservice

import "errors"

var (
	ErrEmptyBucket = errors.New("fileservice: bucket name cannot be empty")
	ErrEmptyKey    = errors.New("fileservice: object key cannot be empty")
	ErrNoRegistrar = errors.New("fileservice: no notification registrar attached")
)
