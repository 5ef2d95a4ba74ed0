package storage

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("storage: object not found")
	ErrInvalidKey          = errors.New("storage: invalid key")
	ErrBucketRequired      = errors.New("storage: bucket name is required")
	ErrCredentialsRequired = errors.New("storage: access key and secret are both required")
)

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}

func unknownProvider(name string) error {
	return fmt.Errorf("storage: unknown provider %q (want local or s3)", name)
}
