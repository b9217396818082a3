package proof

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest: корневая ошибка всех отказов приёма (HTTP 400)
	ErrInvalidRequest = errors.New("invalid upload request")

	ErrMissingFile    = errors.New("proof file is missing")
	ErrUnexpectedFile = errors.New("unexpected file part")
	ErrNotMultipart   = errors.New("request is not multipart/form-data")
	ErrTooLarge       = errors.New("upload exceeds size limit")
	ErrMalformedBody  = errors.New("malformed multipart body")
)

func invalid(reason error) error {
	return fmt.Errorf("%w: %w", ErrInvalidRequest, reason)
}
