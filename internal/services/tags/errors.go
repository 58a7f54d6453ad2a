package tags

import "github.com/pkg/errors"

var (
	ErrTagNotFound        = errors.New("tag not found")
	ErrTagNotAssigned     = errors.New("tag is not assigned")
	ErrAlreadyClaimed     = errors.New("tag is already claimed")
	ErrCredentialMismatch = errors.New("credentials do not match")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrUnsupported        = errors.New("operation is not supported")
)
