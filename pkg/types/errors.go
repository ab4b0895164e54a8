package types

import "errors"

// Registry errors.
var (
	ErrNamespaceNotFound  = errors.New("namespace not found")
	ErrInvalidName        = errors.New("invalid name")
	ErrReservedNamespace  = errors.New("namespace name is reserved for the default deck")
	ErrDuplicateNamespace = errors.New("namespace already exists")
	ErrEmptyLabel         = errors.New("deck label must not be empty")
)

// Note and model errors.
var (
	ErrFieldCount  = errors.New("field count does not match model")
	ErrEmptyField  = errors.New("field must not be empty")
	ErrNoteMissing = errors.New("note not found in deck")
)

// Media errors.
var (
	ErrMediaNotFound = errors.New("media inaccessible")
)

// Parser errors.
var (
	ErrParserNotFound = errors.New("parser not found")
	ErrInvalidParser  = errors.New("invalid parser source")
	ErrParserFailed   = errors.New("parser failed")
	ErrEmptyInput     = errors.New("no input to parse")
)

// Interchange errors.
var (
	ErrInvalidDocument = errors.New("invalid interchange document")
)
