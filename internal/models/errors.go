package models

import "errors"

var (
	// ErrInvalidConfiguration reports unusable settings, such as chunk overlap >= chunk size.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrLoader reports a document whose type is unknown or whose content is not text.
	ErrLoader = errors.New("cannot load document")
	// ErrSourceUnavailable reports a remote source that could not be fetched.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrRetrievalUnavailable reports an index that could not be queried.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrModelUnavailable reports a generative or embedding backend that could not be reached.
	ErrModelUnavailable = errors.New("model unavailable")
)
