package app

import (
	"context"
	"errors"
	"fmt"

	"animalcare-rag/internal/vectorindex"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")

	ErrProvider       = errors.New("language model provider failed")
	ErrRequestTimeout = errors.New("request timed out")

	ErrStore             = errors.New("record store failed")
	ErrIndex             = errors.New("vector index failed")
	ErrIndexDelete       = errors.New("vector index delete failed")
	ErrInconsistentState = errors.New("chunks deleted but document record remains")
	ErrDocumentNotFound  = errors.New("document not found")
)

// classify tags err with kind unless it is a timeout or an embedding failure, which keep their own kinds.
func classify(kind error, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrRequestTimeout, err)
	case errors.Is(err, vectorindex.ErrEmbedding):
		return fmt.Errorf("%w: %w", ErrProvider, err)
	default:
		return fmt.Errorf("%w: %w", kind, err)
	}
}
