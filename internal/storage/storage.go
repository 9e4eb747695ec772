// Package storage is the durable, authoritative store for news items.
package storage

import (
	"context"
	"errors"

	"github.com/bilgisen/newswatch/internal/models"
)

var (
	// ErrNotFound is returned when no stored item has the requested text.
	ErrNotFound = errors.New("news not found")
	// ErrIntegrityConflict is returned by Save when another item with the
	// same text was stored first.
	ErrIntegrityConflict = errors.New("news text already stored")
)

// Repository is the durable store used by the ingestion pipeline
type Repository interface {
	// FindByText returns the item whose text equals text exactly, or ErrNotFound.
	FindByText(ctx context.Context, text string) (*models.NewsItem, error)
	// Save inserts item and assigns item.ID. A uniqueness violation on text
	// is reported as ErrIntegrityConflict.
	Save(ctx context.Context, item *models.NewsItem) error
}
