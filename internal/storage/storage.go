package storage

import (
	"context"
	"errors"
	"path"

	"github.com/google/uuid"
)

// Label is a shipping label file uploaded by staff.
type Label struct {
	Filename    string
	ContentType string
	Content     []byte
}

// LabelStore persists the latest shipping label for an order.
type LabelStore interface {
	// Put writes the label under key and returns a location string for it.
	// Writing the same key again replaces the previous label.
	Put(ctx context.Context, key string, label Label) (string, error)
}

// LabelKey returns the fixed storage key for an order's shipping label.
func LabelKey(orderID uuid.UUID) string {
	return path.Join(orderID.String(), "shipping-label")
}

func (l Label) validate() error {
	if len(l.Content) == 0 {
		return errors.New("label content is empty")
	}
	return nil
}
