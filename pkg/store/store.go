// Package store provides persistence for patch documents.
//
// Two backends are provided:
//   - memory: in-process storage for development and testing
//   - mongo: MongoDB-backed storage for server deployments
//
// Stored patches carry a server-assigned ID plus naming metadata; the
// document payload itself is the versioned envelope from [patch].
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/soundpatch/patchc/pkg/patch"
)

// StoredPatch is one persisted patch document with its metadata.
type StoredPatch struct {
	ID        string         `json:"id" bson:"_id"`
	Name      string         `json:"name" bson:"name"`
	Document  patch.Document `json:"document" bson:"document"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" bson:"updated_at"`
}

// Store is the interface for patch storage backends.
type Store interface {
	// Save persists a patch. An empty ID creates a new record and assigns
	// one; a known ID updates in place. The stored record is returned.
	Save(ctx context.Context, sp StoredPatch) (StoredPatch, error)

	// Get retrieves a stored patch by ID. A missing ID is a PATCH_NOT_FOUND
	// error.
	Get(ctx context.Context, id string) (StoredPatch, error)

	// List returns all stored patches, most recently updated first.
	List(ctx context.Context) ([]StoredPatch, error)

	// Delete removes a stored patch. A missing ID is a PATCH_NOT_FOUND
	// error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// NewID generates a storage identifier.
func NewID() string {
	return uuid.NewString()
}

// patchDocumentCopy deep-copies a document so stored state and caller state
// can never alias.
func patchDocumentCopy(d patch.Document) patch.Document {
	return patch.Document{Version: d.Version, Patch: d.Patch.Clone()}
}
