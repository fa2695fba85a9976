package policy

import "context"

// Store persists and retrieves policy documents by ID.
//
// The out-of-scope SQLite persistence layer named in spec.md §1 is an
// external collaborator: this package only defines the interface, never a
// SQLite-backed implementation (see DESIGN.md).
type Store interface {
	// Get returns a policy document by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*PolicyDocument, error)
	// List returns every stored policy document.
	List(ctx context.Context) ([]PolicyDocument, error)
	// Save creates or updates a policy document.
	Save(ctx context.Context, doc *PolicyDocument) error
	// Delete removes a policy document by ID.
	Delete(ctx context.Context, id string) error
}
