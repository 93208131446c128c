package route

// Store is the authoritative route repository: single writer, many
// readers. Implementations must serialize writes and return consistent
// snapshots from reads. Version is a monotonic counter bumped on every
// successful write; caches key off it.
type Store interface {
	// All returns a snapshot of every stored route ordered by id.
	All() []Route

	// Get returns the route with the given id, or a NotFoundError.
	Get(id int) (Route, error)

	// Search returns routes whose name, description, or utterances
	// contain the query as a literal substring.
	Search(query string) []Route

	// Create stores a new route. A zero id requests auto-assignment
	// (max existing id + 1). Returns the stored route.
	Create(r Route) (Route, error)

	// Update replaces the route with r.ID() atomically.
	Update(r Route) (Route, error)

	// Delete removes the route with the given id.
	Delete(id int) error

	// Version returns the monotonic write counter.
	Version() uint64
}
