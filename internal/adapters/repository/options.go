package repository

// ResultOption applies a configuration option to the MemoryResultStore.
type ResultOption func(*MemoryResultStore)

// WithMaxResults bounds how many results are kept. The oldest saved result
// is dropped first. Values <= 0 keep everything.
func WithMaxResults(n int) ResultOption {
	return func(s *MemoryResultStore) {
		s.maxResults = n
	}
}
