package app

// NewStoreReader exposes the direct store-backed QuizReader so infrastructure
// layers (caches) can wrap it.
func NewStoreReader(store Store) QuizReader {
	return storeReader{store}
}
