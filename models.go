package eprints

// Record is one catalog entry as reported by the metadata listing.
type Record struct {
	// ID is the bare item identifier (e.g. "2301.00001" or
	// "math/0001001"), usable in both protocols.
	ID string

	// Datestamp is the record's OAI datestamp as reported (YYYY-MM-DD).
	Datestamp string

	// SetSpecs lists the sets the record belongs to.
	SetSpecs []string

	// Downloaded marks that a tarball for this record was stored during
	// some harvest run.
	Downloaded bool
}

// CatalogStats summarizes the local metadata catalog.
type CatalogStats struct {
	TotalRecords int64
	Downloaded   int64
}
