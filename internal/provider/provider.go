// Package provider defines the pluggable metadata-source capability that the
// monitor pipeline depends on, along with the registry used to select an
// implementation by its identifier.
package provider

import "fmt"

type (
	// Candidate is a single ranked search result from a metadata source.
	Candidate struct {
		ID        string
		Title     string
		PosterURL string
	}

	Actor struct {
		Name string
		Role string
	}

	// Record is the full metadata document for a single title, as fetched
	// from a provider. It is immutable once produced: the sidecar generator
	// and the ledger both consume it as-is.
	Record struct {
		Source   string
		SourceID string

		Title         string
		OriginalTitle string
		Year          *int
		ReleaseDate   string
		Plot          string
		Runtime       *int
		Studio        string
		Director      string
		Rating        string

		Genres []string
		Tags   []string
		Actors []Actor

		PosterURL   string
		BackdropURL string
	}

	// Provider is the capability interface fulfilled by each metadata source.
	//
	// Search returns a best-effort ranked list of candidates; an empty list
	// is a legitimate result, NOT an error. Errors are reserved for
	// transport or parse failure.
	//
	// Fetch resolves a candidate ID (as returned by Search from the SAME
	// provider) into a full Record. A NotFoundError is returned if the
	// upstream source no longer has the record.
	Provider interface {
		Search(query string) ([]Candidate, error)
		Fetch(candidateID string) (*Record, error)
	}
)

type (
	NotFoundError  struct{ ID string }
	TransportError struct{ Reason string }
)

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("provider has no record with ID '%s'", err.ID)
}

func (err *TransportError) Error() string {
	return fmt.Sprintf("provider request failed: %s", err.Reason)
}
