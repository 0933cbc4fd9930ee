package model

// Politician is a canonical identity. The pipeline reads politicians but
// never creates or mutates them.
type Politician struct {
	Name           string
	NormalizedName string
	Party          string
	District       string
	ID             int64
}
