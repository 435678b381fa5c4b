package entity

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Page bounds a stored-record listing query.
type Page struct {
	Limit  int
	Offset int
}

// NewPage clamps the requested window to sane bounds.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}
