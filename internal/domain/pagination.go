package domain

// DefaultPageSize applies when a caller leaves PageSize unset.
const DefaultPageSize = 20

// PaginationParams holds offset-based pagination parameters for list and search queries.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Limit returns PageSize, or DefaultPageSize when unset.
func (p PaginationParams) Limit() int {
	if p.PageSize < 1 {
		return DefaultPageSize
	}
	return p.PageSize
}

// Offset returns the row offset for the current page (0-based).
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}
