package repository

// Pagination bounds for GetMany (spec.md §6): default 10, hard cap 100.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// NormalizeLimit clamps a caller-supplied page size into [1, MaxPageLimit].
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}
