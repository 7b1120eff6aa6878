package ops

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	DefaultSimulateRounds = 1000
	MaxSimulateRounds     = 1_000_000
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// clampLimit applies the default and the upper bound to a requested page size.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}
