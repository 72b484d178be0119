package product

// ListFilters describe the supported filter knobs for the browse endpoint.
type ListFilters struct {
	SubBrand string
	Category string
	// Search matches product names case-insensitively.
	Search   string
	Featured *bool
	Limit    int
}

const (
	defaultListLimit = 50
	maxListLimit     = 100
)
