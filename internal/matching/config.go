package matching

import "matchcore/internal/decimal"

// Config bounds what the engine will admit.
type Config struct {
	MinOrderSize decimal.Decimal
	MaxOrderSize decimal.Decimal
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal

	// DefaultSnapshotDepth is used when a caller requests a snapshot
	// without specifying depth.
	DefaultSnapshotDepth int
	// MaxSnapshotDepth caps how many levels per side a snapshot may
	// return, regardless of what the caller requests.
	MaxSnapshotDepth int
}

// DefaultConfig returns the engine's default admission bounds.
func DefaultConfig() Config {
	return Config{
		MinOrderSize:         decimal.MustParse("0.00000001"),
		MaxOrderSize:         decimal.MustParse("1000000"),
		MinPrice:             decimal.MustParse("0.00000001"),
		MaxPrice:             decimal.MustParse("1000000"),
		DefaultSnapshotDepth: 10,
		MaxSnapshotDepth:     1000,
	}
}
