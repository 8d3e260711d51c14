package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of decimal digits assumed for a new asset.
const DefaultPrecision = 2

// Asset represents a unit of value accounts can be denominated in:
// a fiat currency, a commodity, a share class and so on.
type Asset struct {
	Code      string
	Precision int32
	CreatedAt time.Time
}

// Rate is one exchange-rate observation: 1 unit of AssetFrom equals
// Value units of AssetTo starting at At. Rates are append-only; the most
// recent observation at or before the query date wins.
type Rate struct {
	AssetFrom string
	AssetTo   string
	At        time.Time
	Value     decimal.Decimal
}

// Validate checks a rate row before it is written.
func (r *Rate) Validate() error {
	if r.AssetFrom == "" || r.AssetTo == "" {
		return ErrInvalidAssetPair
	}

	if r.AssetFrom == r.AssetTo {
		return ErrInvalidAssetPair
	}

	if r.Value.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidRateValue
	}

	return nil
}
