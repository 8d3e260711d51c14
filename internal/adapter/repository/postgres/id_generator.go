package postgres

import (
	"github.com/oklog/ulid/v2"
)

// ULIDGenerator issues account and posting identifiers. ULIDs sort by
// creation time, which keeps index pages for new postings adjacent.
type ULIDGenerator struct{}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}
