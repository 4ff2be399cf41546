// Package continuation implements the opaque cursors used to page through
// query results. A cursor encodes the sort key and id of the last item of
// the previous page; it is request-scoped, never persisted, and stable
// across process restarts.
package continuation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed reports a continuation string that does not parse. It is
// distinct from an absent continuation (first page) and from a valid
// cursor with no further results.
var ErrMalformed = errors.New("continuation: malformed cursor")

// DateID orders by recency: primary key is a millisecond timestamp,
// descending, with the record id as tiebreaker.
type DateID struct {
	DateMillis int64
	ID         string
}

// String encodes the cursor as "<millis>_<id>".
func (c DateID) String() string {
	return fmt.Sprintf("%d_%s", c.DateMillis, c.ID)
}

// ParseDateID decodes a DateID cursor. An empty input means "first page"
// and returns nil without error.
func ParseDateID(s string) (*DateID, error) {
	if s == "" {
		return nil, nil
	}
	millisPart, id, ok := strings.Cut(s, "_")
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	millis, err := strconv.ParseInt(millisPart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return &DateID{DateMillis: millis, ID: id}, nil
}

// PriceID orders by price in lamports with the record id as tiebreaker.
type PriceID struct {
	Price uint64
	ID    string
}

// String encodes the cursor as "<price>_<id>".
func (c PriceID) String() string {
	return fmt.Sprintf("%d_%s", c.Price, c.ID)
}

// ParsePriceID decodes a PriceID cursor. An empty input means "first page"
// and returns nil without error.
func ParsePriceID(s string) (*PriceID, error) {
	if s == "" {
		return nil, nil
	}
	pricePart, id, ok := strings.Cut(s, "_")
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	price, err := strconv.ParseUint(pricePart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return &PriceID{Price: price, ID: id}, nil
}

// ID orders by the record id alone, for listings whose ordering is
// enforced externally (e.g. collection-scoped pages).
type ID struct {
	ID string
}

// String encodes the cursor as the bare id.
func (c ID) String() string {
	return c.ID
}

// ParseID decodes an ID cursor. An empty input means "first page" and
// returns nil without error.
func ParseID(s string) (*ID, error) {
	if s == "" {
		return nil, nil
	}
	return &ID{ID: s}, nil
}
