package continuation

// Stringer is the common shape of the cursor families: every cursor
// encodes itself to its opaque string form.
type Stringer interface {
	String() string
}

// Slice cuts a sorted candidate list into one page. keyFn builds the
// cursor for an item of the list.
//
// When the input fits within limit the whole input is returned and the
// next cursor is empty (no more pages). Otherwise exactly limit items are
// returned together with the cursor of the last included item, so that
// repeated slicing walks the input in order without gaps or overlaps.
// A non-positive limit is clamped to 1 rather than passed through, so an
// unvalidated page size can never return the whole input at once.
func Slice[T any, C Stringer](items []T, limit int, keyFn func(T) C) ([]T, string) {
	if limit < 1 {
		limit = 1
	}
	if len(items) <= limit {
		return items, ""
	}
	page := items[:limit]
	return page, keyFn(page[limit-1]).String()
}
