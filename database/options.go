package database

// ReturnPolicy controls what a conditional write returns.
type ReturnPolicy int

const (
	DoNotReturn ReturnPolicy = iota
	ReturnOldValues
	ReturnNewValues
)

// Options are per-service-instance, mutable at runtime.
type Options struct {
	// AutoSortArrays, when true, sorts every array in a returned JSON
	// document deterministically by primitive ordering.
	AutoSortArrays bool

	// AutoConvertRoundableFloatToInt, when true, renders a float64 that
	// equals its integer rounding as an integer on return.
	AutoConvertRoundableFloatToInt bool
}

// Page is the result of ScanTablePaginated: an opaque, backend-defined,
// monotonic continuation token plus the page's items.
type Page struct {
	Items      []map[string]any
	NextToken  string
	TotalCount *int
}
