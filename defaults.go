package keyvmongo

// DefaultCollection is used when Options.Collection is empty.
const DefaultCollection = "keyv"

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// defaultOnFailure treats a connection failure as fatal.
func defaultOnFailure(err error) { panic(err) }
