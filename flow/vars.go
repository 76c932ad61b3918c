package flow

// Variables is the per-conversation key/value memory populated by user
// responses and read by interpolation and condition evaluation.
//
// A Variables map is scoped to one conversation and owned by it: the
// engine serializes turns per conversation, so the map is never written
// from two transitions at once.
type Variables map[string]string

// Clone returns an independent copy of the variable store.
func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Set writes a value, allocating the map for a nil receiver's caller.
// Returns the (possibly newly allocated) map so callers can reassign.
func (v Variables) Set(name, value string) Variables {
	if v == nil {
		v = make(Variables, 1)
	}
	v[name] = value
	return v
}
