package model

// Fields is a decoded JSON object as sent by a client.
type Fields map[string]any

// Diff returns the entries of next whose value differs from the one in cur.
//
// The comparison is shallow: scalars compare by value, while objects and
// arrays never compare equal, so a nested value is always reported changed.
func Diff(cur, next Fields) Fields {
	changed := make(Fields)
	for k, v := range next {
		old, ok := cur[k]
		if !ok || !shallowEqual(old, v) {
			changed[k] = v
		}
	}
	return changed
}

func shallowEqual(a, b any) bool {
	if !isScalar(a) || !isScalar(b) {
		return false
	}
	return a == b
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any, Fields:
		return false
	}
	return true
}

// Without returns a copy of f with the given keys removed.
func (f Fields) Without(keys ...string) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
