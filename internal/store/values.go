package store

// Values is an ordered set of column values for an insert or update.
// Columns keep the order of their first Put.
type Values struct {
	keys []string
	m    map[string]any
}

// NewValues returns an empty set.
func NewValues() *Values {
	return &Values{m: make(map[string]any)}
}

// Put sets column to v and returns the receiver for chaining. The zero
// Values is ready to use.
func (v *Values) Put(column string, val any) *Values {
	if v.m == nil {
		v.m = make(map[string]any)
	}
	if _, ok := v.m[column]; !ok {
		v.keys = append(v.keys, column)
	}
	v.m[column] = val
	return v
}

// Get returns the value for column.
func (v *Values) Get(column string) (any, bool) {
	if v == nil {
		return nil, false
	}
	val, ok := v.m[column]
	return val, ok
}

// Keys returns the columns in insertion order.
func (v *Values) Keys() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Clone returns an independent copy. A nil *Values clones to an empty set.
func (v *Values) Clone() *Values {
	out := NewValues()
	if v == nil {
		return out
	}
	for _, k := range v.keys {
		out.Put(k, v.m[k])
	}
	return out
}

// Len returns the number of columns. A nil *Values is empty.
func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.keys)
}

func (v *Values) columnsAndArgs() ([]string, []any) {
	if v.Len() == 0 {
		return nil, nil
	}
	args := make([]any, len(v.keys))
	for i, k := range v.keys {
		args[i] = v.m[k]
	}
	return v.Keys(), args
}
