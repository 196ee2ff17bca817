// Package jsonlite is a small, forgiving JSON reader for request bodies sent by
// voice assistants. It never returns an error: input it cannot understand ends the
// parse and whatever was recognised up to that point is kept.
package jsonlite

type Kind int

const (
	Unknown Kind = iota
	String
	Integer
	Float
	Object
	Array
	True
	False
	Null
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Object:
		return "object"
	case Array:
		return "array"
	case True:
		return "true"
	case False:
		return "false"
	case Null:
		return "null"
	}
	return "unknown"
}

// Value is one node of a parsed document. Exactly one payload is meaningful,
// selected by Kind. The typed getters do not check the kind; reading a payload
// that does not match returns its zero value.
type Value struct {
	kind Kind
	str  string
	num  int
	flt  float64
	obj  map[string]Value
	arr  []Value
}

func NewString(s string) Value  { return Value{kind: String, str: s} }
func NewInteger(n int) Value    { return Value{kind: Integer, num: n} }
func NewFloat(f float64) Value  { return Value{kind: Float, flt: f} }
func NewArray(v ...Value) Value { return Value{kind: Array, arr: v} }
func NewNull() Value            { return Value{kind: Null} }
func NewObject(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: Object, obj: fields}
}

func NewBool(b bool) Value {
	if b {
		return Value{kind: True}
	}
	return Value{kind: False}
}

func (v Value) Kind() Kind { return v.kind }

// Has reports whether v is an object holding a field called name.
func (v Value) Has(name string) bool {
	if v.kind != Object {
		return false
	}
	_, ok := v.obj[name]
	return ok
}

// Field returns the named field of an object, or an Unknown value.
func (v Value) Field(name string) Value {
	return v.obj[name]
}

// Index returns the i'th element of an array, or an Unknown value.
func (v Value) Index(i int) Value {
	if i < 0 || i >= len(v.arr) {
		return Value{}
	}
	return v.arr[i]
}

// Len is the number of fields of an object or elements of an array.
func (v Value) Len() int {
	switch v.kind {
	case Object:
		return len(v.obj)
	case Array:
		return len(v.arr)
	}
	return 0
}

// Keys returns the field names of an object in no particular order.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	return keys
}

func (v Value) Int() int        { return v.num }
func (v Value) Float() float64  { return v.flt }
func (v Value) Bool() bool      { return v.kind == True }
func (v Value) Str() string     { return v.str }
func (v Value) IsNull() bool    { return v.kind == Null }
func (v Value) IsUnknown() bool { return v.kind == Unknown }
