// Package value defines the tagged-union Value type shared by the storage
// engine, the B-tree, and the SQL execution engine.
//
// What: a single Value type that can hold an integer, a real, a byte string
// tagged as text or blob, a null, or a compile-time parameter placeholder.
// How: a Kind tag plus the smallest Go fields needed to hold each variant;
// Text and Blob own their bytes and must be deep-cloned on copy.
// Why: centralizing the tagged union in one small package lets the B-tree
// serializer, the row codec, and the expression evaluator agree on a single
// ordering and cloning rule instead of re-deriving it three times.
package value

import "fmt"

// Kind identifies which variant of Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
	KindParameter
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInteger:
		return "INTEGER"
	case KindReal:
		return "REAL"
	case KindText:
		return "TEXT"
	case KindBlob:
		return "BLOB"
	case KindParameter:
		return "PARAMETER"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a tagged union of the data types relite can store and evaluate.
// Parameter is never persisted — it is a compile-time placeholder that must
// be substituted with a bound value before evaluation or storage.
type Value struct {
	Kind    Kind
	Integer int64
	Real    float64
	Bytes   []byte // owned; backs Text and Blob
	Param   uint32 // only meaningful when Kind == KindParameter
}

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// Int constructs an Integer value.
func Int(i int64) Value { return Value{Kind: KindInteger, Integer: i} }

// Real constructs a Real value.
func Real(f float64) Value { return Value{Kind: KindReal, Real: f} }

// Text constructs a Text value, copying s's bytes so the Value owns them.
func Text(s string) Value {
	b := make([]byte, len(s))
	copy(b, s)
	return Value{Kind: KindText, Bytes: b}
}

// Blob constructs a Blob value, copying b so the Value owns the bytes.
func Blob(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{Kind: KindBlob, Bytes: cp}
}

// Parameter constructs a compile-time placeholder for the i-th bound
// parameter (0-based).
func Parameter(i uint32) Value { return Value{Kind: KindParameter, Param: i} }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Clone deep-copies v; Text/Blob bytes are duplicated so the result owns
// its own storage independent of v.
func (v Value) Clone() Value {
	if len(v.Bytes) == 0 {
		return v
	}
	b := make([]byte, len(v.Bytes))
	copy(b, v.Bytes)
	out := v
	out.Bytes = b
	return out
}

// String returns a printable form of v: a Text value's bytes as-is, a Blob
// as x'..' hex, numbers in decimal, NULL, or ?N for a Parameter.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInteger:
		return fmt.Sprintf("%d", v.Integer)
	case KindReal:
		return fmt.Sprintf("%g", v.Real)
	case KindText:
		return string(v.Bytes)
	case KindBlob:
		return fmt.Sprintf("x'%x'", v.Bytes)
	case KindParameter:
		return fmt.Sprintf("?%d", v.Param)
	default:
		return ""
	}
}

// tagRank orders Kinds for cross-type comparison: Null < {Integer,Real} <
// Text < Blob. Parameter never participates in ordering — it must be
// substituted before evaluation.
func tagRank(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindInteger, KindReal:
		return 1
	case KindText:
		return 2
	case KindBlob:
		return 3
	default:
		return 4
	}
}

// Compare orders a and b: Null < {Integer, Real} < Text < Blob; numeric
// comparisons promote Integer to Real. Returns -1, 0, or 1.
func Compare(a, b Value) int {
	ra, rb := tagRank(a.Kind), tagRank(b.Kind)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch a.Kind {
	case KindNull:
		return 0
	case KindInteger, KindReal:
		af, bf := asFloat(a), asFloat(b)
		return cmpFloat(af, bf)
	case KindText, KindBlob:
		return cmpBytes(a.Bytes, b.Bytes)
	default:
		return 0
	}
}

// Equal reports whether Compare(a, b) == 0.
func Equal(a, b Value) bool { return Compare(a, b) == 0 }

func asFloat(v Value) float64 {
	if v.Kind == KindInteger {
		return float64(v.Integer)
	}
	return v.Real
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Row is an ordered sequence of Values; positions correspond to schema
// columns.
type Row []Value

// CloneRow deep-copies a row so the caller owns every Text/Blob's bytes
// independently of the source.
func CloneRow(r Row) Row {
	out := make(Row, len(r))
	for i, v := range r {
		out[i] = v.Clone()
	}
	return out
}

func cmpBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return cmpInt(len(a), len(b))
}
