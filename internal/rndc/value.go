package rndc

import "fmt"

// Kind identifies which variant a Value holds on the wire (the RNDC
// "type" byte that precedes every value's length and payload).
type Kind uint8

const (
	// KindBinary is an arbitrary byte string (type byte 1).
	KindBinary Kind = 1

	// KindTable is an ordered key/value mapping (type byte 2).
	KindTable Kind = 2

	// KindList is an ordered sequence of values (type byte 3).
	// Lists only ever appear as the result of a decode; encode never
	// emits one at the top level.
	KindList Kind = 3
)

// kindNames maps wire type bytes to human-readable names, used in error
// messages and by UnknownDataType.
var kindNames = map[Kind]string{
	KindBinary: "Binary",
	KindTable:  "Table",
	KindList:   "List",
}

// String returns the human-readable name for the kind, or a numeric
// fallback for an unrecognized wire type byte.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(k))
}

// Value is the recursively typed leaf/branch of the RNDC wire format: a
// tagged sum of a binary string, an ordered table, or a list. Integers
// carried inside the tables (nonce, serial, timestamp, expiry) are always
// Binary values holding their decimal ASCII representation -- this package
// does not distinguish them from opaque byte strings; see Value.Int for a
// typed accessor. The protocol version is not a Value: it is the body's
// leading 4-byte big-endian field.
type Value struct {
	kind   Kind
	binary []byte
	table  *Table
	list   []Value
}

// NewBinary wraps an arbitrary byte string as a Value.
func NewBinary(b []byte) Value {
	return Value{kind: KindBinary, binary: b}
}

// NewString wraps a Go string as a Binary Value.
func NewString(s string) Value {
	return Value{kind: KindBinary, binary: []byte(s)}
}

// NewInt wraps an integer as a Binary Value carrying its decimal ASCII
// representation, per the wire format's integers-as-ASCII convention.
func NewInt(n int64) Value {
	return NewString(fmt.Sprintf("%d", n))
}

// NewTable wraps a Table as a Value.
func NewTable(t *Table) Value {
	return Value{kind: KindTable, table: t}
}

// NewList wraps a slice of Values as a Value. Encode never emits a List
// at the top level (spec: "encode emits only strings and tables"); this
// constructor exists for symmetry and for tests that round-trip decoded
// structures.
func NewList(items []Value) Value {
	return Value{kind: KindList, list: items}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// Binary returns the raw bytes of a Binary value and true, or (nil, false)
// if v is not a Binary value.
func (v Value) Binary() ([]byte, bool) {
	if v.kind != KindBinary {
		return nil, false
	}
	return v.binary, true
}

// String returns a Binary value's bytes as a string, or "" if v is not a
// Binary value.
func (v Value) String() string {
	if v.kind != KindBinary {
		return ""
	}
	return string(v.binary)
}

// Int parses a Binary value's decimal ASCII payload as an integer. It
// returns an error wrapping ErrBadArgumentType if v is not a Binary value
// or its payload is not a valid decimal integer.
func (v Value) Int() (int64, error) {
	if v.kind != KindBinary {
		return 0, fmt.Errorf("value is a %s, not a number: %w", v.kind, ErrBadArgumentType)
	}
	var n int64
	if _, err := fmt.Sscanf(string(v.binary), "%d", &n); err != nil {
		return 0, fmt.Errorf("%q is not a number: %w", v.binary, ErrBadArgumentType)
	}
	return n, nil
}

// Table returns the underlying Table and true, or (nil, false) if v is
// not a Table value.
func (v Value) Table() (*Table, bool) {
	if v.kind != KindTable {
		return nil, false
	}
	return v.table, true
}

// List returns the underlying slice of Values and true, or (nil, false)
// if v is not a List value.
func (v Value) List() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// entry is a single key/value pair within a Table, kept in insertion
// order.
type entry struct {
	key   string
	value Value
}

// Table is an ordered mapping from short ASCII keys (at most 255 bytes,
// per the wire format's one-byte key-length prefix) to Values. Insertion
// order is preserved on the wire and round-trips through encode/decode.
// The one exception is a top-level "_auth" key in Packet.Data:
// EncodePacket drops it and writes its own synthesized _auth table as the
// first top-level entry.
type Table struct {
	entries []entry
	index   map[string]int
}

// NewTableValue allocates an empty, ordered Table.
func NewTableValue() *Table {
	return &Table{index: make(map[string]int)}
}

// Set inserts key=value, appending it to the insertion order if key is
// new, or replacing the existing value in place if key is already
// present. Set always succeeds; the decoder uses add instead, which
// rejects duplicate keys with ErrDuplicateKey.
func (t *Table) Set(key string, v Value) {
	if idx, ok := t.index[key]; ok {
		t.entries[idx].value = v
		return
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, entry{key: key, value: v})
}

// add appends key=value, returning ErrDuplicateKey instead if key is
// already present. Used by the decoder, which
// must reject duplicate keys rather than silently overwrite them.
func (t *Table) add(key string, v Value) error {
	if _, ok := t.index[key]; ok {
		return fmt.Errorf("duplicate table key %q: %w", key, ErrDuplicateKey)
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, entry{key: key, value: v})
	return nil
}

// Get returns the value stored under key and true, or the zero Value and
// false if key is not present.
func (t *Table) Get(key string) (Value, bool) {
	if t == nil {
		return Value{}, false
	}
	idx, ok := t.index[key]
	if !ok {
		return Value{}, false
	}
	return t.entries[idx].value, true
}

// GetTable looks up key and returns it as a Table, or (nil, false) if
// absent or not a Table.
func (t *Table) GetTable(key string) (*Table, bool) {
	v, ok := t.Get(key)
	if !ok {
		return nil, false
	}
	return v.Table()
}

// Keys returns the table's keys in insertion order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, len(t.entries))
	for i, e := range t.entries {
		keys[i] = e.key
	}
	return keys
}

// Len returns the number of entries in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
