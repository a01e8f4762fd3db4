package listing

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
)

type idKind int

const (
	noID idKind = iota
	numberID
	stringID
	otherID
)

// ID is a listing identifier as the upstream sent it. Numbers compare
// numerically, strings lexically, and numbers sort before strings. The
// number 5 and the string "5" are different ids.
type ID struct {
	kind idKind
	text string // canonical form: rational for numbers, value for strings, compact json otherwise
}

// ParseID reads an id from its raw JSON. An absent or null value yields the
// zero ID, which is never equal to any other.
func ParseID(raw json.RawMessage) ID {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ID{}
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return ID{kind: stringID, text: s}
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if r, ok := new(big.Rat).SetString(string(raw)); ok {
			return ID{kind: numberID, text: r.RatString()}
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ID{}
	}
	return ID{kind: otherID, text: buf.String()}
}

// NumberID builds a numeric id, mostly for tests.
func NumberID(n int64) ID {
	return ID{kind: numberID, text: big.NewRat(n, 1).RatString()}
}

func StringID(s string) ID {
	return ID{kind: stringID, text: s}
}

func (id ID) Valid() bool { return id.kind != noID }

// Equal reports whether both ids are present and identical.
func (id ID) Equal(o ID) bool {
	return id.kind != noID && id.kind == o.kind && id.text == o.text
}

// Compare orders ids: absent, then numbers, then strings, then anything else.
func (id ID) Compare(o ID) int {
	if c := cmp.Compare(id.kind, o.kind); c != 0 {
		return c
	}
	if id.kind == numberID {
		a, _ := new(big.Rat).SetString(id.text)
		b, _ := new(big.Rat).SetString(o.text)
		return a.Cmp(b)
	}
	return cmp.Compare(id.text, o.text)
}

// Float64 returns the numeric value of a number id.
func (id ID) Float64() (float64, bool) {
	if id.kind != numberID {
		return 0, false
	}
	r, _ := new(big.Rat).SetString(id.text)
	f, _ := r.Float64()
	return f, true
}

func (id ID) String() string {
	switch id.kind {
	case noID:
		return "<none>"
	case stringID:
		return fmt.Sprintf("%q", id.text)
	default:
		return id.text
	}
}

// Listing is one post returned by the upstream listings API. The payload is
// kept verbatim and is what gets published and served back to clients.
type Listing struct {
	ID  ID
	Raw json.RawMessage
}

// New builds a listing from a raw JSON object, extracting its identifier.
func New(raw json.RawMessage) Listing {
	l := Listing{Raw: append(json.RawMessage(nil), raw...)}

	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil {
		l.ID = ParseID(probe.ID)
	}
	return l
}

func (l Listing) MarshalJSON() ([]byte, error) {
	if len(l.Raw) == 0 {
		return []byte("null"), nil
	}
	return l.Raw, nil
}

func (l *Listing) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("listing: invalid json")
	}
	*l = New(data)
	return nil
}

func (l Listing) String() string {
	return "listing(" + l.ID.String() + ")"
}

// SortByID orders listings oldest to newest. Listings without an id sort
// first and keep their relative order.
func SortByID(ls []Listing) {
	sort.SliceStable(ls, func(i, j int) bool {
		return ls[i].ID.Compare(ls[j].ID) < 0
	})
}
