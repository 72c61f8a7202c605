// Package enumval computes the values of enumerants added to existing
// enums by core versions and extensions.
//
// The registry is left untouched; [Resolve] returns new tables holding
// the core enumerants of each enum followed by the added ones.
package enumval

import (
	"strconv"

	"github.com/refaktor/vkgen/registry"
	"github.com/refaktor/vkgen/selector"
)

// Base is the value of the first enumerant of extension number 1.
const Base = 1_000_000_000

// Offset returns the value assigned to an enumerant declared with an
// offset inside the block of extension extNumber.
func Offset(extNumber, offset int) int64 {
	return Base + int64(extNumber-1)*1000 + int64(offset)
}

type Value struct {
	Name string
	// Exactly one of IsBit/BitPos, Value and Alias is set.
	IsBit  bool
	BitPos int
	// Value as written in the registry, or the computed decimal value
	// for offsets and negated values.
	Value string
	Alias string
	// Feature that added the enumerant; empty for core enumerants.
	Feature string
}

type Table struct {
	Name     string
	Type     string
	BitWidth int
	Values   []Value
}

// Tables holds one [Table] per registry enum.
type Tables struct {
	tables map[string]*Table
}

// Get returns the table of an enum, or nil.
func (t *Tables) Get(name string) *Table { return t.tables[name] }

// Resolve copies the enums of reg and merges the selected enum
// extensions into them.
//
// Entries without "extends" and alias entries are ignored. An entry
// naming an enumerant that already exists with the same value is
// dropped, one with a different value is a [registry.SchemaError].
func Resolve(reg *registry.Registry, exts []selector.EnumExtension) (*Tables, error) {
	res := &Tables{tables: map[string]*Table{}}
	for _, def := range reg.Enums() {
		t := &Table{
			Name:     def.Name,
			Type:     def.Type,
			BitWidth: def.BitWidth,
			Values:   make([]Value, 0, len(def.Enumerants)),
		}
		for _, e := range def.Enumerants {
			t.Values = append(t.Values, Value{
				Name:   e.Name,
				IsBit:  e.IsBit,
				BitPos: e.BitPos,
				Value:  e.Value,
				Alias:  e.Alias,
			})
		}
		res.tables[def.Name] = t
	}

	for _, e := range exts {
		if e.Extends == "" || e.Alias != "" {
			continue
		}
		t := res.tables[e.Extends]
		if t == nil {
			return nil, registry.SchemaErrorf("enum", e.Name, "extends unknown enum %v", strconv.Quote(e.Extends))
		}
		v, err := value(e)
		if err != nil {
			return nil, err
		}
		if i := t.index(v.Name); i != -1 {
			if !sameValue(t.Values[i], v) {
				return nil, registry.SchemaErrorf("enum", e.Name, "redefined in %v with a different value", e.Feature)
			}
			continue
		}
		t.Values = append(t.Values, v)
	}
	return res, nil
}

func value(e selector.EnumExtension) (Value, error) {
	v := Value{Name: e.Name, Feature: e.Feature}
	switch {
	case e.IsBit:
		v.IsBit, v.BitPos = true, e.BitPos
		return v, nil
	case e.Value != "":
		n, err := strconv.ParseInt(e.Value, 0, 64)
		if err != nil {
			return Value{}, registry.SchemaErrorf("enum", e.Name, "invalid value %v", strconv.Quote(e.Value))
		}
		v.Value = e.Value
		if e.Negative {
			v.Value = strconv.FormatInt(-n, 10)
		}
		return v, nil
	case e.HasOffset:
		extNumber := e.ExtNumber
		if extNumber == 0 {
			extNumber = e.OwnerNumber
		}
		if extNumber == 0 {
			return Value{}, registry.SchemaErrorf("enum", e.Name, "offset without extension number")
		}
		n := Offset(extNumber, e.Offset)
		if e.Negative {
			n = -n
		}
		v.Value = strconv.FormatInt(n, 10)
		return v, nil
	default:
		return Value{}, registry.SchemaErrorf("enum", e.Name, "missing value, bitpos or offset")
	}
}

func (t *Table) index(name string) int {
	for i, v := range t.Values {
		if v.Name == name {
			return i
		}
	}
	return -1
}

func sameValue(a, b Value) bool {
	if a.IsBit || b.IsBit {
		return a.IsBit == b.IsBit && a.BitPos == b.BitPos
	}
	if a.Alias != "" || b.Alias != "" {
		return false
	}
	x, errX := strconv.ParseInt(a.Value, 0, 64)
	y, errY := strconv.ParseInt(b.Value, 0, 64)
	if errX == nil && errY == nil {
		return x == y
	}
	return a.Value == b.Value
}
