package telemetry

import (
	"sort"
	"strconv"
)

// AttrType distinguishes the two storage value types the pipeline writes.
type AttrType int

const (
	AttrString AttrType = iota
	AttrNumber
)

// Attr is one storage attribute value. Number attributes carry their exact
// decimal rendering so values written back by the store match the wire form.
type Attr struct {
	Type  AttrType
	Value string
}

// S builds a string attribute.
func S(v string) Attr { return Attr{Type: AttrString, Value: v} }

// N builds a number attribute.
func N(v string) Attr { return Attr{Type: AttrNumber, Value: v} }

// Key is the two-part storage key of a record: the partition key names the
// record's logical group, the sort key its position within that group.
type Key struct {
	PK string
	SK string
}

// Record is one mapped storage record: a key plus its attribute set. The
// key attributes are not repeated in Attrs.
type Record struct {
	Key   Key
	Attrs map[string]Attr
}

// Assignment is a single field set-operation of an update.
type Assignment struct {
	Name  string
	Value Attr
}

// UpdateSpec describes an additive update against one record: every
// assignment is applied, attributes not named are left untouched.
type UpdateSpec struct {
	Key         Key
	Assignments []Assignment
}

// Merge folds other into the spec. Both specs must address the same key;
// assignments from other win on name collision. Used to collapse multiple
// updates to one key inside a transactional group, which the store forbids
// from acting on the same key twice.
func (u UpdateSpec) Merge(other UpdateSpec) UpdateSpec {
	byName := make(map[string]Attr, len(u.Assignments)+len(other.Assignments))
	for _, a := range u.Assignments {
		byName[a.Name] = a.Value
	}
	for _, a := range other.Assignments {
		byName[a.Name] = a.Value
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	merged := UpdateSpec{Key: u.Key, Assignments: make([]Assignment, 0, len(names))}
	for _, name := range names {
		merged.Assignments = append(merged.Assignments, Assignment{Name: name, Value: byName[name]})
	}
	return merged
}

// isNumeric reports whether s parses as a decimal number and may therefore
// be stored in a number attribute.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
