package retrieval

import "fmt"

// Operand is a leaf comparison payload, serialized verbatim. The service
// expects "key" naming the document attribute and "value" holding the
// comparison value; the builders below produce that shape.
type Operand map[string]any

// SearchFilter is one node of a recursive boolean filter expression.
// AndAll and OrAll compose child filters; the remaining fields are leaf
// comparison operators. At most one field may be populated per node in
// well-formed input — the struct does not enforce this, Validate does.
//
// The wire names "in" and "notIn" collide with keywords in other hosts, so
// they map to InSet/NotInSet. The JSON tags are the only place the alias
// table lives; code never sees the wire form.
type SearchFilter struct {
	AndAll              []*SearchFilter `json:"andAll,omitempty"`
	OrAll               []*SearchFilter `json:"orAll,omitempty"`
	Equals              Operand         `json:"equals,omitempty"`
	GreaterThan         Operand         `json:"greaterThan,omitempty"`
	GreaterThanOrEquals Operand         `json:"greaterThanOrEquals,omitempty"`
	InSet               Operand         `json:"in,omitempty"`
	LessThan            Operand         `json:"lessThan,omitempty"`
	LessThanOrEquals    Operand         `json:"lessThanOrEquals,omitempty"`
	ListContains        Operand         `json:"listContains,omitempty"`
	NotEquals           Operand         `json:"notEquals,omitempty"`
	NotInSet            Operand         `json:"notIn,omitempty"`
	StartsWith          Operand         `json:"startsWith,omitempty"`
	StringContains      Operand         `json:"stringContains,omitempty"`
}

// And composes child filters that must all match.
func And(children ...*SearchFilter) *SearchFilter {
	return &SearchFilter{AndAll: children}
}

// Or composes child filters of which at least one must match.
func Or(children ...*SearchFilter) *SearchFilter {
	return &SearchFilter{OrAll: children}
}

func operand(attribute string, value any) Operand {
	return Operand{"key": attribute, "value": value}
}

// Equals matches documents whose attribute equals value.
func Equals(attribute string, value any) *SearchFilter {
	return &SearchFilter{Equals: operand(attribute, value)}
}

// NotEquals matches documents whose attribute differs from value.
func NotEquals(attribute string, value any) *SearchFilter {
	return &SearchFilter{NotEquals: operand(attribute, value)}
}

// GreaterThan matches documents whose attribute is strictly greater than value.
func GreaterThan(attribute string, value any) *SearchFilter {
	return &SearchFilter{GreaterThan: operand(attribute, value)}
}

// GreaterThanOrEquals matches documents whose attribute is at least value.
func GreaterThanOrEquals(attribute string, value any) *SearchFilter {
	return &SearchFilter{GreaterThanOrEquals: operand(attribute, value)}
}

// LessThan matches documents whose attribute is strictly less than value.
func LessThan(attribute string, value any) *SearchFilter {
	return &SearchFilter{LessThan: operand(attribute, value)}
}

// LessThanOrEquals matches documents whose attribute is at most value.
func LessThanOrEquals(attribute string, value any) *SearchFilter {
	return &SearchFilter{LessThanOrEquals: operand(attribute, value)}
}

// In matches documents whose attribute is one of values.
func In(attribute string, values ...any) *SearchFilter {
	return &SearchFilter{InSet: operand(attribute, values)}
}

// NotIn matches documents whose attribute is none of values.
func NotIn(attribute string, values ...any) *SearchFilter {
	return &SearchFilter{NotInSet: operand(attribute, values)}
}

// StartsWith matches documents whose attribute starts with prefix.
func StartsWith(attribute, prefix string) *SearchFilter {
	return &SearchFilter{StartsWith: operand(attribute, prefix)}
}

// StringContains matches documents whose attribute contains substr.
func StringContains(attribute, substr string) *SearchFilter {
	return &SearchFilter{StringContains: operand(attribute, substr)}
}

// ListContains matches documents whose list attribute contains value.
func ListContains(attribute string, value any) *SearchFilter {
	return &SearchFilter{ListContains: operand(attribute, value)}
}

// Validate checks that at most one field is populated per node, recursing
// into composite children. A node with no populated field is allowed; the
// remote API treats it as absent.
func (f *SearchFilter) Validate() error {
	if f == nil {
		return nil
	}
	populated := 0
	if len(f.AndAll) > 0 {
		populated++
	}
	if len(f.OrAll) > 0 {
		populated++
	}
	for _, op := range []Operand{
		f.Equals, f.GreaterThan, f.GreaterThanOrEquals, f.InSet,
		f.LessThan, f.LessThanOrEquals, f.ListContains, f.NotEquals,
		f.NotInSet, f.StartsWith, f.StringContains,
	} {
		if len(op) > 0 {
			populated++
		}
	}
	if populated > 1 {
		return fmt.Errorf("%w: filter node must populate at most one operator, got %d", ErrInvalidConfig, populated)
	}
	for _, child := range f.AndAll {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	for _, child := range f.OrAll {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}
