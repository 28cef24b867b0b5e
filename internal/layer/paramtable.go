package layer

import "slices"

// Parameter names used in a ParamTable.
const (
	WeightKey = "W"
	BiasKey   = "b"
)

// Param is a named parameter and its tensor shape.
type Param struct {
	Name  string
	Shape []int
}

// Size is the number of values the parameter holds.
func (p Param) Size() int {
	n := 1
	for _, d := range p.Shape {
		n *= d
	}
	return n
}

// ParamTable lists a layer's parameters in flattened layout order: bias first
// when present, then weights.
type ParamTable []Param

// Shape returns the shape registered for name.
func (t ParamTable) Shape(name string) ([]int, bool) {
	for _, p := range t {
		if p.Name == name {
			return slices.Clone(p.Shape), true
		}
	}
	return nil, false
}

// Has reports whether name is in the table.
func (t ParamTable) Has(name string) bool {
	_, ok := t.Shape(name)
	return ok
}

// Names returns the parameter names in layout order.
func (t ParamTable) Names() []string {
	names := make([]string, len(t))
	for i, p := range t {
		names[i] = p.Name
	}
	return names
}

// NumParams is the total number of values across all parameters.
func (t ParamTable) NumParams() int {
	n := 0
	for _, p := range t {
		n += p.Size()
	}
	return n
}

// Offset returns the position of name within the flattened parameter view.
func (t ParamTable) Offset(name string) (int, bool) {
	off := 0
	for _, p := range t {
		if p.Name == name {
			return off, true
		}
		off += p.Size()
	}
	return 0, false
}

// Map returns the table as a name to shape map.
func (t ParamTable) Map() map[string][]int {
	m := make(map[string][]int, len(t))
	for _, p := range t {
		m[p.Name] = slices.Clone(p.Shape)
	}
	return m
}
