package ir

// Declarations indexes a service's attributes per namespace. The index is
// the accessor map used by the workspace: lookups never fall back to
// anything but an explicit map hit or miss.
type Declarations struct {
	ordered map[Namespace][]*Attribute
	index   map[Namespace]map[string]*Attribute
}

// NewDeclarations returns an empty index.
func NewDeclarations() *Declarations {
	d := &Declarations{
		ordered: make(map[Namespace][]*Attribute, len(Namespaces)),
		index:   make(map[Namespace]map[string]*Attribute, len(Namespaces)),
	}
	for _, ns := range Namespaces {
		d.index[ns] = make(map[string]*Attribute)
	}
	return d
}

// Add appends a to its namespace. It returns false if the name is taken.
func (d *Declarations) Add(a *Attribute) bool {
	if _, exists := d.index[a.Namespace][a.Name]; exists {
		return false
	}
	d.index[a.Namespace][a.Name] = a
	d.ordered[a.Namespace] = append(d.ordered[a.Namespace], a)
	return true
}

// Replace swaps a same-named attribute in place, keeping its position.
// Used when a child service redeclares an inherited attribute.
func (d *Declarations) Replace(a *Attribute) bool {
	if _, exists := d.index[a.Namespace][a.Name]; !exists {
		return false
	}
	d.index[a.Namespace][a.Name] = a
	for i, existing := range d.ordered[a.Namespace] {
		if existing.Name == a.Name {
			d.ordered[a.Namespace][i] = a
		}
	}
	return true
}

// Lookup returns the attribute named name in ns.
func (d *Declarations) Lookup(ns Namespace, name string) (*Attribute, bool) {
	a, ok := d.index[ns][name]
	return a, ok
}

// List returns the attributes of ns in declaration order.
func (d *Declarations) List(ns Namespace) []*Attribute {
	out := make([]*Attribute, len(d.ordered[ns]))
	copy(out, d.ordered[ns])
	return out
}

// Len returns the number of attributes in ns.
func (d *Declarations) Len(ns Namespace) int {
	return len(d.ordered[ns])
}

// Clone returns a copy of the index whose attributes belong to service.
// Rules are shared; they are immutable.
func (d *Declarations) Clone(service string) *Declarations {
	c := NewDeclarations()
	for _, ns := range Namespaces {
		for _, a := range d.ordered[ns] {
			cp := *a
			cp.Service = service
			c.Add(&cp)
		}
	}
	return c
}
