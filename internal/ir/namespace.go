package ir

import "fmt"

// Namespace identifies one of the three attribute collections of a service.
type Namespace string

const (
	NamespaceInput    Namespace = "input"
	NamespaceInternal Namespace = "internal"
	NamespaceOutput   Namespace = "output"
)

// Namespaces lists every namespace in declaration-check order.
var Namespaces = []Namespace{NamespaceInput, NamespaceInternal, NamespaceOutput}

// Valid reports whether ns is a known namespace.
func (ns Namespace) Valid() bool {
	switch ns {
	case NamespaceInput, NamespaceInternal, NamespaceOutput:
		return true
	}
	return false
}

// Plural returns the accessor collection name ("inputs", "internals", "outputs").
func (ns Namespace) Plural() string {
	return string(ns) + "s"
}

// ParseNamespace converts a string to a Namespace.
func ParseNamespace(s string) (Namespace, error) {
	ns := Namespace(s)
	if !ns.Valid() {
		return "", fmt.Errorf("unknown namespace %q, must be one of: input, internal, output", s)
	}
	return ns, nil
}

var reservedBase = map[string]bool{
	"input":     true,
	"inputs":    true,
	"internal":  true,
	"internals": true,
	"output":    true,
	"outputs":   true,
	"fail":      true,
	"failure":   true,
	"success":   true,
}

// IsReserved reports whether name cannot be declared in namespace ns.
// Outputs additionally reserve "error" because Result exposes it.
func IsReserved(ns Namespace, name string) bool {
	if reservedBase[name] {
		return true
	}
	return ns == NamespaceOutput && name == "error"
}
