package ir

// Info is the structural description of a service. It is rebuilt from the
// live declarations on every request and never cached.
type Info struct {
	Service   string          `json:"service"`
	Inputs    []AttributeInfo `json:"inputs"`
	Internals []AttributeInfo `json:"internals"`
	Outputs   []AttributeInfo `json:"outputs"`
	Stages    []StageInfo     `json:"stages"`
}

// AttributeInfo describes one attribute.
type AttributeInfo struct {
	Name       string     `json:"name"`
	Types      []string   `json:"types"`
	Required   bool       `json:"required"`
	HasDefault bool       `json:"has_default"`
	Default    string     `json:"default,omitempty"`
	Rules      []RuleInfo `json:"rules"`
}

// RuleInfo describes one rule of an attribute.
type RuleInfo struct {
	Kind          RuleKind       `json:"kind"`
	Option        string         `json:"option"`
	Details       map[string]any `json:"details"`
	CustomMessage bool           `json:"custom_message"`
}

// StageInfo describes one pipeline stage.
type StageInfo struct {
	Position    int          `json:"position"`
	Conditional bool         `json:"conditional"`
	Wrapped     bool         `json:"wrapped"`
	Rollback    bool         `json:"rollback"`
	Actions     []ActionInfo `json:"actions"`
}

// ActionInfo describes one action.
type ActionInfo struct {
	Name        string `json:"name"`
	Position    int    `json:"position"`
	Conditional bool   `json:"conditional"`
}

// DescribeAttribute builds the description of a.
func DescribeAttribute(a *Attribute) AttributeInfo {
	info := AttributeInfo{
		Name:       a.Name,
		Types:      make([]string, len(a.Types)),
		Required:   a.Required,
		HasDefault: a.HasDefault(),
		Rules:      []RuleInfo{},
	}
	for i, t := range a.Types {
		info.Types[i] = t.Name
	}
	if a.Default.IsLazy() {
		info.Default = "<lazy>"
	} else if a.HasDefault() {
		info.Default = FormatValue(a.Default.Resolve())
	}
	for _, r := range a.AllRules() {
		info.Rules = append(info.Rules, RuleInfo{
			Kind:          r.Kind(),
			Option:        r.Option(),
			Details:       r.Describe(),
			CustomMessage: !r.Msg().IsZero(),
		})
	}
	return info
}

// DescribeNamespace describes every attribute of ns in declaration order.
func (d *Declarations) DescribeNamespace(ns Namespace) []AttributeInfo {
	attrs := d.List(ns)
	out := make([]AttributeInfo, len(attrs))
	for i, a := range attrs {
		out[i] = DescribeAttribute(a)
	}
	return out
}
