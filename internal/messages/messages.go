// Package messages renders the default human-readable error messages.
//
// Templates live in a golang.org/x/text catalog under keys of the form
// "<root>.<namespace>.<rule>.<variant>". Every template receives the same
// leading arguments:
//
//	%[1]s service name
//	%[2]s namespace ("input")
//	%[3]s capitalized namespace ("Input")
//	%[4]s attribute name
//
// followed by rule-specific arguments. Arguments are pre-formatted strings so
// the printer never localizes numbers inside values.
package messages

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/roach88/servactory/internal/ir"
)

// DefaultRoot is the key root used when none is configured.
const DefaultRoot = "servactory"

// Rule groups that are not validation rules.
const (
	RuleWorkspace  = "workspace"
	RuleDefinition = "definition"
)

// defaults holds every built-in template keyed by "<rule>.<variant>".
var defaults = map[string]string{
	"required.default":   "[%[1]s] Required %[2]s `%[4]s` is missing",
	"required.for_array": "[%[1]s] Required element in %[2]s `%[4]s` is missing",

	"type.default": "[%[1]s] Wrong type of %[2]s `%[4]s`, expected `%[5]s`, got `%[6]s`",

	"inclusion.default":       "[%[1]s] Wrong value in %[2]s `%[4]s`, must be one of `%[5]s`, got `%[6]s`",
	"inclusion.misconfigured": "[%[1]s] Option `in` of %[2]s `%[4]s` is not configured",

	"must.default":      "[%[1]s] %[3]s `%[4]s` must \"%[5]s\"",
	"must.with_reason":  "[%[1]s] %[3]s `%[4]s` must \"%[5]s\" (%[6]s)",
	"must.syntax_error": "[%[1]s] Syntax error inside `%[5]s` of `%[4]s` %[2]s: %[6]s",

	"multiple_of.default": "[%[1]s] %[3]s `%[4]s` has value `%[6]s` that is not a multiple of `%[5]s`",
	"multiple_of.blank":   "[%[1]s] %[3]s `%[4]s` has an invalid value `%[6]s` or divisor `%[5]s`",

	"format.default":    "[%[1]s] %[3]s `%[4]s` does not match `%[5]s` format",
	"format.wrong_type": "[%[1]s] %[3]s `%[4]s` must be a String for `%[5]s` format validation",
	"format.unknown":    "[%[1]s] Unknown '%[5]s' format specified for %[2]s '%[4]s'",

	"consists_of.wrong_element_type": "[%[1]s] Wrong element type in %[2]s `%[4]s`, expected `%[5]s`, got `%[6]s`",
	"consists_of.not_collection":     "[%[1]s] %[3]s `%[4]s` must be a collection to check its elements, got `%[5]s`",

	"schema.wrong_type":     "[%[1]s] %[3]s `%[4]s` must be a Hash to apply its schema, got `%[5]s`",
	"schema.required":       "[%[1]s] Required key `%[5]s` of %[2]s `%[4]s` is missing",
	"schema.wrong_key_type": "[%[1]s] Wrong type of key `%[5]s` in %[2]s `%[4]s`, expected `%[6]s`, got `%[7]s`",

	"target.default": "[%[1]s] Wrong value in %[2]s `%[4]s`, expected one of `%[5]s`, got `%[6]s`",

	"eq.default": "[%[1]s] %[3]s `%[4]s` must be equal to `%[5]s`, got `%[6]s`",

	"workspace.undefined_getter":   "[%[1]s] Undefined %[2]s attribute `%[4]s`",
	"workspace.undefined_setter":   "[%[1]s] Cannot assign undefined %[2]s attribute `%[4]s`",
	"workspace.immutable":          "[%[1]s] %[3]s `%[4]s` is read-only and cannot be assigned",
	"workspace.unset":              "[%[1]s] %[3]s `%[4]s` has not been assigned",
	"workspace.unexpected":         "[%[1]s] Unexpected attributes: `%[5]s`",
	"workspace.predicate_disabled": "[%[1]s] Presence accessors are disabled, cannot check %[2]s `%[4]s`",

	"definition.reserved":            "[%[1]s] %[3]s name `%[4]s` is reserved",
	"definition.duplicate":           "[%[1]s] %[3]s `%[4]s` is already declared",
	"definition.conflict":            "[%[1]s] %[3]s `%[4]s` conflicts with the %[5]s attribute of the same name",
	"definition.required_vs_default": "[%[1]s] %[3]s `%[4]s` cannot be required and have a default value at the same time",
	"definition.unknown_option":      "[%[1]s] Unknown option `%[5]s` for %[2]s `%[4]s`",
	"definition.unsupported_option":  "[%[1]s] Option `%[5]s` is not supported for %[2]s `%[4]s`",
	"definition.invalid_option":      "[%[1]s] Invalid value for option `%[5]s` of %[2]s `%[4]s`: %[6]s",
}

// Catalog renders messages for one key root and locale.
type Catalog struct {
	root    string
	builder *catalog.Builder
	printer *message.Printer
}

// New builds a catalog with the default English templates registered for all
// namespaces under root. Messages are printed for tag. The defaults are also
// registered under tag, so a locale without its own templates prints English
// until Set overrides them.
func New(root string, tag language.Tag) (*Catalog, error) {
	if root == "" {
		root = DefaultRoot
	}
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	c := &Catalog{root: root, builder: b}
	tags := []language.Tag{language.English}
	if tag != language.English {
		tags = append(tags, tag)
	}
	for _, t := range tags {
		for _, ns := range ir.Namespaces {
			for suffix, tmpl := range defaults {
				if err := b.SetString(t, c.join(ns, suffix), tmpl); err != nil {
					return nil, fmt.Errorf("register %s for %s: %w", suffix, t, err)
				}
			}
		}
	}
	c.printer = message.NewPrinter(tag, message.Catalog(b))
	return c, nil
}

// MustNew is like New but panics on error.
func MustNew(root string, tag language.Tag) *Catalog {
	c, err := New(root, tag)
	if err != nil {
		panic(err)
	}
	return c
}

// Root returns the key root.
func (c *Catalog) Root() string { return c.root }

// Key returns the catalog key of a template.
func (c *Catalog) Key(ns ir.Namespace, rule, variant string) string {
	return c.join(ns, rule+"."+variant)
}

func (c *Catalog) join(ns ir.Namespace, suffix string) string {
	return strings.Join([]string{c.root, string(ns), suffix}, ".")
}

// Set overrides the template of a key for tag. Only templates registered
// for the printing locale are rendered.
func (c *Catalog) Set(tag language.Tag, ns ir.Namespace, rule, variant, template string) error {
	if _, ok := defaults[rule+"."+variant]; !ok {
		return fmt.Errorf("unknown message %s.%s", rule, variant)
	}
	return c.builder.SetString(tag, c.Key(ns, rule, variant), template)
}

// Render prints the template with the standard leading arguments.
func (c *Catalog) Render(ns ir.Namespace, rule, variant, service, attribute string, extra ...string) string {
	args := make([]any, 0, 4+len(extra))
	args = append(args, service, string(ns), ir.Capitalize(string(ns)), attribute)
	for _, e := range extra {
		args = append(args, e)
	}
	return c.printer.Sprintf(c.Key(ns, rule, variant), args...)
}

// Variants lists the "<rule>.<variant>" suffixes with default templates.
func Variants() []string {
	return ir.SortedKeys(defaults)
}
