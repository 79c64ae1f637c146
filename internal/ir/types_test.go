package ir

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
)

func TestBuiltinTypeTags(t *testing.T) {
	tests := []struct {
		name  string
		tag   TypeTag
		value any
		want  bool
	}{
		{"string", String, "x", true},
		{"string rejects int", String, 1, false},
		{"integer int", Integer, 5, true},
		{"integer uint8", Integer, uint8(5), true},
		{"integer big", Integer, big.NewInt(5), true},
		{"integer rejects float", Integer, 5.0, false},
		{"integer rejects duration", Integer, time.Second, false},
		{"float", Float, 1.5, true},
		{"rational", Rational, big.NewRat(1, 2), true},
		{"decimal", Decimal, apd.New(15, -1), true},
		{"numeric float", Numeric, 1.5, true},
		{"numeric rejects string", Numeric, "1", false},
		{"boolean", Boolean, false, true},
		{"array", Array, []string{"a"}, true},
		{"array rejects nil slice", Array, []string(nil), false},
		{"hash", Hash, map[string]any{}, true},
		{"time", Time, time.Now(), true},
		{"duration", Duration, time.Minute, true},
		{"nil", Nil, nil, true},
		{"nil pointer", Nil, (*big.Rat)(nil), true},
		{"any", Any, struct{}{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tag.Matches(tt.value))
		})
	}
}

type customer struct{ Name string }

func TestTypeOf(t *testing.T) {
	tag := TypeOf[customer]()
	assert.Equal(t, "ir.customer", tag.Name)
	assert.True(t, tag.Matches(customer{Name: "a"}))
	assert.False(t, tag.Matches(&customer{}))
	assert.False(t, tag.Matches(nil))

	errTag := TypeOf[error]()
	assert.True(t, errTag.Matches(errors.New("boom")), "interfaces accept implementations")
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "String", TypeName("a"))
	assert.Equal(t, "Integer", TypeName(5))
	assert.Equal(t, "Float", TypeName(5.5))
	assert.Equal(t, "Nil", TypeName(nil))
	assert.Equal(t, "Array", TypeName([]any{1}))
	assert.Equal(t, "ir.customer", TypeName(customer{}))
}

func TestTypeNames(t *testing.T) {
	assert.Equal(t, "String, Integer", TypeNames([]TypeTag{String, Integer}))
	assert.Equal(t, "", TypeNames(nil))
}

func TestZeroTypeTagMatchesNothing(t *testing.T) {
	var tag TypeTag
	assert.False(t, tag.Matches("x"))
}

func TestIsReserved(t *testing.T) {
	for _, name := range []string{"input", "inputs", "internal", "internals", "output", "outputs", "fail", "failure", "success"} {
		for _, ns := range Namespaces {
			assert.True(t, IsReserved(ns, name), "%s in %s", name, ns)
		}
	}
	assert.True(t, IsReserved(NamespaceOutput, "error"))
	assert.False(t, IsReserved(NamespaceInput, "error"))
	assert.False(t, IsReserved(NamespaceInput, "ids"))
}

func TestParseNamespace(t *testing.T) {
	ns, err := ParseNamespace("internal")
	assert.NoError(t, err)
	assert.Equal(t, NamespaceInternal, ns)
	assert.Equal(t, "internals", ns.Plural())

	_, err = ParseNamespace("params")
	assert.Error(t, err)
}
