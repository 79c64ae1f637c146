package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputsHashDeterminism(t *testing.T) {
	inputs := map[string]any{"ids": []any{"AA-1"}, "locked": true}

	h1, err := InputsHash("Orders", inputs)
	require.NoError(t, err)
	h2, err := InputsHash("Orders", map[string]any{"locked": true, "ids": []string{"AA-1"}})
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "map order and slice element type must not matter")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestInputsHashChangesWithInput(t *testing.T) {
	base := MustInputsHash("Orders", map[string]any{"n": 1})

	assert.NotEqual(t, base, MustInputsHash("Invoices", map[string]any{"n": 1}), "service is part of the identity")
	assert.NotEqual(t, base, MustInputsHash("Orders", map[string]any{"n": 2}))
	assert.NotEqual(t, base, MustInputsHash("Orders", map[string]any{"m": 1}))
}

func TestInputsHashNumericSpelling(t *testing.T) {
	// 5 and 5.0 are the same number in canonical JSON
	assert.Equal(t,
		MustInputsHash("S", map[string]any{"n": 5}),
		MustInputsHash("S", map[string]any{"n": 5.0}),
	)
}

func TestHashDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainInputs, data), hashWithDomain(DomainInfo, data))
}

func TestInfoHashStable(t *testing.T) {
	d := NewDeclarations()
	d.Add(&Attribute{Namespace: NamespaceInput, Name: "ids", Types: []TypeTag{Array}, Required: true,
		Rules: []Rule{&ConsistsOf{RuleBase: RuleBase{Keyword: "consists_of"}, Types: []TypeTag{String}}}})
	info := Info{
		Service: "Orders",
		Inputs:  d.DescribeNamespace(NamespaceInput),
		Stages:  []StageInfo{{Position: 1, Actions: []ActionInfo{{Name: "assign", Position: 1}}}},
	}

	h1, err := InfoHash(info)
	require.NoError(t, err)
	h2, err := InfoHash(info)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
