package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "doubling.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "doubling", scenario.Name)
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, "Doubler", scenario.Steps[0].Call)
	assert.Equal(t, 2, scenario.Steps[0].Args["n"])
	require.NotNil(t, scenario.Steps[1].Expect.Failure)
	assert.Equal(t, "negative", scenario.Steps[1].Expect.Failure.Type)
	require.Len(t, scenario.Assertions, 3)
	assert.Equal(t, []string{"double", "publish"}, scenario.Assertions[1].Actions)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: a\ndescription: b\nsteps:\n  - call: X\n"), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Nil(t, scenario.Steps[0].Expect)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: a\ndescription: b\nsteps: [{call: X}]\nassertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			yaml:    "description: b\nsteps: [{call: X}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: a\nsteps: [{call: X}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: a\ndescription: b\n",
			wantErr: "steps list is required",
		},
		{
			name:    "step without call",
			yaml:    "name: a\ndescription: b\nsteps: [{args: {x: 1}}]\n",
			wantErr: "steps[0]: call is required",
		},
		{
			name:    "failure with success true",
			yaml:    "name: a\ndescription: b\nsteps: [{call: X, expect: {success: true, failure: {type: t}}}]\n",
			wantErr: "contradicts success: true",
		},
		{
			name:    "failure with outputs",
			yaml:    "name: a\ndescription: b\nsteps: [{call: X, expect: {outputs: {a: 1}, failure: {type: t}}}]\n",
			wantErr: "exclusive",
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: a\ndescription: b\nsteps: [{call: X}]\nassertions: [{type: final_state}]\n",
			wantErr: `assertions[0]: unknown assertion type "final_state"`,
		},
		{
			name:    "assertion without type",
			yaml:    "name: a\ndescription: b\nsteps: [{call: X}]\nassertions: [{kind: started}]\n",
			wantErr: "type is required",
		},
		{
			name:    "trace_contains without target",
			yaml:    "name: a\ndescription: b\nsteps: [{call: X}]\nassertions: [{type: trace_contains}]\n",
			wantErr: "requires kind or action",
		},
		{
			name:    "trace_order with one action",
			yaml:    "name: a\ndescription: b\nsteps: [{call: X}]\nassertions: [{type: trace_order, actions: [a]}]\n",
			wantErr: "at least 2 actions",
		},
		{
			name:    "trace_count negative",
			yaml:    "name: a\ndescription: b\nsteps: [{call: X}]\nassertions: [{type: trace_count, kind: started, count: -1}]\n",
			wantErr: "non-negative count",
		},
		{
			name:    "journal_count without service",
			yaml:    "name: a\ndescription: b\nsteps: [{call: X}]\nassertions: [{type: journal_count, count: 1}]\n",
			wantErr: "journal_count requires service",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
