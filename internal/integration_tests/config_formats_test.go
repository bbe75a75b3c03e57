package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildModelFromYAML(t *testing.T) {
	t.Parallel()

	scanYAML := `
Parameters:
  ToyScaled:
    q: {range: [0, 1], steps: 3}

ObsLikes:
  - capability: lnL_gauss
    purpose: LogLike
`
	res := runIntegrationTest(t, map[string]string{"scan.yaml": scanYAML})
	require.NoError(t, res.Err)

	// q is mapped onto x = 2q.
	assert.Equal(t, []any{0.0, -0.5, -2.0}, res.App.Results().Values("lnL_gauss"))
}

func TestMixedFormatsMerge(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"a_models.yaml": "Parameters:\n  Toy:\n    x: 3\n",
		"b_requests.hcl": `
request "x_squared" {
  label = "x2"
}
`,
		"nested/c_sinks.hcl": `
sinks {
  log = true
}
`,
	}
	res := runIntegrationTest(t, files)
	require.NoError(t, res.Err)

	assert.Equal(t, []string{"Toy"}, res.App.Model().Models)
	assert.True(t, res.App.Model().Sinks.Log)
	assert.Equal(t, []any{9.0}, res.App.Results().Values("x2"))
	assert.Contains(t, res.Logs, "Point result.")
}

func TestUnresolvableRequest(t *testing.T) {
	t.Parallel()

	res := runIntegrationTest(t, map[string]string{"scan.hcl": `
models = ["Toy"]
request "Higgs_mass" {}
`})
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "cannot resolve capability Higgs_mass")
}
