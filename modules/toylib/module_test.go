package toylib

import (
	"context"
	"testing"

	"github.com/specialistvlad/capscan/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := registry.New()
	(&Module{}).Register(reg)

	backends := reg.BackendsFor(ScaleCapability.Name)
	require.Len(t, backends, 3)
	assert.Equal(t, "ToyLib@1.0.scale", backends[0].ID().String())
	assert.True(t, backends[2].IsMissing())
}

func TestScaler(t *testing.T) {
	testCases := []struct {
		name    string
		args    []any
		want    any
		wantErr string
	}{
		{name: "scales", args: []any{1.5}, want: 3.0},
		{name: "wrong arity", args: []any{1.0, 2.0}, wantErr: "one argument"},
		{name: "wrong type", args: []any{"x"}, wantErr: "expects a float64"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := scaler(2)(context.Background(), tc.args...)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
