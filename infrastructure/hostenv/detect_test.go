package hostenv

import (
	"testing"

	"github.com/reglet-dev/packload/domain/entities"
	domainerrors "github.com/reglet-dev/packload/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		ind  entities.Indicators
		want entities.Environment
	}{
		{"window", entities.Indicators{HasWindow: true}, entities.EnvironmentWeb},
		{"importScripts", entities.Indicators{HasImportScripts: true}, entities.EnvironmentWorker},
		{"process and require", entities.Indicators{HasProcess: true, HasRequire: true}, entities.EnvironmentServer},
		{"shell primitives", entities.Indicators{HasShell: true}, entities.EnvironmentShell},
		{"window wins over process", entities.Indicators{HasWindow: true, HasProcess: true, HasRequire: true}, entities.EnvironmentWeb},
		{"worker wins over process", entities.Indicators{HasImportScripts: true, HasProcess: true, HasRequire: true}, entities.EnvironmentWorker},
		{"process without require is a shell", entities.Indicators{HasProcess: true, HasShell: true}, entities.EnvironmentShell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.ind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect_Unknown(t *testing.T) {
	for _, ind := range []entities.Indicators{
		{},
		{HasProcess: true},
		{HasRequire: true},
	} {
		_, err := Detect(ind)
		require.Error(t, err)
		assert.ErrorIs(t, err, domainerrors.ErrUnknownEnvironment)

		var initErr *domainerrors.InitError
		assert.ErrorAs(t, err, &initErr)
	}
}

func TestProbe_NativeIsServer(t *testing.T) {
	env, err := Detect(Probe())
	require.NoError(t, err)
	assert.Equal(t, entities.EnvironmentServer, env)
}
