package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	s, err := ParseArgs(fs, nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestParseArgsOverride(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	s, err := ParseArgs(fs, []string{"-render-distance=4", "-load-distance=5", "-unload-distance=5"})
	require.NoError(t, err)
	assert.EqualValues(t, 4, s.RenderDistance)
}

func TestValidateRejectsNonPowerOfTwoChunkEdge(t *testing.T) {
	s := Default()
	s.ChunkEdge = 30
	assert.Error(t, s.Validate())
}

func TestValidateRejectsUnloadLessThanRender(t *testing.T) {
	s := Default()
	s.UnloadDistance = s.RenderDistance - 1
	assert.Error(t, s.Validate())
}

func TestValidateRejectsBadGrowthFactor(t *testing.T) {
	s := Default()
	s.GrowthFactor = 1.0
	assert.Error(t, s.Validate())
}

func TestWorkerCountAtLeastOne(t *testing.T) {
	s := Default()
	s.WorkerFraction = 0.0001
	assert.GreaterOrEqual(t, s.WorkerCount(), 1)
}
