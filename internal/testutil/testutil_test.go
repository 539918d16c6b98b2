package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestEnvRoundTrip(t *testing.T) {
	env := NewTestEnv(t)

	env.WriteFileString("data/stock.csv", "branch,item_code\nHQ,A001\n")
	assert.True(t, env.FileExists("data/stock.csv"))
	assert.Equal(t, "branch,item_code\nHQ,A001\n", env.ReadFileString("data/stock.csv"))
}

func TestTestEnvPathStaysInSandbox(t *testing.T) {
	env := NewTestEnv(t)

	path := env.Path("sub", "file.txt")
	assert.Contains(t, path, env.RootDir())
}

func TestConfigStateRoundTrip(t *testing.T) {
	SetTestConfig(t)

	state := SaveConfigState()
	assert.Equal(t, 1, state.PoolMinConns)
	assert.Equal(t, 2, state.PoolMaxConns)
	assert.Equal(t, 100, state.BatchSize)
}
