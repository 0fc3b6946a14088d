package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	Env = map[string]string{"LINERHUB_TEST_KEY": "from-file"}
	t.Setenv("LINERHUB_TEST_KEY", "from-os")
	defer func() { Env = nil }()

	assert.Equal(t, "from-file", GetEnv("LINERHUB_TEST_KEY", "default"))
}

func TestGetEnvFallsBackToOSAndDefault(t *testing.T) {
	Env = map[string]string{}
	defer func() { Env = nil }()

	t.Setenv("LINERHUB_TEST_OS_ONLY", "from-os")
	assert.Equal(t, "from-os", GetEnv("LINERHUB_TEST_OS_ONLY", "default"))
	assert.Equal(t, "default", GetEnv("LINERHUB_TEST_MISSING", "default"))
}
