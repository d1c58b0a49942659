package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestParseFile(t *testing.T) {
	p := writeFile(t, ".env", `
# comment
PORT=9100
export INTERVAL = 30000
QUOTED="a b"
SINGLE='x=y'
BROKEN
=novalue
`)
	vars, err := ParseFile(p)
	require.NoError(t, err)
	assert.Equal(t, Var{"PORT": "9100", "INTERVAL": "30000", "QUOTED": "a b", "SINGLE": "x=y"}, vars)
}

func TestLoadFilesDoesNotOverride(t *testing.T) {
	local := writeFile(t, ".env.local", "SP_TEST_A=local\n")
	base := writeFile(t, ".env", "SP_TEST_A=base\nSP_TEST_B=base\nSP_TEST_C=base\n")
	t.Setenv("SP_TEST_C", "process")
	// register cleanup for the variables LoadFiles sets
	t.Setenv("SP_TEST_A", "")
	t.Setenv("SP_TEST_B", "")
	require.NoError(t, os.Unsetenv("SP_TEST_A"))
	require.NoError(t, os.Unsetenv("SP_TEST_B"))

	require.NoError(t, LoadFiles(local, filepath.Join(t.TempDir(), "missing"), base))
	assert.Equal(t, "local", os.Getenv("SP_TEST_A"))
	assert.Equal(t, "base", os.Getenv("SP_TEST_B"))
	assert.Equal(t, "process", os.Getenv("SP_TEST_C"))
}

func TestExpand(t *testing.T) {
	t.Setenv("SP_TEST_PSK", "from-env")
	e := New()
	e.Set("HOST", "10.0.0.1")

	assert.Equal(t, "from-env", e.Expand("${SP_TEST_PSK}"))
	assert.Equal(t, "ping 10.0.0.1 via wlan0", e.Expand("ping ${HOST} via wlan0"))
	assert.Equal(t, "${SP_TEST_UNKNOWN}", e.Expand("${SP_TEST_UNKNOWN}"))
	assert.Equal(t, "$HOST", e.Expand("$HOST"))
	assert.Equal(t, "a${b", e.Expand("a${b"))
	assert.Equal(t, "${}", e.Expand("${}"))
}

func TestOverrideWinsOverEnvironment(t *testing.T) {
	t.Setenv("SP_TEST_X", "env")
	e := New()
	e.Set("SP_TEST_X", "override")
	v, ok := e.Lookup("SP_TEST_X")
	assert.True(t, ok)
	assert.Equal(t, "override", v)
}

func FuzzExpand(f *testing.F) {
	f.Add("${A}-x", "A", "1")
	f.Add("${A}${A}", "A", "${A}")
	f.Add("${", "", "")
	f.Fuzz(func(t *testing.T, s, k, v string) {
		e := New()
		e.env = Var{}
		e.Set(k, v)
		_ = e.Expand(s)
	})
}
