package bivgen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bivgen.config")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	con, err := ReadConfig(writeConfig(t, ExampleConfigFile))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), con)
}

func TestReadConfigOverridesOnlyNamedValues(t *testing.T) {
	con, err := ReadConfig(writeConfig(t, `[Geometry]
CharLength = 0.5

[Tree "lv"]
Iterations = 3
`))
	require.NoError(t, err)

	require.Equal(t, 0.5, con.Geometry.CharLength)
	require.Equal(t, 3, con.Tree["lv"].Iterations)

	// Everything else keeps its default.
	def := DefaultConfig()
	require.Equal(t, def.Geometry.LVEndoA, con.Geometry.LVEndoA)
	require.Equal(t, def.Fiber, con.Fiber)
	require.Equal(t, def.Tree["rv"], con.Tree["rv"])
	require.Equal(t, def.Tree["lv"].InitLength, con.Tree["lv"].InitLength)
}

func TestReadConfigRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name, text string
	}{
		{"zero char length", "[Geometry]\nCharLength = 0\n"},
		{"collapsed wall", "[Geometry]\nLVEpiA = 5.0\n"},
		{"helix out of range", "[Fiber]\nAlphaEndo = 120\n"},
		{"zero direction", "[Tree \"lv\"]\nDirectionX = 0\n"},
		{"negative iterations", "[Tree \"rv\"]\nIterations = -1\n"},
		{"unknown key", "[Geometry]\nWallThickness = 1\n"},
	}
	for _, c := range cases {
		_, err := ReadConfig(writeConfig(t, c.text))
		require.Error(t, err, c.name)
	}
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "nope.config"))
	require.Error(t, err)
}

func TestConfigSectionConversions(t *testing.T) {
	def := DefaultConfig()

	mp := def.Geometry.Params()
	require.Equal(t, 0.2, mp.CharLength)
	require.Equal(t, 5.0, mp.AEndoLV)
	require.Equal(t, 8.0, mp.AEpiRV)

	fp := def.Fiber.Params()
	require.Equal(t, 60.0, fp.AlphaEndoLV)
	require.Equal(t, -60.0, fp.AlphaEpiLV)
	require.Equal(t, 0.0, fp.BetaEndoLV)

	tp := def.Tree["rv"].Params()
	require.Equal(t, 9.7, tp.InitLength)
	require.Equal(t, 15, tp.NIt)
	require.Equal(t, 0.5, tp.Length)
	require.Equal(t, r3.Vec{X: 1}, tp.InitialDirection)
	require.Equal(t, r3.Vec{Y: 3.19, Z: 0.19}, def.Tree["rv"].Seed())
}
