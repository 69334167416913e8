package commands

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsdlisr/internal/config"
	"vsdlisr/internal/gpu"
	"vsdlisr/internal/ngx/hostfeature"
)

// freshServe returns a serve command with its own flag set.
func freshServe(t *testing.T) *cobra.Command {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	cmd := &cobra.Command{Use: "serve"}
	addServeFlags(cmd.Flags())
	return cmd
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "vsdlisr 1.0"), out.String())
}

func TestLoadConfig_Defaults(t *testing.T) {
	cmd := freshServe(t)

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Preview, cfg.Preview)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	cmd := freshServe(t)
	t.Setenv("DLISR_PREVIEW_SCALE", "3")
	t.Setenv("DLISR_PREVIEW_FPS", "25")
	require.NoError(t, cmd.Flags().Set("scale", "4"))
	require.NoError(t, cmd.Flags().Set("device", "host"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Preview.Scale, "flag wins over env")
	assert.Equal(t, 25, cfg.Preview.FPS, "env wins over default")
	assert.Equal(t, "host", cfg.Preview.Device)
}

func TestBuildEnv(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Preview.Device = "host"

	env, err := buildEnv(cfg)
	require.NoError(t, err)
	assert.IsType(t, &gpu.HostDevice{}, env.Device)
	assert.IsType(t, hostfeature.Loader{}, env.Loader)
	assert.Equal(t, "./", env.NGX.EnginePath)

	cfg.Preview.Device = "tpu"
	_, err = buildEnv(cfg)
	assert.Error(t, err)
}
