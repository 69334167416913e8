package commands

import (
	"github.com/spf13/cobra"

	"vsdlisr/internal/version"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dlisr-preview",
	Short: "Preview the DLISR filter in a browser",
	Long: `dlisr-preview runs the DLISR super-resolution filter on a synthetic
RGB clip outside the frame server and streams the upscaled result to a
browser over WHEP (WebRTC).`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./vsdlisr.yaml or $HOME/.config/vsdlisr/vsdlisr.yaml)")
}
