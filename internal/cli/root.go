package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var rootCmd = &cobra.Command{
	Use:   "davproxy",
	Short: "Transparent WebDAV reverse proxy",
	Long:  `davproxy forwards WebDAV requests to a single upstream backend behind its own front-end credential.`,
}

func init() {
	cobra.OnInitialize(initEnv)
}

// initEnv wires DAVPROXY_*-prefixed environment variables over any bound
// flag, the same viper convention the teacher uses for its own ATLAS_*
// prefix, minus the config-file search: this proxy has no on-disk profile
// store to discover, only flags and env.
func initEnv() {
	viper.SetEnvPrefix("DAVPROXY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
