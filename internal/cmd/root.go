package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/droidcore/sdkbridge/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "sdkbridge",
	Short: "Android SDK inspector and adb bridge manager",
	Long: `Sdkbridge inspects installed Android SDK targets and drives the adb
server lifecycle: starting the server, keeping a connection to it, and
restarting it when it crashes or stops answering.`,
}

// Execute dispatches to the selected subcommand.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.config/sdkbridge/config.yaml)")
	flags.String("sdk", "", "Android SDK root (overrides sdk.path and the environment)")
	flags.BoolP("verbose", "v", false, "log at debug level")
	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("sdk.path", flags.Lookup("sdk"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
}

// initConfig wires viper: defaults first, then the config file, with
// SDKBRIDGE_* environment variables overriding both.
func initConfig() {
	config.SetDefaults()

	viper.SetEnvPrefix("SDKBRIDGE")
	// Nested keys map with underscores: bridge.default_choice becomes
	// SDKBRIDGE_BRIDGE_DEFAULT_CHOICE.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/sdkbridge")
		viper.AddConfigPath(".")
	}

	// A missing config file is fine; defaults and env cover everything.
	_ = viper.ReadInConfig()
}
