package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/larsfn/minterra/internal/buildinfo"
	"github.com/larsfn/minterra/internal/logging"
)

// global flags
var userConfig string

const (
	LogLevelKey   = "log.level"
	LogFormatKey  = "log.format"
	LogNoColorKey = "log.no_color"
)

var rootCmd = &cobra.Command{
	Use:   "minterra",
	Short: fmt.Sprintf("Minterra credential broker (version: %s, commit: %s)", buildinfo.Version, buildinfo.CommitHash),
	Long: `Minterra exchanges a Terraform Cloud run's API token for a short-lived
Google Cloud access token. It verifies the caller is a service account bound
to an actively planning or applying run, resolves the run's workspace to an
explicitly mapped service identity and mints a bounded-lifetime token for it.`,
	Version: buildinfo.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, configErr := initUserConfig()
		logging.Init(
			viper.GetString(LogLevelKey),
			viper.GetString(LogFormatKey),
			viper.GetBool(LogNoColorKey),
		)
		if configErr != nil { // handle error after logging is initialized
			return configErr
		}
		if configPath != "" {
			log.Debug().Msgf("using user config file: %s", configPath)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execution failed")
		os.Exit(1)
	}
}

func init() {
	// setup pre-flag logger
	logging.InitDefault()

	rootCmd.PersistentFlags().StringVar(&userConfig, "user-config", "",
		"User configuration file for default values (default is $HOME/.minterra.yaml)")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag(LogLevelKey, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	_ = viper.BindPFlag(LogFormatKey, rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable color output")
	_ = viper.BindPFlag(LogNoColorKey, rootCmd.PersistentFlags().Lookup("no-color"))

	viper.SetEnvPrefix("MINTERRA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	viper.AutomaticEnv()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func initUserConfig() (string, error) {
	if userConfig != "" {
		viper.SetConfigFile(userConfig)
	} else {
		viper.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		if config, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(config + "/minterra")
		}

		viper.SetConfigType("yaml")
		viper.SetConfigName(".minterra")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundError) {
			return "", err
		}
		return "", nil
	}
	return viper.ConfigFileUsed(), nil
}
