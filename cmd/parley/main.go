package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Chat with an agent service and manage its session context",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return err
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return nil
	},
}

func initViper() {
	viper.SetEnvPrefix("PARLEY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	initViper()

	rootCmd.PersistentFlags().String("base-url", "http://localhost:8000", "Base URL of the agent service")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	cobra.CheckErr(viper.BindPFlag("base-url", rootCmd.PersistentFlags().Lookup("base-url")))
	cobra.CheckErr(viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")))

	rootCmd.AddCommand(newChatCommand())
	rootCmd.AddCommand(newSessionsCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newContextCommand())
	rootCmd.AddCommand(newUploadCommand())

	cobra.CheckErr(rootCmd.Execute())
}
