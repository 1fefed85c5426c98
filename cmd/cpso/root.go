package main

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "cpso",
	Short: "Restart particle swarm minimizer with gradient certification",
	Long: `cpso minimizes box-bounded benchmark objectives with a particle swarm
that alternates a convergence (forward) phase and a local-minimum escape
(reverse) phase across independent restarts, accepting the first candidate
whose finite-difference gradient is approximately zero.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return err
		}
		log.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	viper.SetEnvPrefix("cpso")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlags(rootCmd.PersistentFlags())
}
