package main

import (
	"os"

	"github.com/go-i2p/go-nms/lib/config"
	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"
)

var log = logger.GetGoI2PLogger()

var rootCmd = &cobra.Command{
	Use:           "nmsd",
	Short:         "Reliable network message service over UDP",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return config.InitConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&config.CfgFile, "config", "", "config file (default $HOME/.go-nms/config.yaml)")
	rootCmd.AddCommand(listenCmd, sendCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("nmsd failed")
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
