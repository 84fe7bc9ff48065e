package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"surgeq/internal/dummy"
	"surgeq/internal/logging"
)

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run a local target server to try SurgeQ against",
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		errorRate, _ := cmd.Flags().GetFloat64("error-rate")

		server := dummy.Start(dummy.ServerConfig{Port: port, ErrorRate: errorRate}, logging.NewLogger("dummy"))

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		_ = server.Close()
	},
}

func init() {
	dummyCmd.Flags().IntP("port", "p", 8080, "Port to run dummy server on")
	dummyCmd.Flags().Float64("error-rate", 0.2, "Share of /error requests answered with 500")
}
