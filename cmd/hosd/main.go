// Command hosd runs the HOS synchronization engine: the query API, the bus
// consumers, and topic bootstrap.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var envFile string

	root := &cobra.Command{
		Use:           "hosd",
		Short:         "Driver HOS compliance and availability engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the environment")

	root.AddCommand(serveCmd(&envFile))
	root.AddCommand(consumeCmd(&envFile))
	root.AddCommand(topicsCmd(&envFile))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
