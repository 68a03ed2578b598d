// Command redisq bundles operator commands for a redisq deployment:
// inspecting queue lengths, flushing queues, enqueueing raw task payloads
// and watching queue depth until interrupted.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "redisq",
		Short:        "Operate redisq task queues",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to the yaml config file")

	cmd.AddCommand(
		infoCommand(&cfgFile),
		flushCommand(&cfgFile),
		enqueueCommand(&cfgFile),
		watchCommand(&cfgFile),
	)
	return cmd
}
