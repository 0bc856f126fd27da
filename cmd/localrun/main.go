package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "localrun",
		Short: "Local Lambda control-plane emulator",
		Long: "Emulate the Lambda Runtime API on a local port so function binaries " +
			"built with lambdaflow can be exercised without AWS",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(invokeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
