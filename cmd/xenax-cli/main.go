package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "xenax-cli",
		Short: "Operate XENAX single-axis controllers over TCP",
		Long: `xenax-cli connects to Jenny Science XENAX servo controllers on their
ASCII service port and issues discrete motion, power and I/O commands.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newDiscoverCmd())
	rootCmd.AddCommand(newPositionCmd())
	rootCmd.AddCommand(newMoveCmd())
	rootCmd.AddCommand(newJogCmd())
	rootCmd.AddCommand(newPowerCmd())
	rootCmd.AddCommand(newInputCmd())
	rootCmd.AddCommand(newOutputCmd())
	rootCmd.AddCommand(newExecCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
