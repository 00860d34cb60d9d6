package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clack/config"
	"clack/doctor"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved sound configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sound, err := config.Load(settings.Config)
		if err != nil {
			return err
		}
		out, err := sound.YAML()
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n", sound.Path)
		fmt.Print(string(out))
		return nil
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run system diagnostics",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		code := doctor.Run(settings.Config)
		if code != 0 {
			os.Exit(code)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and exit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clack %s\n", version)
	},
}
