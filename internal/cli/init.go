package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"watercolumn/internal/config"
)

var (
	flagInitPath  string
	flagInitForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter " + config.DefaultFile + " config scaffold",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := flagInitPath
		if path == "" {
			path = config.DefaultFile
		}
		if !flagInitForce {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&flagInitPath, "path", "", "file to write (default ./"+config.DefaultFile+")")
	initCmd.Flags().BoolVar(&flagInitForce, "force", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}
