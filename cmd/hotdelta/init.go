package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"hotdelta/internal/config"
	"hotdelta/internal/errors"
	"hotdelta/internal/project"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize hotdelta configuration",
	Long:  "Creates .hotdelta/config.json and an example hotdelta.toml in the project root",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return errors.New(errors.InvalidInput, "resolve root", err)
	}
	out := cmd.OutOrStdout()

	configPath := filepath.Join(root, config.Dir, "config.json")
	if _, statErr := os.Stat(configPath); statErr == nil && !initForce {
		// Already initialized is success
		fmt.Fprintln(out, "hotdelta already initialized.")
		fmt.Fprintf(out, "Configuration at: %s\n", configPath)
		fmt.Fprintln(out, "\nRun 'hotdelta init --force' to reinitialize.")
		return nil
	}
	if err := config.DefaultConfig().Save(root); err != nil {
		return errors.New(errors.InternalError, "write configuration", err)
	}
	fmt.Fprintf(out, "Wrote %s\n", configPath)

	manifestPath := filepath.Join(root, project.ManifestFile)
	if _, statErr := os.Stat(manifestPath); statErr != nil || initForce {
		if err := project.WriteManifest(manifestPath, project.ExampleManifest()); err != nil {
			return errors.New(errors.InternalError, "write manifest", err)
		}
		fmt.Fprintf(out, "Wrote %s\n", manifestPath)
	}
	return nil
}
