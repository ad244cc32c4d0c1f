package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"hotdelta/internal/capability"
	"hotdelta/internal/errors"
	"hotdelta/internal/report"
)

var capsProfile string

var capsCmd = &cobra.Command{
	Use:   "caps",
	Short: "List capability profiles",
	Long: `List the capability profiles known to hotdelta: the built-in profiles and,
when capabilities.profilesFile is configured, the profiles of that file.`,
	Args: cobra.NoArgs,
	RunE: runCaps,
}

func init() {
	capsCmd.Flags().StringVar(&capsProfile, "profile", "", "Show only this profile")
	rootCmd.AddCommand(capsCmd)
}

func runCaps(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	profiles := capability.DefaultProfiles()
	if path := e.cfg.Capabilities.ProfilesFile; path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(e.root, path)
		}
		if profiles, err = capability.LoadProfiles(path); err != nil {
			return errors.New(errors.InvalidInput, "load capability profiles", err)
		}
	}

	names := profiles.Names()
	if capsProfile != "" {
		if _, ok := profiles.Get(capsProfile); !ok {
			return errors.Newf(errors.InvalidInput, "unknown profile %q", capsProfile)
		}
		names = []string{capsProfile}
	}
	return report.WriteProfiles(cmd.OutOrStdout(), profiles, names, e.format)
}
