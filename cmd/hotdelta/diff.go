package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"hotdelta/internal/analysis"
	"hotdelta/internal/diff"
	"hotdelta/internal/errors"
	"hotdelta/internal/report"
	"hotdelta/internal/syntax"
)

var (
	diffCaps      capabilityOptions
	diffPatchPath string
	diffBaseDir   string
)

var diffCmd = &cobra.Command{
	Use:   "diff [OLD NEW]",
	Short: "Classify the edits between two versions of a program",
	Long: `Compare two versions of a program and report rude edits and the semantic
operations a hot reload would apply.

OLD and NEW are .cs files, YAML declaration fixtures, or directories. When
the operands are directories and the project root has a hotdelta.toml, every
declared compilation is analyzed on its own.

With --patch, the new version is the base directory with a unified diff
applied to it.

Exit status is 1 when rude edits were found and 2 on errors.

Examples:
  hotdelta diff old/Program.cs new/Program.cs
  hotdelta diff --profile net6 before/ after/
  hotdelta diff --caps "Baseline AddMethodToExistingType" old.yaml new.yaml
  git diff | hotdelta diff --patch - --base .`,
	Args: func(cmd *cobra.Command, args []string) error {
		if diffPatchPath != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffCaps.profile, "profile", "", "Capability profile of the target runtime")
	diffCmd.Flags().StringVar(&diffCaps.caps, "caps", "", "Explicit capability list, overrides --profile")
	diffCmd.Flags().StringVar(&diffPatchPath, "patch", "", "Unified diff producing the new version (- for stdin)")
	diffCmd.Flags().StringVar(&diffBaseDir, "base", ".", "Directory the patch applies to")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	var reqs []analysis.Request
	if diffPatchPath != "" {
		reqs, err = patchRequests(ctx, e, diffBaseDir, diffPatchPath)
	} else {
		reqs, err = diffRequests(ctx, e, args[0], args[1])
	}
	if err != nil {
		return err
	}

	results, err := e.newEngine().AnalyzeBatch(ctx, reqs)
	if err != nil {
		return err
	}
	if len(results) == 1 {
		err = report.Write(cmd.OutOrStdout(), results[0], e.format)
	} else {
		err = report.WriteBatch(cmd.OutOrStdout(), results, e.format)
	}
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.HasRudeEdits() {
			return errRudeEdits
		}
	}
	return nil
}

// diffRequests builds one request per compilation from two operands.
func diffRequests(ctx context.Context, e *env, oldPath, newPath string) ([]analysis.Request, error) {
	comps := []compilation{wholeTree}
	caps, _, err := diffCaps.resolve(e.root, e.cfg, nil)
	if err != nil {
		return nil, err
	}
	if info, statErr := os.Stat(oldPath); statErr == nil && info.IsDir() {
		cs, mf, err := compilations(e.root)
		if err != nil {
			return nil, err
		}
		comps = cs
		if caps, _, err = diffCaps.resolve(e.root, e.cfg, mf); err != nil {
			return nil, err
		}
	}

	loader := syntax.NewLoader()
	name := filepath.ToSlash(filepath.Base(newPath))
	reqs := make([]analysis.Request, 0, len(comps))
	for _, c := range comps {
		oldTexts, err := readSide(oldPath, name, c)
		if err != nil {
			return nil, err
		}
		newTexts, err := readSide(newPath, name, c)
		if err != nil {
			return nil, err
		}
		req, err := request(ctx, loader, c, oldTexts, newTexts)
		if err != nil {
			return nil, err
		}
		req.Capabilities = caps
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// patchRequests builds one request per compilation of base, with the new
// version obtained by applying the patch to the whole tree.
func patchRequests(ctx context.Context, e *env, base, patchPath string) ([]analysis.Request, error) {
	var (
		data []byte
		err  error
	)
	if patchPath == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(patchPath)
	}
	if err != nil {
		return nil, errors.New(errors.InvalidInput, "read patch", err)
	}
	patch, err := diff.ParseGitDiff(string(data))
	if err != nil {
		return nil, err
	}

	comps, m, err := compilations(base)
	if err != nil {
		return nil, err
	}
	caps, _, err := diffCaps.resolve(e.root, e.cfg, m)
	if err != nil {
		return nil, err
	}

	all, err := readTree(base, wholeTree)
	if err != nil {
		return nil, err
	}
	applied, touched, err := diff.Apply(all, patch)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Patch applied", "files", len(touched), "base", base)

	loader := syntax.NewLoader()
	reqs := make([]analysis.Request, 0, len(comps))
	for _, c := range comps {
		oldTexts, err := readTree(base, c)
		if err != nil {
			return nil, err
		}
		newTexts := make(map[string]string, len(oldTexts))
		for p, text := range applied {
			if _, ok := oldTexts[p]; ok || (underSources(p, c) && syntax.Supported(p)) {
				newTexts[p] = text
			}
		}
		req, err := request(ctx, loader, c, oldTexts, newTexts)
		if err != nil {
			return nil, err
		}
		req.Capabilities = caps
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func request(ctx context.Context, loader *syntax.Loader, c compilation, oldTexts, newTexts map[string]string) (analysis.Request, error) {
	oldDocs, err := loadTexts(ctx, loader, oldTexts)
	if err != nil {
		return analysis.Request{}, err
	}
	newDocs, err := loadTexts(ctx, loader, newTexts)
	if err != nil {
		return analysis.Request{}, err
	}
	return analysis.Request{Name: c.name, Old: oldDocs, New: newDocs, Model: c.model}, nil
}
