package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hotdelta/internal/analysis"
	"hotdelta/internal/capability"
	"hotdelta/internal/config"
	"hotdelta/internal/decl"
	"hotdelta/internal/discover"
	"hotdelta/internal/errors"
	"hotdelta/internal/project"
	"hotdelta/internal/rude"
	"hotdelta/internal/syntax"
)

// compilation is one independently analyzed set of documents.
type compilation struct {
	name    string
	sources []string
	exclude []string
	model   rude.SymbolModel
}

// wholeTree is used when a directory has no manifest.
var wholeTree = compilation{sources: []string{"."}}

// compilations returns the compilations declared by dir/hotdelta.toml, or
// the whole tree when there is none.
func compilations(dir string) ([]compilation, *project.Manifest, error) {
	m, err := project.LoadManifest(dir)
	if err != nil {
		return nil, nil, errors.New(errors.InvalidInput, "load manifest", err)
	}
	if m == nil || len(m.Compilations) == 0 {
		return []compilation{wholeTree}, m, nil
	}
	out := make([]compilation, 0, len(m.Compilations))
	for _, c := range m.Compilations {
		out = append(out, compilation{
			name:    c.Name,
			sources: c.Sources,
			exclude: c.Exclude,
			model:   c.Model(),
		})
	}
	return out, m, nil
}

// selectCompilation returns the named compilation, or the first one when
// name is empty.
func selectCompilation(dir, name string) (compilation, *project.Manifest, error) {
	comps, m, err := compilations(dir)
	if err != nil {
		return compilation{}, nil, err
	}
	if name == "" {
		return comps[0], m, nil
	}
	for _, c := range comps {
		if c.name == name {
			return c, m, nil
		}
	}
	return compilation{}, nil, errors.Newf(errors.InvalidInput, "compilation %q not declared in %s", name, project.ManifestFile)
}

// readTree reads the documents of c under dir, keyed by slash path relative
// to dir.
func readTree(dir string, c compilation) (map[string]string, error) {
	files, err := discover.Files(dir, c.sources, c.exclude)
	if err != nil {
		return nil, errors.New(errors.InvalidInput, "discover documents under "+dir, err)
	}
	texts := make(map[string]string, len(files))
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, errors.New(errors.InvalidInput, "read "+rel, err)
		}
		texts[rel] = string(data)
	}
	return texts, nil
}

// readSide reads one operand of diff: a directory, or a single file stored
// under name so that both operands of a file comparison share a path.
func readSide(path, name string, c compilation) (map[string]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.New(errors.InvalidInput, "stat "+path, err)
	}
	if info.IsDir() {
		return readTree(path, c)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.InvalidInput, "read "+path, err)
	}
	return map[string]string{name: string(data)}, nil
}

// loadTexts converts texts to declaration documents in path order.
func loadTexts(ctx context.Context, loader *syntax.Loader, texts map[string]string) ([]*decl.Document, error) {
	paths := make([]string, 0, len(texts))
	for p := range texts {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var docs []*decl.Document
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(errors.Canceled, "load cancelled", err)
		}
		loaded, err := loader.LoadBytes(ctx, p, []byte(texts[p]))
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

// underSources reports whether rel lies in one of the compilation sources.
func underSources(rel string, c compilation) bool {
	for _, s := range c.sources {
		s = strings.TrimSuffix(filepath.ToSlash(filepath.Clean(s)), "/")
		if s == "." || rel == s || strings.HasPrefix(rel, s+"/") {
			return true
		}
	}
	return false
}

// capabilityOptions are the capability flags shared by commands.
type capabilityOptions struct {
	profile string
	caps    string
}

// resolve returns the capability set and the name it was selected by.
// Explicit --caps wins over --profile, which wins over the manifest
// profile, which wins over configuration.
func (o capabilityOptions) resolve(root string, cfg *config.Config, m *project.Manifest) (capability.Set, string, error) {
	if o.caps != "" {
		for _, f := range strings.FieldsFunc(o.caps, func(r rune) bool { return strings.ContainsRune(", \t\n;", r) }) {
			if !capability.Name(f).IsKnown() {
				return capability.Set{}, "", errors.Newf(errors.InvalidInput, "unknown capability %q", f)
			}
		}
		return capability.Parse(o.caps), "custom", nil
	}

	c := *cfg
	switch {
	case o.profile != "":
		c.Capabilities.Profile = o.profile
	case m != nil && m.Profile != "":
		c.Capabilities.Profile = m.Profile
	}
	set, err := c.ResolveCapabilities(root)
	if err != nil {
		return capability.Set{}, "", errors.New(errors.InvalidInput, "resolve capabilities", err)
	}
	return set, c.Capabilities.Profile, nil
}

// newEngine creates the analysis engine from configuration.
func (e *env) newEngine() *analysis.Engine {
	return analysis.NewEngine(analysis.Options{
		Logger:         e.logger,
		Parallelism:    e.cfg.Analysis.Parallelism,
		MaxDiagnostics: e.cfg.Analysis.MaxDiagnostics,
	})
}
