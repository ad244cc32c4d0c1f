// Package report renders analysis results, sessions and capability profiles
// for the command line, as colored text or deterministic JSON.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"hotdelta/internal/analysis"
	"hotdelta/internal/capability"
	"hotdelta/internal/errors"
	"hotdelta/internal/storage"
)

// Format selects the rendering.
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatHuman:
		return FormatHuman, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", errors.Newf(errors.InvalidInput, "unsupported format %q (must be human or json)", s)
}

var (
	headerColor = color.New(color.Bold)
	rudeColor   = color.New(color.FgRed, color.Bold)
	okColor     = color.New(color.FgGreen, color.Bold)
	opColor     = color.New(color.FgCyan)
	dimColor    = color.New(color.Faint)
)

// Write renders one result.
func Write(w io.Writer, res *analysis.Result, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, res)
	}
	writeHuman(w, res)
	return nil
}

// WriteBatch renders the results of several compilations.
func WriteBatch(w io.Writer, results []*analysis.Result, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, results)
	}
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writeHuman(w, res)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := DeterministicEncodeIndented(v, "  ")
	if err != nil {
		return errors.New(errors.InternalError, "encoding report", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func writeHuman(w io.Writer, res *analysis.Result) {
	title := "analysis"
	if res.Name != "" {
		title = res.Name
	}
	headerColor.Fprintf(w, "%s", title)
	dimColor.Fprintf(w, "  run %s  %s\n", res.RunID, res.Duration.Round(time.Microsecond))
	caps := "(none)"
	if len(res.Capabilities) > 0 {
		caps = strings.Join(res.Capabilities, " ")
	}
	fmt.Fprintf(w, "capabilities: %s\n", caps)

	if len(res.Edits) == 0 {
		okColor.Fprintln(w, "no changes")
		return
	}

	fmt.Fprintf(w, "\nedits (%d):\n", len(res.Edits))
	for _, e := range res.Edits {
		fmt.Fprintf(w, "  %s\n", e)
	}

	if len(res.Diagnostics) > 0 {
		fmt.Fprintf(w, "\nrude edits (%d):\n", len(res.Diagnostics))
		for _, d := range res.Diagnostics {
			loc := d.Anchor.Document
			if d.Anchor.Span.StartLine > 0 {
				loc = fmt.Sprintf("%s:%d", loc, d.Anchor.Span.StartLine)
			}
			rudeColor.Fprintf(w, "  %s", d.Kind)
			fmt.Fprintf(w, " %s", d.Message())
			if loc != "" {
				dimColor.Fprintf(w, " (%s)", loc)
			}
			fmt.Fprintln(w)
		}
		if res.Truncated {
			dimColor.Fprintln(w, "  ... more diagnostics omitted")
		}
	}

	if len(res.Operations) > 0 {
		fmt.Fprintf(w, "\noperations (%d):\n", len(res.Operations))
		for _, op := range res.Operations {
			opColor.Fprintf(w, "  %s\n", op)
		}
	}

	if len(res.Units) > 1 {
		fmt.Fprintln(w, "\nunits:")
		for _, u := range res.Units {
			state := okColor.Sprint("ok")
			if u.Rude {
				state = rudeColor.Sprint("rude")
			}
			fmt.Fprintf(w, "  %-30s %s edits=%d operations=%d\n", u.Name, state, u.Edits, u.Operations)
		}
	}

	fmt.Fprintln(w)
	if res.HasRudeEdits() {
		rudeColor.Fprintf(w, "%d rude edit(s)", res.Summary.Rude)
		fmt.Fprintf(w, "; %s cannot be applied\n", unitList(res.Summary.RudeUnits))
		return
	}
	okColor.Fprintf(w, "ok")
	fmt.Fprintf(w, ": %d edit(s), %d operation(s)\n", res.Summary.TotalEdits, len(res.Operations))
}

func unitList(units []string) string {
	if len(units) == 0 {
		return "the change"
	}
	return strings.Join(units, ", ")
}

// WriteSessions renders the session list.
func WriteSessions(w io.Writer, sessions []*storage.Session, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no sessions")
		return nil
	}
	for _, s := range sessions {
		headerColor.Fprintf(w, "%s", shortID(s.ID))
		fmt.Fprintf(w, "  %-16s %s  profile=%s documents=%d", s.Name, s.Root, s.Profile, s.Documents)
		dimColor.Fprintf(w, "  updated %s\n", s.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}

// WriteSession renders one session with its recent runs.
func WriteSession(w io.Writer, s *storage.Session, runs []*storage.Run, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, struct {
			Session *storage.Session `json:"session"`
			Runs    []*storage.Run   `json:"runs"`
		}{s, runs})
	}
	headerColor.Fprintf(w, "session %s\n", s.ID)
	if s.Name != "" {
		fmt.Fprintf(w, "name:         %s\n", s.Name)
	}
	fmt.Fprintf(w, "root:         %s\n", s.Root)
	fmt.Fprintf(w, "profile:      %s\n", s.Profile)
	fmt.Fprintf(w, "capabilities: %s\n", s.Capabilities)
	fmt.Fprintf(w, "documents:    %d\n", s.Documents)
	fmt.Fprintf(w, "created:      %s\n", s.CreatedAt.Local().Format(time.DateTime))
	if len(runs) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nruns:")
	for _, r := range runs {
		state := okColor.Sprint("applied")
		switch {
		case r.Rude > 0:
			state = rudeColor.Sprint("rude")
		case !r.Applied:
			state = dimColor.Sprint("pending")
		}
		fmt.Fprintf(w, "  %s  %s  %-8s edits=%d rude=%d operations=%d\n",
			shortID(r.ID), r.CreatedAt.Local().Format(time.DateTime), state, r.Edits, r.Rude, r.Operations)
	}
	return nil
}

// WriteProfiles renders capability profiles.
func WriteProfiles(w io.Writer, profiles *capability.Profiles, names []string, format Format) error {
	if format == FormatJSON {
		out := make(map[string][]string, len(names))
		for _, name := range names {
			set, _ := profiles.Get(name)
			caps := make([]string, 0, set.Len())
			for _, n := range set.Names() {
				caps = append(caps, string(n))
			}
			out[name] = caps
		}
		return writeJSON(w, out)
	}
	for _, name := range names {
		set, _ := profiles.Get(name)
		headerColor.Fprintf(w, "%s", name)
		fmt.Fprintf(w, " (%d)\n", set.Len())
		for _, n := range set.Names() {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
