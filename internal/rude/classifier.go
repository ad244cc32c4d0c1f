// Package rude classifies structural edits as permitted, permitted because
// the host reported the capabilities they rely on, or rude. Classification
// only depends on the edit and the symbol model; capabilities are consulted
// last, so an edit permitted under a capability set stays permitted under
// every superset.
package rude

import (
	"sort"

	"hotdelta/internal/capability"
	"hotdelta/internal/decl"
	"hotdelta/internal/match"
	"hotdelta/internal/partial"
)

// Classifier applies the rule table to merged edit scripts.
type Classifier struct {
	model SymbolModel
}

// NewClassifier creates a classifier. A nil model selects DefaultModel.
func NewClassifier(model SymbolModel) *Classifier {
	if model == nil {
		model = DefaultModel{}
	}
	return &Classifier{model: model}
}

// finding is one requirement of an edit: a capability that must be present,
// or, without capability, an unconditional rude kind.
type finding struct {
	need capability.Name
	kind Kind
}

// check accumulates the findings of one edit.
type check struct {
	e      match.Edit
	model  SymbolModel
	groups *partial.Groups
	found  []finding
}

func (c *check) rude(k Kind) { c.found = append(c.found, finding{kind: k}) }

func (c *check) need(n capability.Name, k Kind) {
	c.found = append(c.found, finding{need: n, kind: k})
}

// Classify classifies every edit of a merged script.
func (cl *Classifier) Classify(s *match.Script, groups *partial.Groups, caps capability.Set) *Result {
	res := &Result{Verdicts: make([]Verdict, 0, len(s.Edits))}
	for _, e := range s.Edits {
		v := cl.classify(e, groups, caps)
		res.Verdicts = append(res.Verdicts, v)
		res.Diagnostics = append(res.Diagnostics, v.Rude...)
	}
	res.Summary = summarize(res.Verdicts)
	return res
}

func (cl *Classifier) classify(e match.Edit, groups *partial.Groups, caps capability.Set) Verdict {
	v := Verdict{Edit: e, Outcome: Permitted, Unit: partial.UnitKey(e.Node())}
	if e.Kind == match.Reorder {
		return v
	}
	c := &check{e: e, model: cl.model, groups: groups}
	c.need(capability.Baseline, NotSupportedByRuntime)

	r := lookup(e.Kind, e.DeclKind())
	if t := c.reloadableTarget(); t != nil {
		v.Replaced = t
		c.need(capability.NewTypeDefinition, ChangingReloadableTypeNotSupportedByRuntime)
	} else {
		r.fn(c)
	}
	v.Required, v.Rude = evaluate(c, caps, r.name)

	switch {
	case len(v.Rude) > 0:
		v.Outcome = Rude
	case v.Replaced != nil:
		v.Outcome = Replace
	case len(v.Required) > 1 || (len(v.Required) == 1 && v.Required[0] != capability.Baseline):
		v.Outcome = PermittedWithCapability
	}
	return v
}

// evaluate resolves findings against the capability set. Unconditional
// kinds win over missing capabilities; a missing Baseline is reported only
// when nothing more specific is.
func evaluate(c *check, caps capability.Set, rule string) ([]capability.Name, []Diagnostic) {
	needed := map[capability.Name]bool{}
	var unconditional, missing []finding
	for _, f := range c.found {
		switch {
		case f.need == "":
			unconditional = append(unconditional, f)
		case !caps.Has(f.need):
			missing = append(missing, f)
		default:
			needed[f.need] = true
		}
	}
	required := capability.Of(keys(needed)...).Names()

	report := unconditional
	if len(report) == 0 {
		report = missing
		if len(report) > 1 {
			filtered := report[:0:0]
			for _, f := range report {
				if f.kind != NotSupportedByRuntime {
					filtered = append(filtered, f)
				}
			}
			report = filtered
		}
	}
	var diags []Diagnostic
	seen := map[Kind]bool{}
	for _, f := range report {
		if seen[f.kind] {
			continue
		}
		seen[f.kind] = true
		diags = append(diags, c.diagnostic(f, rule))
	}
	if len(diags) > 0 {
		// Capabilities of a rude edit are not relied upon.
		required = nil
	}
	return required, diags
}

func keys(m map[capability.Name]bool) []capability.Name {
	out := make([]capability.Name, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (c *check) diagnostic(f finding, rule string) Diagnostic {
	n := c.e.Node()
	d := Diagnostic{
		Kind:               f.kind,
		Edit:               c.e.Kind.String(),
		DeclarationKind:    n.Kind.String(),
		Name:               n.Name,
		Display:            n.DisplayName(),
		RequiredCapability: f.need,
		Rule:               rule,
		Unit:               partial.UnitKey(n),
		Anchor: Anchor{
			Node:     n.ID(),
			New:      c.e.New != nil,
			Document: n.Document,
			Span:     n.Span,
		},
	}
	if t := n.ContainingType(); t != nil {
		d.Container = t.DisplayName()
	} else {
		d.Container = n.Namespace()
	}
	switch n.Kind {
	case decl.KindParameter, decl.KindTypeParameter, decl.KindAccessor:
		if p := n.Parent(); p != nil {
			d.Container = p.DisplayName()
		}
	}
	return d
}

// reloadableTarget returns the reloadable type replaced by the edit: the
// type itself for type-level updates, otherwise the closest containing type.
func (c *check) reloadableTarget() *decl.Node {
	n := c.e.Node()
	var t *decl.Node
	if c.e.Kind == match.Update && n.Kind.IsTypeLike() {
		t = n
	} else {
		t = n.ContainingType()
	}
	if t == nil || !c.reloadable(t) {
		return nil
	}
	if c.e.New == nil && c.groups != nil {
		// Deletes are anchored on the old arena; replace the surviving type.
		if grp := c.groups.Of(partial.Old, t); grp != nil {
			if rep := c.groups.Representative(grp, partial.New); rep != nil {
				return rep
			}
		}
	}
	return t
}

func (c *check) reloadable(t *decl.Node) bool {
	if c.model.IsReloadable(t) {
		return true
	}
	if c.groups == nil {
		return false
	}
	side := partial.New
	if c.e.New == nil {
		side = partial.Old
	}
	grp := c.groups.Of(side, t)
	if grp == nil {
		return false
	}
	for _, frag := range c.groups.Nodes(grp, side) {
		if c.model.IsReloadable(frag) {
			return true
		}
	}
	return false
}

// unitName is the display name of the outermost declaration around n.
func unitName(n *decl.Node) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		n = p
	}
	return n.DisplayName()
}

func summarize(verdicts []Verdict) *Summary {
	s := &Summary{TotalEdits: len(verdicts), ByKind: map[string]int{}}
	units := map[string]bool{}
	caps := map[capability.Name]bool{}
	for _, v := range verdicts {
		switch v.Outcome {
		case Permitted:
			s.Permitted++
		case PermittedWithCapability:
			s.Gated++
		case Rude:
			s.Rude++
			units[unitName(v.Edit.Node())] = true
		case Replace:
			s.Replaced++
		}
		for _, d := range v.Rude {
			s.ByKind[string(d.Kind)]++
		}
		for _, n := range v.Required {
			caps[n] = true
		}
	}
	for u := range units {
		s.RudeUnits = append(s.RudeUnits, u)
	}
	sort.Strings(s.RudeUnits)
	for _, n := range capability.Of(keys(caps)...).Names() {
		s.Capabilities = append(s.Capabilities, string(n))
	}
	return s
}
