package semantic

import (
	"hotdelta/internal/decl"
	"hotdelta/internal/match"
	"hotdelta/internal/partial"
	"hotdelta/internal/rude"
	"hotdelta/internal/synth"
)

// Synthesizer maps classified edits to semantic operations.
type Synthesizer struct {
	model synth.Model
}

// NewSynthesizer creates a synthesizer. A nil model selects synth.DefaultModel.
func NewSynthesizer(model synth.Model) *Synthesizer {
	if model == nil {
		model = synth.DefaultModel{}
	}
	return &Synthesizer{model: model}
}

// Synthesize returns the operations of every edit that is not rude, in edit
// order. Units with a rude edit produce no operations. Reorders produce
// none. Edits to a replaced type collapse into one replace operation.
func (s *Synthesizer) Synthesize(res *rude.Result, groups *partial.Groups) []Operation {
	b := &builder{
		model:     s.model,
		groups:    groups,
		eraser:    decl.DefaultEraser{},
		rudeUnits: map[string]bool{},
		replaced:  map[string]bool{},
		cascades:  map[string]*cascade{},
	}
	if groups != nil {
		b.eraser = groups.Arena(partial.New).Eraser()
	}
	for _, v := range res.Verdicts {
		if v.Outcome == rude.Rude {
			b.rudeUnits[v.Unit] = true
		}
	}
	for _, v := range res.Verdicts {
		if b.rudeUnits[v.Unit] {
			continue
		}
		if v.Replaced != nil {
			b.replace(v.Replaced)
			continue
		}
		b.edit(v.Edit)
	}
	return b.flatten()
}

type builder struct {
	model     synth.Model
	groups    *partial.Groups
	eraser    decl.Eraser
	rudeUnits map[string]bool
	replaced  map[string]bool
	cascades  map[string]*cascade
	entries   []entry
}

// entry is a direct operation or the position of a type's cascade.
type entry struct {
	op *Operation
	c  *cascade
}

// cascade collects the surfaces changed in one type.
type cascade struct {
	old, new *decl.Node
	surfaces map[synth.SurfaceChange]bool
	data     []Operation
}

func (b *builder) emit(op Operation) {
	b.entries = append(b.entries, entry{op: &op})
}

func (b *builder) cascade(old, new *decl.Node) *cascade {
	key := new.Identity().Key()
	c, ok := b.cascades[key]
	if !ok {
		c = &cascade{old: old, new: new, surfaces: map[synth.SurfaceChange]bool{}}
		b.cascades[key] = c
		b.entries = append(b.entries, entry{c: c})
	}
	if c.old == nil {
		c.old = old
	}
	return c
}

func (b *builder) touch(old, new *decl.Node, surfaces ...synth.SurfaceChange) *cascade {
	c := b.cascade(old, new)
	for _, s := range surfaces {
		c.surfaces[s] = true
	}
	return c
}

func newOp(kind OpKind, ref synth.SymbolRef, anchor *decl.Node) Operation {
	op := Operation{
		Kind:     kind,
		Target:   ref,
		Document: anchor.Document,
		Span:     anchor.Span,
		Unit:     partial.UnitKey(anchor),
	}
	if t := anchor.ContainingType(); t != nil {
		op.Container = t.DisplayName()
	}
	return op
}

func (b *builder) replace(t *decl.Node) {
	key := t.Identity().Key()
	if b.replaced[key] {
		return
	}
	b.replaced[key] = true
	anchor := t
	if b.groups != nil {
		if grp := b.groups.Of(partial.New, t); grp != nil {
			anchor = b.groups.Representative(grp, partial.New)
		}
	}
	b.emit(newOp(OpReplace, synth.RefOf(t), anchor))
}

func (b *builder) edit(e match.Edit) {
	switch e.Kind {
	case match.Insert:
		b.insert(e)
	case match.Delete:
		b.delete(e)
	case match.Update:
		b.update(e)
	case match.Move:
		b.emit(newOp(OpDelete, synth.RefOf(e.Old), e.Old))
		b.emit(newOp(OpInsert, synth.RefOf(e.New), e.New))
	}
}

func (b *builder) insert(e match.Edit) {
	n := e.New
	switch n.Kind {
	case decl.KindNamespace:
	case decl.KindTypeParameter:
		b.ownerUpdate(e.OldContainer, n.Parent())
	case decl.KindParameter:
		b.parameter(e, n)
	case decl.KindAccessor:
		b.emit(newOp(OpInsert, accessorRef(n), n))
	case decl.KindEnumMember:
		b.emit(newOp(OpInsert, fieldRef(n.Parent(), n.Name), n))
	default:
		t := n.ContainingType()
		kind := OpInsert
		if b.synthesizedIn(partial.Old, e.OldContainer, synth.RefOf(n)) {
			// A hand-written member replaces a generated one.
			kind = OpUpdate
		}
		if n.Kind == decl.KindConstructor && replacesImplicit(b.groups, partial.Old, e.OldContainer, n) {
			kind = OpUpdate
		}
		op := newOp(kind, synth.RefOf(n), n)
		if t != nil && t.TypeKind.IsRecord() && n.HoldsInstanceState() {
			c := b.dataMember(e.OldContainer, t, n)
			c.data = append(c.data, op)
		} else {
			b.emit(op)
		}
		if t != nil && n.Initializer != nil && isInitialized(n) {
			b.touch(e.OldContainer, t, initializerSurface(n))
		}
	}
}

func (b *builder) delete(e match.Edit) {
	o := e.Old
	switch o.Kind {
	case decl.KindNamespace:
	case decl.KindTypeParameter:
		b.ownerUpdate(o.Parent(), e.NewContainer)
	case decl.KindParameter:
		b.parameter(e, o)
	case decl.KindAccessor:
		if p := e.NewContainer; p != nil && isRecordDataMember(p) {
			op := newOp(OpUpdate, accessorRef(o), p)
			op.Stub = true
			b.emit(op)
			return
		}
		b.emit(newOp(OpDelete, accessorRef(o), o))
	case decl.KindEnumMember:
		b.emit(newOp(OpDelete, fieldRef(o.Parent(), o.Name), o))
	default:
		t := e.NewContainer
		kind := OpDelete
		anchor := o
		if b.synthesizedIn(partial.New, t, synth.RefOf(o)) ||
			(o.Kind == decl.KindConstructor && replacesImplicit(b.groups, partial.New, t, o)) {
			kind = OpUpdate
			if t != nil {
				anchor = t
			}
		}
		op := newOp(kind, synth.RefOf(o), anchor)
		if t != nil && t.Kind == decl.KindType && t.TypeKind.IsRecord() && o.HoldsInstanceState() {
			c := b.dataMember(o.ContainingType(), t, o)
			c.data = append(c.data, op)
		} else {
			b.emit(op)
		}
	}
}

func (b *builder) update(e match.Edit) {
	o, n, ch := e.Old, e.New, e.Changes
	switch n.Kind {
	case decl.KindNamespace:
	case decl.KindTypeParameter:
		b.ownerUpdate(o.Parent(), n.Parent())
	case decl.KindParameter:
		b.parameter(e, n)
	case decl.KindAccessor:
		b.emit(b.updateOp(accessorRef(n), o, n, ch))
	case decl.KindType:
		if ch.Any(match.ChangeParameters | match.ChangeSignature) {
			b.touch(o, n, synth.SurfacePositional)
		}
		if ch.Has(match.ChangeEnumMembers) {
			b.enumMembers(o, n)
		}
		const handled = match.ChangeParameters | match.ChangeSignature | match.ChangeCaptured |
			match.ChangeEnumMembers | match.ChangeDocument
		if ch&^handled != 0 {
			b.emit(newOp(OpUpdate, synth.RefOf(n), n))
		}
	case decl.KindDelegate:
		if ch.Has(match.ChangeParameters) {
			b.touch(o, n, synth.SurfaceDelegateParameters)
		}
		if ch&^(match.ChangeParameters|match.ChangeSignature) != 0 {
			b.emit(newOp(OpUpdate, synth.RefOf(n), n))
		}
	case decl.KindEnumMember:
		b.emit(newOp(OpUpdate, fieldRef(n.Parent(), n.Name), n))
	default:
		t := n.ContainingType()
		residual := ch
		if ch.Has(match.ChangeInitializer) && isInitialized(n) && t != nil {
			b.touch(e.OldContainer, t, initializerSurface(n))
			residual &^= match.ChangeInitializer
		}
		if t != nil && t.TypeKind.IsRecord() && ch.Has(match.ChangeType) && n.HoldsInstanceState() {
			b.dataMember(e.OldContainer, t, n)
		}
		if ch.Has(match.ChangeType) && retypable(n) && b.eraser.Erase(o.Type) != b.eraser.Erase(n.Type) {
			b.retype(o, n)
			return
		}
		if residual != 0 {
			b.emit(b.updateOp(synth.RefOf(n), o, n, ch))
		}
	}
}

// retypable reports whether a change of the declared type of n changes its
// runtime signature.
func retypable(n *decl.Node) bool {
	switch n.Kind {
	case decl.KindMethod, decl.KindProperty, decl.KindIndexer, decl.KindEvent, decl.KindField:
		return true
	}
	return false
}

// retype replaces a member whose runtime signature changed with its type:
// the old member and its accessor methods are deleted, the new ones
// inserted.
func (b *builder) retype(o, n *decl.Node) {
	b.emit(newOp(OpDelete, synth.RefOf(o), o))
	for _, acc := range o.ChildrenOf(decl.KindAccessor) {
		b.emit(newOp(OpDelete, accessorRef(acc), acc))
	}
	b.emit(newOp(OpInsert, synth.RefOf(n), n))
	for _, acc := range n.ChildrenOf(decl.KindAccessor) {
		b.emit(newOp(OpInsert, accessorRef(acc), acc))
	}
}

func (b *builder) updateOp(ref synth.SymbolRef, o, n *decl.Node, ch match.Change) Operation {
	op := newOp(OpUpdate, ref, n)
	if ch.Has(match.ChangeBody) {
		op.SyntaxMap = NewSyntaxMap(o.Body, n.Body)
	}
	return op
}

// ownerUpdate maps an edit of a parameter or type parameter to an update of
// the declaration owning it.
func (b *builder) ownerUpdate(old, new *decl.Node) {
	if new == nil {
		return
	}
	switch new.Kind {
	case decl.KindDelegate:
		b.touch(old, new, synth.SurfaceDelegateParameters)
	case decl.KindType:
		b.touch(old, new, synth.SurfacePositional)
	default:
		b.emit(newOp(OpUpdate, synth.RefOf(new), new))
	}
}

// parameter handles an edit of a parameter. Primary constructor parameters
// feed the cascade of their type; other parameters update their owner.
func (b *builder) parameter(e match.Edit, p *decl.Node) {
	oldOwner, newOwner := e.OldContainer, e.NewContainer
	if e.Kind == match.Update {
		oldOwner, newOwner = e.Old.Parent(), e.New.Parent()
	}
	if newOwner == nil || newOwner.Kind != decl.KindType {
		b.ownerUpdate(oldOwner, newOwner)
		return
	}
	t := newOwner
	if !t.TypeKind.IsRecord() {
		switch {
		case e.Kind == match.Update && e.Changes.Has(match.ChangeCaptured):
			b.touch(oldOwner, t, synth.SurfaceCapture)
		case e.Kind != match.Update && p.Captured:
			b.touch(oldOwner, t, synth.SurfacePositional, synth.SurfaceCapture)
		default:
			b.touch(oldOwner, t, synth.SurfacePositional)
		}
		return
	}
	c := b.touch(oldOwner, t, synth.SurfacePositional, synth.SurfaceInstanceState, synth.SurfacePrintable)
	ref := synth.SymbolRef{Kind: decl.KindProperty.String(), Container: t.Identity().Path(), Name: p.Name}
	switch e.Kind {
	case match.Insert:
		if !declaresMember(b.groups.FragmentsOf(partial.New, t), p.Name) {
			c.data = append(c.data, newOp(OpInsert, ref, p))
		}
	case match.Delete:
		if !declaresMember(b.groups.FragmentsOf(partial.Old, oldOwner), p.Name) {
			op := newOp(OpDelete, ref, p)
			op.Document, op.Span, op.Unit = t.Document, t.Span, partial.UnitKey(t)
			c.data = append(c.data, op)
		}
	case match.Update:
		if e.Changes.Has(match.ChangeType) {
			c.data = append(c.data, newOp(OpUpdate, ref, p))
		}
	}
}

// dataMember records a change to an instance data member of a record.
func (b *builder) dataMember(old, t, n *decl.Node) *cascade {
	c := b.touch(old, t, synth.SurfaceInstanceState)
	if n.Accessibility() == decl.AccessPublic {
		c.surfaces[synth.SurfacePrintable] = true
	}
	return c
}

func (b *builder) enumMembers(o, n *decl.Node) {
	olds := map[string]bool{}
	for _, m := range o.EnumMembers {
		olds[m.Name] = true
	}
	news := map[string]bool{}
	for _, m := range n.EnumMembers {
		news[m.Name] = true
		if !olds[m.Name] {
			b.emit(newOp(OpInsert, fieldRef(n, m.Name), n))
		}
	}
	for _, m := range o.EnumMembers {
		if !news[m.Name] {
			b.emit(newOp(OpDelete, fieldRef(n, m.Name), n))
		}
	}
}

// synthesizedIn reports whether ref is generated for type t on a side.
func (b *builder) synthesizedIn(side partial.Side, t *decl.Node, ref synth.SymbolRef) bool {
	return t != nil && synth.Replaces(b.model, b.groups.FragmentsOf(side, t), b.eraser, ref)
}

// flatten expands cascades in place and removes duplicates. Direct
// operations win over cascaded ones for the same symbol.
func (b *builder) flatten() []Operation {
	index := map[string]int{}
	var out []Operation
	add := func(op Operation) {
		if b.rudeUnits[op.Unit] {
			return
		}
		key := opKey(op)
		if i, ok := index[key]; ok {
			if out[i].SyntaxMap == nil {
				out[i].SyntaxMap = op.SyntaxMap
			}
			return
		}
		index[key] = len(out)
		out = append(out, op)
	}
	direct := map[string]bool{}
	for _, en := range b.entries {
		if en.op != nil {
			direct[opKey(*en.op)] = true
		}
	}
	for _, en := range b.entries {
		if en.op != nil {
			add(*en.op)
			continue
		}
		if b.replaced[en.c.new.Identity().Key()] {
			continue
		}
		for _, op := range b.expand(en.c) {
			if op.Kind == OpUpdate && direct[opKey(op)] {
				continue
			}
			add(op)
		}
	}
	return out
}

func opKey(op Operation) string { return string(op.Kind) + " " + op.Target.Key() }

// expand emits the operations of one type's cascade in the fixed order.
func (b *builder) expand(c *cascade) []Operation {
	deps := map[synth.SynthesizedMember]bool{}
	for s := range c.surfaces {
		for _, m := range synth.Dependencies[s] {
			deps[m] = true
		}
	}
	newFrags := b.groups.FragmentsOf(partial.New, c.new)
	var oldFrags []*decl.Node
	if c.old != nil {
		oldFrags = b.groups.FragmentsOf(partial.Old, c.old)
	}
	oldSyn := b.model.Synthesized(oldFrags, b.eraser)
	newSyn := b.model.Synthesized(newFrags, b.eraser)
	anchor := declaringFragment(newFrags)

	var out []Operation
	gen := func(kind OpKind, ref synth.SymbolRef) {
		op := newOp(kind, ref, anchor)
		op.Container = c.new.DisplayName()
		out = append(out, op)
	}
	dataDone := false
	for _, m := range synth.CascadeOrder {
		if m == synth.Deconstruct {
			out = append(out, c.data...)
			dataDone = true
		}
		if m == synth.ImplicitConstructor {
			out = append(out, b.initializerConstructors(c, newFrags)...)
		}
		if !deps[m] {
			continue
		}
		olds := refsOf(oldSyn, m)
		news := refsOf(newSyn, m)
		for _, r := range olds {
			if !containsRef(news, r) {
				gen(OpDelete, r)
			}
		}
		for _, r := range news {
			if containsRef(olds, r) {
				gen(OpUpdate, r)
			} else {
				gen(OpInsert, r)
			}
		}
	}
	if !dataDone {
		out = append(out, c.data...)
	}
	return out
}

// initializerConstructors updates the explicit constructors that run the
// changed member initializers: instance constructors that do not chain to
// this(...), or the static constructor.
func (b *builder) initializerConstructors(c *cascade, frags []*decl.Node) []Operation {
	instance, static := c.surfaces[synth.SurfaceInstanceInitializer], c.surfaces[synth.SurfaceStaticInitializer]
	if !instance && !static {
		return nil
	}
	var out []Operation
	for _, f := range frags {
		for _, ctor := range f.ChildrenOf(decl.KindConstructor) {
			switch {
			case ctor.IsStatic() && static:
			case !ctor.IsStatic() && instance && !ctor.ChainsToThis:
			default:
				continue
			}
			out = append(out, newOp(OpUpdate, synth.RefOf(ctor), ctor))
		}
	}
	return out
}

func refsOf(syn []synth.Synthesized, m synth.SynthesizedMember) []synth.SymbolRef {
	var out []synth.SymbolRef
	for _, s := range syn {
		if s.Member == m {
			out = append(out, s.Ref)
		}
	}
	return out
}

func containsRef(refs []synth.SymbolRef, r synth.SymbolRef) bool {
	for _, x := range refs {
		if x.Key() == r.Key() {
			return true
		}
	}
	return false
}

// declaringFragment returns the fragment with the primary constructor, or
// the first one.
func declaringFragment(frags []*decl.Node) *decl.Node {
	for _, f := range frags {
		if f.HasPrimaryConstructor() {
			return f
		}
	}
	return frags[0]
}

func declaresMember(frags []*decl.Node, name string) bool {
	for _, f := range frags {
		for _, m := range f.Members() {
			if m.Name == name && (m.Kind == decl.KindProperty || m.Kind == decl.KindField) {
				return true
			}
		}
	}
	return false
}

func replacesImplicit(groups *partial.Groups, side partial.Side, t, ctor *decl.Node) bool {
	if t == nil || (!ctor.IsStatic() && len(ctor.Parameters()) > 0) {
		return false
	}
	return partial.ImplicitConstructor(groups.FragmentsOf(side, t), ctor.IsStatic())
}

// isInitialized reports whether an initializer of n runs in a constructor.
func isInitialized(n *decl.Node) bool {
	return (n.Kind == decl.KindField || n.Kind == decl.KindProperty || n.Kind == decl.KindEvent) &&
		!n.Has(decl.ModConst)
}

func initializerSurface(n *decl.Node) synth.SurfaceChange {
	if n.IsStatic() {
		return synth.SurfaceStaticInitializer
	}
	return synth.SurfaceInstanceInitializer
}

func isRecordDataMember(p *decl.Node) bool {
	t := p.ContainingType()
	return p.Kind == decl.KindProperty && !p.IsStatic() && t != nil && t.TypeKind.IsRecord()
}

func fieldRef(t *decl.Node, name string) synth.SymbolRef {
	return synth.SymbolRef{Kind: decl.KindField.String(), Container: t.Identity().Path(), Name: name}
}

// accessorRef returns the runtime method of an accessor, e.g. get_P or
// set_Item.
func accessorRef(acc *decl.Node) synth.SymbolRef {
	p := acc.Parent()
	prefix := acc.AccessorKind.String()
	if acc.AccessorKind == decl.AccessorInit {
		prefix = "set"
	}
	name := p.Name
	if p.Kind == decl.KindIndexer {
		name = "Item"
	}
	id := p.Identity()
	return synth.SymbolRef{
		Kind:         decl.KindMethod.String(),
		Container:    id.Container,
		Name:         prefix + "_" + name,
		Signature:    id.Signature,
		HasSignature: true,
	}
}
