package rude

import (
	"slices"
	"strings"

	"hotdelta/internal/capability"
	"hotdelta/internal/decl"
	"hotdelta/internal/match"
	"hotdelta/internal/partial"
	"hotdelta/internal/synth"
)

type ruleKey struct {
	edit match.EditKind
	kind decl.Kind
}

type rule struct {
	name string
	fn   func(c *check)
}

// rules covers every (edit kind, declaration kind) pair; see TestRuleTableIsExhaustive.
var rules = map[ruleKey]rule{}

func register(edit match.EditKind, fn func(c *check), kinds ...decl.Kind) {
	for _, k := range kinds {
		rules[ruleKey{edit, k}] = rule{name: edit.String() + "/" + k.String(), fn: fn}
	}
}

func init() {
	members := []decl.Kind{decl.KindMethod, decl.KindConstructor, decl.KindProperty, decl.KindIndexer, decl.KindEvent}

	register(match.Insert, insertType, decl.KindType, decl.KindDelegate)
	register(match.Insert, insertMember, members...)
	register(match.Insert, insertField, decl.KindField)
	register(match.Insert, insertAccessor, decl.KindAccessor)
	register(match.Insert, insertParameter, decl.KindParameter)
	register(match.Insert, insertEnumMember, decl.KindEnumMember)
	register(match.Insert, noRule, decl.KindNamespace, decl.KindTypeParameter)

	register(match.Delete, deleteUnconditionally, decl.KindType, decl.KindDelegate, decl.KindField, decl.KindEnumMember)
	register(match.Delete, deleteMember, members...)
	register(match.Delete, deleteAccessor, decl.KindAccessor)
	register(match.Delete, deleteParameter, decl.KindParameter)
	register(match.Delete, noRule, decl.KindNamespace, decl.KindTypeParameter)

	register(match.Update, updateDeclaration, decl.AllKinds...)
	register(match.Move, move, decl.AllKinds...)
	register(match.Reorder, noRule, decl.AllKinds...)
}

func lookup(edit match.EditKind, kind decl.Kind) rule {
	if r, ok := rules[ruleKey{edit, kind}]; ok {
		return r
	}
	return rule{name: "unknown", fn: func(c *check) { c.rude(NotSupportedByRuntime) }}
}

func noRule(*check) {}

func deleteUnconditionally(c *check) { c.rude(Delete) }

func move(c *check) {
	if c.e.Old.Namespace() != c.e.New.Namespace() {
		c.rude(ChangingNamespace)
		return
	}
	c.rude(Move)
}

// Inserts

func insertType(c *check) {
	c.need(capability.NewTypeDefinition, InsertNotSupportedByRuntime)
	if p := c.e.New.Parent(); p != nil && genericContext(p) {
		c.need(capability.GenericAddMethodToExistingType, UpdatingGenericNotSupportedByRuntime)
	}
}

func insertMember(c *check) {
	n := c.e.New
	switch {
	case n.Kind == decl.KindMethod && n.MethodKind == decl.MethodDestructor:
		c.rude(Insert)
		return
	case n.Has(decl.ModExtern) || n.HasAttribute("DllImport"):
		c.rude(InsertExtern)
		return
	case n.Kind == decl.KindConstructor && c.replacesImplicitConstructor(n),
		c.replacesSynthesized(partial.Old, c.e.OldContainer, n):
		c.updateCode(nil, n)
		return
	}
	if inInterface(n) {
		if isInterfaceVirtual(n) {
			c.rude(InsertVirtual)
			return
		}
		c.need(capability.AddNonVirtualMemberToInterface, InsertIntoInterface)
	} else if n.IsVirtualSlot() {
		c.rude(InsertVirtual)
		return
	}
	c.need(capability.AddMethodToExistingType, InsertNotSupportedByRuntime)
	if n.ExplicitInterface != "" {
		c.need(capability.AddExplicitInterfaceImplementation, InsertNotSupportedByRuntime)
	}
	if n.IsStateMachine() {
		c.need(capability.NewTypeDefinition, InsertNotSupportedByRuntime)
	}
	if genericContext(n) {
		c.need(capability.GenericAddMethodToExistingType, UpdatingGenericNotSupportedByRuntime)
	}
	switch {
	case n.HoldsInstanceState():
		c.instanceState(n.ContainingType())
	case n.IsStatic() && n.IsAutoProperty():
		c.staticState(n)
	}
}

func insertField(c *check) {
	n := c.e.New
	if inInterface(n) {
		if !n.IsStatic() {
			c.rude(InsertIntoInterface)
			return
		}
		c.need(capability.AddNonVirtualMemberToInterface, InsertIntoInterface)
	}
	if n.IsStatic() {
		c.staticState(n)
		return
	}
	c.instanceState(n.ContainingType())
}

func insertAccessor(c *check) {
	p := c.e.New.Parent()
	if p != nil && (p.IsVirtualSlot() || (inInterface(p) && isInterfaceVirtual(p))) {
		c.rude(InsertVirtual)
		return
	}
	c.need(capability.AddMethodToExistingType, InsertNotSupportedByRuntime)
	if genericContext(c.e.New) {
		c.need(capability.GenericAddMethodToExistingType, UpdatingGenericNotSupportedByRuntime)
	}
}

// insertParameter handles primary constructor parameters; parameters of
// members are covered by the owner's update.
func insertParameter(c *check) {
	n := c.e.New
	t := n.Parent()
	if t == nil || t.Kind != decl.KindType {
		return
	}
	if t.TypeKind.IsRecord() {
		// The record gains a property.
		c.need(capability.AddMethodToExistingType, InsertNotSupportedByRuntime)
	}
	if n.HoldsInstanceState() {
		c.instanceState(t)
	}
}

func insertEnumMember(c *check) {
	c.need(capability.AddStaticFieldToExistingType, InsertNotSupportedByRuntime)
}

// Deletes

func deleteMember(c *check) {
	o := c.e.Old
	switch {
	case o.Kind == decl.KindConstructor && c.implicitConstructorReplaces(o),
		c.replacesSynthesized(partial.New, c.e.NewContainer, o):
		c.updateCode(o, nil)
		return
	case inInterface(o), o.IsVirtualSlot(), o.Has(decl.ModExtern), o.MethodKind == decl.MethodDestructor:
		c.rude(Delete)
		return
	}
	c.need(capability.AddMethodToExistingType, DeleteNotSupportedByRuntime)
	if genericContext(o) {
		c.need(capability.GenericAddMethodToExistingType, UpdatingGenericNotSupportedByRuntime)
	}
}

func deleteAccessor(c *check) {
	p := c.e.Old.Parent()
	if p != nil && (p.IsVirtualSlot() || inInterface(p)) {
		c.rude(Delete)
		return
	}
	c.need(capability.AddMethodToExistingType, DeleteNotSupportedByRuntime)
	if genericContext(c.e.Old) {
		c.need(capability.GenericAddMethodToExistingType, UpdatingGenericNotSupportedByRuntime)
	}
}

func deleteParameter(c *check) {
	t := c.e.Old.Parent()
	if t == nil || t.Kind != decl.KindType || !t.TypeKind.IsRecord() {
		return
	}
	// The record loses a property.
	c.need(capability.AddMethodToExistingType, DeleteNotSupportedByRuntime)
}

// Updates

func updateDeclaration(c *check) {
	o, n, ch := c.e.Old, c.e.New, c.e.Changes
	if ch.Has(match.ChangeAttributes) {
		c.attributes(o.Attributes, n.Attributes)
	}
	if ch.Has(match.ChangeAccessibility) && (significantAccessibility(o) || significantAccessibility(n)) {
		c.rude(ChangingAccessibility)
	}
	if ch.Has(match.ChangeModifiers) {
		c.modifiers(o, n)
	}
	if ch.Has(match.ChangeTypeKind) {
		c.rude(TypeUpdate)
	}
	if ch.Has(match.ChangeType) && c.model.Erase(o.Type) != c.model.Erase(n.Type) {
		c.typeChange(n)
	}
	if ch.Any(match.ChangeParameters | match.ChangeSignature) {
		c.parameterList(o, n, ch)
	}
	if ch.Has(match.ChangeTypeParameters) {
		if n.Kind == decl.KindMethod {
			c.need(capability.GenericUpdateMethod, RenamingNotSupportedByRuntime)
			c.need(capability.UpdateParameters, RenamingNotSupportedByRuntime)
		} else {
			c.rude(RenamingNotSupportedByRuntime)
		}
	}
	if ch.Has(match.ChangeBody) || o.IsStateMachine() != n.IsStateMachine() {
		c.updateCode(o, n)
	}
	if ch.Has(match.ChangeInitializer) {
		c.initializer(o, n)
	}
	if ch.Has(match.ChangeBases) {
		c.rude(BaseTypeOrInterfaceUpdate)
	}
	if ch.Has(match.ChangeConstraints) {
		c.rude(ChangingConstraints)
	}
	if ch.Has(match.ChangeVariance) {
		c.rude(ChangingVariance)
	}
	if ch.Has(match.ChangeEnumMembers) {
		c.enumMembers(o.EnumMembers, n.EnumMembers)
	}
	if ch.Has(match.ChangeCaptured) {
		c.captured(n)
	}
	if genericContext(n) {
		c.need(capability.GenericUpdateMethod, UpdatingGenericNotSupportedByRuntime)
	}
}

func (c *check) attributes(olds, news []decl.Attribute) {
	changed := false
	for _, a := range symmetricDifference(olds, news) {
		if IsNonCustomAttribute(a) {
			c.rude(ChangingNonCustomAttribute)
			return
		}
		changed = true
	}
	if changed {
		c.need(capability.ChangeCustomAttributes, ChangingAttributesNotSupportedByRuntime)
	}
}

func symmetricDifference(a, b []decl.Attribute) []decl.Attribute {
	var out []decl.Attribute
	for _, x := range a {
		if !slices.Contains(b, x) {
			out = append(out, x)
		}
	}
	for _, x := range b {
		if !slices.Contains(a, x) {
			out = append(out, x)
		}
	}
	return out
}

// significantModifiers change the runtime shape of a declaration.
const significantModifiers = decl.ModStatic | decl.ModAbstract | decl.ModVirtual | decl.ModOverride |
	decl.ModSealed | decl.ModRef | decl.ModExtern | decl.ModConst | decl.ModVolatile

// attributeModifiers are emitted as custom attributes.
const attributeModifiers = decl.ModRequired | decl.ModParams | decl.ModThis

func (c *check) modifiers(o, n *decl.Node) {
	diff := (o.Modifiers ^ n.Modifiers).Without(decl.AccessMask)
	significant := significantModifiers
	if n.Kind == decl.KindField || (n.Kind != decl.KindType && inValueType(n)) {
		significant |= decl.ModReadonly
	}
	if n.Kind == decl.KindType && n.TypeKind.IsValueType() {
		significant |= decl.ModReadonly
	}
	if diff.Any(significant) {
		c.rude(ModifiersUpdate)
	}
	if diff.Any(attributeModifiers) {
		c.need(capability.ChangeCustomAttributes, ChangingAttributesNotSupportedByRuntime)
	}
}

// typeChange handles a declared type whose erasure changed: the member is
// deleted and reinserted under the new signature.
func (c *check) typeChange(n *decl.Node) {
	switch n.Kind {
	case decl.KindDelegate, decl.KindType:
		c.rude(TypeUpdate)
	case decl.KindField:
		t := n.ContainingType()
		if inInterface(n) || (t != nil && (t.TypeKind.IsValueType() || t.Layout() != decl.LayoutAuto)) {
			c.rude(TypeUpdate)
			return
		}
		if n.IsStatic() {
			c.need(capability.AddStaticFieldToExistingType, TypeUpdate)
		} else {
			c.need(capability.AddInstanceFieldToExistingType, TypeUpdate)
		}
	case decl.KindMethod, decl.KindProperty, decl.KindIndexer, decl.KindEvent:
		if n.IsVirtualSlot() || inInterface(n) {
			c.rude(TypeUpdate)
			return
		}
		c.need(capability.AddMethodToExistingType, TypeUpdate)
		switch {
		case n.HoldsInstanceState():
			c.instanceState(n.ContainingType())
		case n.IsStatic() && n.IsAutoProperty():
			c.staticState(n)
		}
	case decl.KindParameter:
		t := n.Parent()
		if t == nil || t.Kind != decl.KindType {
			return
		}
		c.need(capability.AddMethodToExistingType, TypeUpdate)
		if n.HoldsInstanceState() {
			c.instanceState(t)
		}
	}
}

// parameterList classifies changes to the parameter list of an owner whose
// identity is unchanged: renames on members, and the primary constructor of
// a type.
func (c *check) parameterList(o, n *decl.Node, ch match.Change) {
	switch n.Kind {
	case decl.KindType:
		if erasedParameters(c.model, o) != erasedParameters(c.model, n) {
			// The primary constructor is replaced.
			c.need(capability.AddMethodToExistingType, InsertNotSupportedByRuntime)
		} else if ch.Has(match.ChangeParameters) {
			c.need(capability.UpdateParameters, RenamingNotSupportedByRuntime)
		}
	case decl.KindMethod, decl.KindConstructor, decl.KindIndexer, decl.KindDelegate:
		if ch.Has(match.ChangeParameters) {
			c.need(capability.UpdateParameters, RenamingNotSupportedByRuntime)
		}
	}
}

func erasedParameters(m SymbolModel, n *decl.Node) string {
	params := n.Parameters()
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, decl.ParameterTypeSignature(p, m))
	}
	return strings.Join(parts, ",")
}

// updateCode classifies a change to executable code. o or n is nil when an
// explicit constructor replaces, or is replaced by, the implicit one.
func (c *check) updateCode(o, n *decl.Node) {
	var ob, nb *decl.Body
	if o != nil {
		ob = o.Body
	}
	if n != nil {
		nb = n.Body
	}
	if ob.Has(decl.FeatureStackAlloc) || nb.Has(decl.FeatureStackAlloc) {
		c.rude(StackAllocUpdate)
	}
	if nb.Has(decl.FeatureDataBlob) {
		c.need(capability.AddFieldRva, NotSupportedByRuntime)
	}
	if o == nil || n == nil {
		if genericContext(c.e.Node()) {
			c.need(capability.GenericUpdateMethod, UpdatingGenericNotSupportedByRuntime)
		}
		return
	}
	switch {
	case !o.IsAsync() && n.IsAsync():
		c.need(capability.NewTypeDefinition, MakeMethodAsyncNotSupportedByRuntime)
	case o.IsAsync() && !n.IsAsync():
		c.rude(ChangingFromAsynchronousToSynchronous)
	}
	switch {
	case !o.IsIterator() && n.IsIterator():
		c.need(capability.NewTypeDefinition, MakeMethodIteratorNotSupportedByRuntime)
	case o.IsIterator() && !n.IsIterator():
		c.rude(ChangingFromIteratorToNonIterator)
	}
	if o.IsStateMachine() && n.IsStateMachine() && c.e.Changes.Has(match.ChangeBody) {
		c.need(capability.AddInstanceFieldToExistingType, UpdatingStateMachineMethodNotSupportedByRuntime)
	}
}

func (c *check) initializer(o, n *decl.Node) {
	switch {
	case n.Kind == decl.KindParameter, n.Has(decl.ModConst):
		c.rude(InitializerUpdate)
		return
	case n.Kind == decl.KindEnumMember:
		c.rude(InitializerUpdate)
		return
	}
	if o.Initializer.Has(decl.FeatureStackAlloc) || n.Initializer.Has(decl.FeatureStackAlloc) {
		c.rude(StackAllocUpdate)
	}
	if n.Initializer.Has(decl.FeatureDataBlob) {
		c.need(capability.AddFieldRva, NotSupportedByRuntime)
	}
}

func (c *check) enumMembers(olds, news []decl.EnumMember) {
	ov, nv := enumValues(olds), enumValues(news)
	for name, v := range ov {
		nvv, ok := nv[name]
		switch {
		case !ok:
			c.rude(Delete)
		case nvv != v:
			c.rude(InitializerUpdate)
		}
	}
	for name := range nv {
		if _, ok := ov[name]; !ok {
			c.need(capability.AddStaticFieldToExistingType, InsertNotSupportedByRuntime)
		}
	}
}

// enumValues returns the value expression of every member, spelling
// implicit values as an increment chain from the last explicit one.
func enumValues(members []decl.EnumMember) map[string]string {
	out := make(map[string]string, len(members))
	prev := ""
	for _, m := range members {
		var v string
		switch {
		case m.Value != "":
			v = m.Value
		case prev == "":
			v = "0"
		default:
			v = "(" + prev + ")+1"
		}
		out[m.Name] = v
		prev = v
	}
	return out
}

// captured handles a primary constructor parameter that starts or stops
// being stored in a field.
func (c *check) captured(n *decl.Node) {
	t := n.Parent()
	if t == nil || t.Kind != decl.KindType || t.TypeKind.IsRecord() {
		return
	}
	kind := NotCapturingPrimaryConstructorParameter
	if n.Captured {
		kind = CapturingPrimaryConstructorParameter
	}
	if t.TypeKind.IsValueType() || t.Layout() != decl.LayoutAuto {
		c.rude(kind)
		return
	}
	c.need(capability.AddInstanceFieldToExistingType, kind)
}

// State helpers

func (c *check) instanceState(t *decl.Node) {
	switch {
	case t == nil:
		return
	case t.TypeKind.IsValueType():
		c.rude(InsertIntoStruct)
	case t.Layout() != decl.LayoutAuto:
		c.rude(InsertIntoClassWithLayout)
	default:
		c.need(capability.AddInstanceFieldToExistingType, InsertNotSupportedByRuntime)
		if genericContext(t) {
			c.need(capability.GenericAddFieldToExistingType, UpdatingGenericNotSupportedByRuntime)
		}
	}
}

func (c *check) staticState(n *decl.Node) {
	c.need(capability.AddStaticFieldToExistingType, InsertNotSupportedByRuntime)
	if genericContext(n) {
		c.need(capability.GenericAddFieldToExistingType, UpdatingGenericNotSupportedByRuntime)
	}
}

// replacesImplicitConstructor reports whether an inserted constructor takes
// the place of one the compiler generated for the old type.
func (c *check) replacesImplicitConstructor(n *decl.Node) bool {
	if !n.IsStatic() && len(n.Parameters()) > 0 {
		return false
	}
	return partial.ImplicitConstructor(c.groups.FragmentsOf(partial.Old, c.e.OldContainer), n.IsStatic())
}

// implicitConstructorReplaces reports whether the compiler generates a
// constructor in place of a deleted one.
func (c *check) implicitConstructorReplaces(o *decl.Node) bool {
	if !o.IsStatic() && len(o.Parameters()) > 0 {
		return false
	}
	return partial.ImplicitConstructor(c.groups.FragmentsOf(partial.New, c.e.NewContainer), o.IsStatic())
}

// replacesSynthesized reports whether n is a hand-written member standing in
// for one the compiler generates for type t on the given side.
func (c *check) replacesSynthesized(side partial.Side, t, n *decl.Node) bool {
	if t == nil {
		return false
	}
	return synth.Replaces(c.model, c.groups.FragmentsOf(side, t), c.model, synth.RefOf(n))
}

// Predicates

func inInterface(n *decl.Node) bool {
	t := n.ContainingType()
	return t != nil && t.TypeKind == decl.TypeInterface
}

func inValueType(n *decl.Node) bool {
	t := n.ContainingType()
	return t != nil && t.TypeKind.IsValueType()
}

// isInterfaceVirtual reports whether an interface member occupies a slot:
// everything except static, sealed and private members with an
// implementation.
func isInterfaceVirtual(n *decl.Node) bool {
	if n.Modifiers.Any(decl.ModAbstract | decl.ModVirtual) {
		return true
	}
	if !hasImplementation(n) {
		return true
	}
	return !n.Modifiers.Any(decl.ModStatic | decl.ModSealed | decl.ModPrivate)
}

func hasImplementation(n *decl.Node) bool {
	if n.Body != nil {
		return true
	}
	for _, acc := range n.ChildrenOf(decl.KindAccessor) {
		if acc.Body != nil {
			return true
		}
	}
	return false
}

// significantAccessibility reports whether visibility of the declaration
// takes part in slot layout or nested type lookup.
func significantAccessibility(n *decl.Node) bool {
	switch {
	case n.Kind.IsTypeLike():
		return n.Parent() != nil
	case n.Kind == decl.KindAccessor:
		if p := n.Parent(); p != nil {
			return significantAccessibility(p)
		}
		return false
	}
	return n.IsVirtualSlot() || inInterface(n)
}

// genericContext reports whether the node or any declaration around it has
// type parameters.
func genericContext(n *decl.Node) bool {
	for p := n; p != nil; p = p.Parent() {
		if p.IsGeneric() {
			return true
		}
	}
	return false
}
