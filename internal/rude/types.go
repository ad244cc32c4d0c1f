package rude

import (
	"hotdelta/internal/capability"
	"hotdelta/internal/decl"
	"hotdelta/internal/match"
)

// Kind identifies a rude edit: a change the running process cannot take.
type Kind string

const (
	Insert                                          Kind = "Insert"                                          // Declaration can never be added live
	Delete                                          Kind = "Delete"                                          // Declaration can never be removed live
	Move                                            Kind = "Move"                                            // Declaration moved to another container
	ChangingNamespace                               Kind = "ChangingNamespace"                               // Runtime full name changes
	ChangingAccessibility                           Kind = "ChangingAccessibility"                           // Visibility change affecting slots or nested types
	ModifiersUpdate                                 Kind = "ModifiersUpdate"                                 // static/virtual/abstract/... toggled
	TypeUpdate                                      Kind = "TypeUpdate"                                      // Declared type changed in an unsupported position
	InsertVirtual                                   Kind = "InsertVirtual"                                   // New vtable slot
	InsertIntoInterface                             Kind = "InsertIntoInterface"                             // Interface member without runtime support
	InsertIntoStruct                                Kind = "InsertIntoStruct"                                // Value type layout would change
	InsertIntoClassWithLayout                       Kind = "InsertIntoClassWithLayout"                       // Explicit or sequential layout would change
	InsertExtern                                    Kind = "InsertExtern"                                    // P/Invoke or extern member added
	InsertNotSupportedByRuntime                     Kind = "InsertNotSupportedByRuntime"                     // Missing capability for an insert
	DeleteNotSupportedByRuntime                     Kind = "DeleteNotSupportedByRuntime"                     // Missing capability for a delete
	NotSupportedByRuntime                           Kind = "NotSupportedByRuntime"                           // Runtime cannot apply any edit
	UpdatingGenericNotSupportedByRuntime            Kind = "UpdatingGenericNotSupportedByRuntime"            // Generic edit without generic capability
	ChangingAttributesNotSupportedByRuntime         Kind = "ChangingAttributesNotSupportedByRuntime"         // Custom attribute change without capability
	ChangingNonCustomAttribute                      Kind = "ChangingNonCustomAttribute"                      // Attribute realized as metadata flags
	ChangingFromAsynchronousToSynchronous           Kind = "ChangingFromAsynchronousToSynchronous"           // async removed
	ChangingFromIteratorToNonIterator               Kind = "ChangingFromIteratorToNonIterator"               // yield removed
	MakeMethodAsyncNotSupportedByRuntime            Kind = "MakeMethodAsyncNotSupportedByRuntime"            // async added without state machine support
	MakeMethodIteratorNotSupportedByRuntime         Kind = "MakeMethodIteratorNotSupportedByRuntime"         // yield added without state machine support
	UpdatingStateMachineMethodNotSupportedByRuntime Kind = "UpdatingStateMachineMethodNotSupportedByRuntime" // State machine body changed
	StackAllocUpdate                                Kind = "StackAllocUpdate"                                // Frame layout with stackalloc changed
	CapturingPrimaryConstructorParameter            Kind = "CapturingPrimaryConstructorParameter"            // Parameter now stored in a field
	NotCapturingPrimaryConstructorParameter         Kind = "NotCapturingPrimaryConstructorParameter"         // Parameter no longer stored in a field
	ChangingReloadableTypeNotSupportedByRuntime     Kind = "ChangingReloadableTypeNotSupportedByRuntime"     // Reloadable type cannot be replaced
	RenamingNotSupportedByRuntime                   Kind = "RenamingNotSupportedByRuntime"                   // Parameter or type parameter renamed
	ChangingConstraints                             Kind = "ChangingConstraints"                             // Type parameter constraints changed
	ChangingVariance                                Kind = "ChangingVariance"                                // Type parameter variance changed
	BaseTypeOrInterfaceUpdate                       Kind = "BaseTypeOrInterfaceUpdate"                       // Base type or interface list changed
	InitializerUpdate                               Kind = "InitializerUpdate"                               // Constant or default value changed
)

// AllKinds lists every rude edit kind.
var AllKinds = []Kind{
	Insert, Delete, Move, ChangingNamespace, ChangingAccessibility, ModifiersUpdate,
	TypeUpdate, InsertVirtual, InsertIntoInterface, InsertIntoStruct,
	InsertIntoClassWithLayout, InsertExtern, InsertNotSupportedByRuntime,
	DeleteNotSupportedByRuntime, NotSupportedByRuntime,
	UpdatingGenericNotSupportedByRuntime, ChangingAttributesNotSupportedByRuntime,
	ChangingNonCustomAttribute, ChangingFromAsynchronousToSynchronous,
	ChangingFromIteratorToNonIterator, MakeMethodAsyncNotSupportedByRuntime,
	MakeMethodIteratorNotSupportedByRuntime,
	UpdatingStateMachineMethodNotSupportedByRuntime, StackAllocUpdate,
	CapturingPrimaryConstructorParameter, NotCapturingPrimaryConstructorParameter,
	ChangingReloadableTypeNotSupportedByRuntime, RenamingNotSupportedByRuntime,
	ChangingConstraints, ChangingVariance, BaseTypeOrInterfaceUpdate,
	InitializerUpdate,
}

// Outcome is the final state of an edit's classification.
type Outcome string

const (
	Permitted               Outcome = "permitted"                 // Applies under any capability set
	PermittedWithCapability Outcome = "permitted_with_capability" // Applies because the host reported capabilities
	Rude                    Outcome = "rude"                      // Cannot be applied
	Replace                 Outcome = "replace"                   // Applied by replacing a reloadable type
)

// Anchor locates a diagnostic.
type Anchor struct {
	Node     decl.NodeID `json:"node"`
	New      bool        `json:"new"` // Node indexes the after arena
	Document string      `json:"document"`
	Span     decl.Span   `json:"span"`
}

// Diagnostic is one rude edit. The classifier never formats it; see
// Describe.
type Diagnostic struct {
	Kind               Kind            `json:"kind"`
	Edit               string          `json:"edit"`
	DeclarationKind    string          `json:"declarationKind"`
	Name               string          `json:"name"`
	Container          string          `json:"container,omitempty"`
	Display            string          `json:"display"`
	RequiredCapability capability.Name `json:"requiredCapability,omitempty"`
	Rule               string          `json:"rule"`
	Unit               string          `json:"unit"`
	Anchor             Anchor          `json:"anchor"`
}

// Verdict is the classification of one edit.
type Verdict struct {
	Edit     match.Edit
	Outcome  Outcome
	Required []capability.Name // capabilities the edit relies on
	Rude     []Diagnostic
	// Replaced is the reloadable type replaced instead of applying the edit.
	Replaced *decl.Node
	Unit     string
}

// Result is the classification of a script.
type Result struct {
	Verdicts    []Verdict
	Diagnostics []Diagnostic
	Summary     *Summary
}

// Summary provides an overview of the verdicts
type Summary struct {
	TotalEdits   int            `json:"totalEdits"`
	Permitted    int            `json:"permitted"`
	Gated        int            `json:"gated"`
	Rude         int            `json:"rude"`
	Replaced     int            `json:"replaced"`
	ByKind       map[string]int `json:"byKind"`
	RudeUnits    []string       `json:"rudeUnits,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty"` // capabilities relied upon
}

// HasRudeEdits returns true if any edit is rude
func (r *Result) HasRudeEdits() bool {
	return r.Summary != nil && r.Summary.Rude > 0
}
