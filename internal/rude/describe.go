package rude

import "strings"

var descriptions = map[Kind]string{
	Insert:                                  "Adding {kind} '{name}' requires restarting the application.",
	Delete:                                  "Deleting {kind} '{name}' requires restarting the application.",
	Move:                                    "Moving {kind} '{name}' requires restarting the application.",
	ChangingNamespace:                       "Changing the namespace of {kind} '{name}' requires restarting the application.",
	ChangingAccessibility:                   "Changing the accessibility of {kind} '{name}' requires restarting the application.",
	ModifiersUpdate:                         "Updating the modifiers of {kind} '{name}' requires restarting the application.",
	TypeUpdate:                              "Updating the type of {kind} '{name}' requires restarting the application.",
	InsertVirtual:                           "Adding an abstract, virtual or override {kind} '{name}' requires restarting the application.",
	InsertIntoInterface:                     "Adding {kind} '{name}' into an interface requires restarting the application.",
	InsertIntoStruct:                        "Adding {kind} '{name}' into struct '{container}' requires restarting the application.",
	InsertIntoClassWithLayout:               "Adding {kind} '{name}' into class '{container}' with explicit or sequential layout requires restarting the application.",
	InsertExtern:                            "Adding extern {kind} '{name}' requires restarting the application.",
	InsertNotSupportedByRuntime:             "Adding {kind} '{name}' requires restarting the application because it is not supported by the runtime.",
	DeleteNotSupportedByRuntime:             "Deleting {kind} '{name}' requires restarting the application because it is not supported by the runtime.",
	NotSupportedByRuntime:                   "Applying source changes while the application is running is not supported by the runtime.",
	UpdatingGenericNotSupportedByRuntime:    "Updating {kind} '{name}' within generic type or method requires restarting the application because it is not supported by the runtime.",
	ChangingAttributesNotSupportedByRuntime: "Changing attributes of {kind} '{name}' requires restarting the application because it is not supported by the runtime.",
	ChangingNonCustomAttribute:              "Changing pseudo-custom attribute of {kind} '{name}' requires restarting the application.",
	ChangingFromAsynchronousToSynchronous:   "Changing {kind} '{name}' from asynchronous to synchronous requires restarting the application.",
	ChangingFromIteratorToNonIterator:       "Changing {kind} '{name}' from an iterator to a non-iterator requires restarting the application.",
	MakeMethodAsyncNotSupportedByRuntime:    "Making {kind} '{name}' asynchronous requires restarting the application because it is not supported by the runtime.",
	MakeMethodIteratorNotSupportedByRuntime: "Making {kind} '{name}' an iterator requires restarting the application because it is not supported by the runtime.",
	UpdatingStateMachineMethodNotSupportedByRuntime: "Updating async or iterator {kind} '{name}' requires restarting the application because it is not supported by the runtime.",
	StackAllocUpdate:                            "Modifying {kind} '{name}' which contains the stackalloc operator requires restarting the application.",
	CapturingPrimaryConstructorParameter:        "Capturing primary constructor parameter '{name}' that hasn't been captured before requires restarting the application.",
	NotCapturingPrimaryConstructorParameter:     "Ceasing to capture primary constructor parameter '{name}' requires restarting the application.",
	ChangingReloadableTypeNotSupportedByRuntime: "Modifying reloadable type '{container}' requires restarting the application because it is not supported by the runtime.",
	RenamingNotSupportedByRuntime:               "Renaming {kind} '{name}' requires restarting the application because it is not supported by the runtime.",
	ChangingConstraints:                         "Changing the constraints of {kind} '{name}' requires restarting the application.",
	ChangingVariance:                            "Changing the variance of {kind} '{name}' requires restarting the application.",
	BaseTypeOrInterfaceUpdate:                   "Changing the base type or interfaces of {kind} '{name}' requires restarting the application.",
	InitializerUpdate:                           "Updating the initializer of {kind} '{name}' requires restarting the application.",
}

// Describe returns the message template of a kind. Placeholders are
// {kind}, {name} and {container}.
func Describe(k Kind) string {
	if d, ok := descriptions[k]; ok {
		return d
	}
	return "Edit '{name}' requires restarting the application."
}

// Message fills the template of the diagnostic's kind.
func (d Diagnostic) Message() string {
	return strings.NewReplacer(
		"{kind}", d.DeclarationKind,
		"{name}", d.Name,
		"{container}", d.Container,
	).Replace(Describe(d.Kind))
}
