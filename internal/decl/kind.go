// Package decl provides the normalized declaration model that the edit
// analyzer diffs: types, members, parameters and type parameters extracted
// from a syntax tree, with stable identity keys.
package decl

import "strings"

// Kind is the closed set of declaration kinds.
type Kind uint8

const (
	KindNamespace Kind = iota + 1
	KindType
	KindMethod
	KindConstructor
	KindField
	KindProperty
	KindAccessor
	KindIndexer
	KindEvent
	KindDelegate
	KindEnumMember
	KindParameter
	KindTypeParameter
)

// AllKinds lists every declaration kind in declaration order.
var AllKinds = []Kind{
	KindNamespace,
	KindType,
	KindMethod,
	KindConstructor,
	KindField,
	KindProperty,
	KindAccessor,
	KindIndexer,
	KindEvent,
	KindDelegate,
	KindEnumMember,
	KindParameter,
	KindTypeParameter,
}

var kindNames = map[Kind]string{
	KindNamespace:     "namespace",
	KindType:          "type",
	KindMethod:        "method",
	KindConstructor:   "constructor",
	KindField:         "field",
	KindProperty:      "property",
	KindAccessor:      "accessor",
	KindIndexer:       "indexer",
	KindEvent:         "event",
	KindDelegate:      "delegate",
	KindEnumMember:    "enum member",
	KindParameter:     "parameter",
	KindTypeParameter: "type parameter",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind parses the lower-case name of a kind. Spaces may be written as
// underscores or omitted ("enumMember", "enum_member").
func ParseKind(s string) (Kind, bool) {
	norm := strings.ToLower(strings.NewReplacer("_", "", " ", "", "-", "").Replace(s))
	for k, name := range kindNames {
		if strings.ReplaceAll(name, " ", "") == norm {
			return k, true
		}
	}
	return 0, false
}

// IsMember reports whether the kind is a member of a type.
func (k Kind) IsMember() bool {
	switch k {
	case KindMethod, KindConstructor, KindField, KindProperty, KindIndexer, KindEvent:
		return true
	}
	return false
}

// IsTypeLike reports whether the kind defines a runtime type.
func (k Kind) IsTypeLike() bool {
	return k == KindType || k == KindDelegate
}

// TypeKind distinguishes the flavors of KindType.
type TypeKind uint8

const (
	TypeClass TypeKind = iota
	TypeStruct
	TypeInterface
	TypeEnum
	TypeRecord
	TypeRecordStruct
)

var typeKindNames = []string{"class", "struct", "interface", "enum", "record", "record struct"}

func (t TypeKind) String() string {
	if int(t) < len(typeKindNames) {
		return typeKindNames[t]
	}
	return "unknown"
}

// ParseTypeKind parses "class", "struct", "interface", "enum", "record" or
// "record struct" (also "recordStruct").
func ParseTypeKind(s string) (TypeKind, bool) {
	norm := strings.ToLower(strings.NewReplacer("_", "", " ", "").Replace(s))
	for i, name := range typeKindNames {
		if strings.ReplaceAll(name, " ", "") == norm {
			return TypeKind(i), true
		}
	}
	return 0, false
}

// IsValueType reports whether instances of the type are values.
func (t TypeKind) IsValueType() bool {
	return t == TypeStruct || t == TypeRecordStruct || t == TypeEnum
}

// IsRecord reports whether the type has compiler-synthesized record members.
func (t TypeKind) IsRecord() bool {
	return t == TypeRecord || t == TypeRecordStruct
}

// MethodKind distinguishes flavors of KindMethod.
type MethodKind uint8

const (
	MethodOrdinary MethodKind = iota
	MethodOperator
	MethodConversion
	MethodDestructor
)

var methodKindNames = []string{"ordinary", "operator", "conversion", "destructor"}

func (m MethodKind) String() string {
	if int(m) < len(methodKindNames) {
		return methodKindNames[m]
	}
	return "unknown"
}

// ParseMethodKind parses "ordinary", "operator", "conversion" or "destructor".
func ParseMethodKind(s string) (MethodKind, bool) {
	for i, name := range methodKindNames {
		if name == strings.ToLower(s) {
			return MethodKind(i), true
		}
	}
	return MethodOrdinary, false
}

// AccessorKind identifies an accessor of a property, indexer or event.
type AccessorKind uint8

const (
	AccessorNone AccessorKind = iota
	AccessorGet
	AccessorSet
	AccessorInit
	AccessorAdd
	AccessorRemove
)

var accessorNames = []string{"", "get", "set", "init", "add", "remove"}

func (a AccessorKind) String() string {
	if int(a) < len(accessorNames) {
		return accessorNames[a]
	}
	return "unknown"
}

// ParseAccessorKind parses "get", "set", "init", "add" or "remove".
func ParseAccessorKind(s string) (AccessorKind, bool) {
	for i, name := range accessorNames {
		if i > 0 && name == strings.ToLower(s) {
			return AccessorKind(i), true
		}
	}
	return AccessorNone, false
}

// Layout describes how the runtime lays out instance state of a type.
type Layout uint8

const (
	LayoutAuto Layout = iota
	LayoutSequential
	LayoutExplicit
)

func (l Layout) String() string {
	switch l {
	case LayoutSequential:
		return "sequential"
	case LayoutExplicit:
		return "explicit"
	default:
		return "auto"
	}
}
