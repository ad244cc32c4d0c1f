package decl

import (
	"sort"
	"strings"
)

// Modifiers is a bitset of declaration modifiers, accessibility included.
type Modifiers uint32

const (
	ModPublic Modifiers = 1 << iota
	ModPrivate
	ModProtected
	ModInternal
	ModStatic
	ModAbstract
	ModVirtual
	ModOverride
	ModSealed
	ModReadonly
	ModRef
	ModUnsafe
	ModExtern
	ModPartial
	ModAsync
	ModNew
	ModConst
	ModVolatile
	ModRequired
	ModOut
	ModIn
	ModParams
	ModThis
)

// AccessMask covers the accessibility bits.
const AccessMask = ModPublic | ModPrivate | ModProtected | ModInternal

var modifierNames = map[string]Modifiers{
	"public":    ModPublic,
	"private":   ModPrivate,
	"protected": ModProtected,
	"internal":  ModInternal,
	"static":    ModStatic,
	"abstract":  ModAbstract,
	"virtual":   ModVirtual,
	"override":  ModOverride,
	"sealed":    ModSealed,
	"readonly":  ModReadonly,
	"ref":       ModRef,
	"unsafe":    ModUnsafe,
	"extern":    ModExtern,
	"partial":   ModPartial,
	"async":     ModAsync,
	"new":       ModNew,
	"const":     ModConst,
	"volatile":  ModVolatile,
	"required":  ModRequired,
	"out":       ModOut,
	"in":        ModIn,
	"params":    ModParams,
	"this":      ModThis,
}

// ParseModifier returns the bit for a modifier keyword.
func ParseModifier(s string) (Modifiers, bool) {
	m, ok := modifierNames[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

// ParseModifiers parses a whitespace separated modifier list. Unknown words
// are returned separately.
func ParseModifiers(s string) (Modifiers, []string) {
	var mods Modifiers
	var unknown []string
	for _, word := range strings.Fields(s) {
		if m, ok := ParseModifier(word); ok {
			mods |= m
		} else {
			unknown = append(unknown, word)
		}
	}
	return mods, unknown
}

// Has reports whether all bits of m are set.
func (m Modifiers) Has(bits Modifiers) bool { return m&bits == bits }

// Any reports whether any bit of bits is set.
func (m Modifiers) Any(bits Modifiers) bool { return m&bits != 0 }

// Without clears bits.
func (m Modifiers) Without(bits Modifiers) Modifiers { return m &^ bits }

// Access returns the accessibility bits.
func (m Modifiers) Access() Modifiers { return m & AccessMask }

func (m Modifiers) String() string {
	var words []string
	for name, bit := range modifierNames {
		if m&bit != 0 {
			words = append(words, name)
		}
	}
	sort.Slice(words, func(i, j int) bool {
		return modifierNames[words[i]] < modifierNames[words[j]]
	})
	return strings.Join(words, " ")
}

// Accessibility is the effective accessibility of a declaration.
type Accessibility uint8

const (
	AccessPrivate Accessibility = iota
	AccessPrivateProtected
	AccessProtected
	AccessInternal
	AccessProtectedInternal
	AccessPublic
)

func (a Accessibility) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessProtectedInternal:
		return "protected internal"
	case AccessInternal:
		return "internal"
	case AccessProtected:
		return "protected"
	case AccessPrivateProtected:
		return "private protected"
	default:
		return "private"
	}
}

// accessibilityOf maps explicit modifier bits to an accessibility, using def
// when no accessibility modifier is present.
func accessibilityOf(m Modifiers, def Accessibility) Accessibility {
	switch m.Access() {
	case ModPublic:
		return AccessPublic
	case ModProtected | ModInternal:
		return AccessProtectedInternal
	case ModInternal:
		return AccessInternal
	case ModProtected:
		return AccessProtected
	case ModPrivate | ModProtected:
		return AccessPrivateProtected
	case ModPrivate:
		return AccessPrivate
	default:
		return def
	}
}
