package decl

import (
	"strings"
)

// Eraser maps a source type to its runtime representation. Two types with
// equal erasure are indistinguishable to the runtime.
type Eraser interface {
	Erase(t TypeRef) string
}

// EraserFunc adapts a function to Eraser.
type EraserFunc func(t TypeRef) string

// Erase calls f.
func (f EraserFunc) Erase(t TypeRef) string { return f(t) }

// DefaultEraser erases without semantic information: nullable reference
// annotations, tuple element names and dynamic disappear, keyword aliases are
// canonicalized, and "T?" on a known value type becomes Nullable<T>.
// ValueTypes adds user value types to the built-in set.
type DefaultEraser struct {
	ValueTypes map[string]bool
}

var keywordAliases = map[string]string{
	"System.Object":  "object",
	"Object":         "object",
	"System.String":  "string",
	"String":         "string",
	"System.Boolean": "bool",
	"Boolean":        "bool",
	"System.Int32":   "int",
	"Int32":          "int",
	"System.Int64":   "long",
	"Int64":          "long",
	"System.Int16":   "short",
	"Int16":          "short",
	"System.Byte":    "byte",
	"Byte":           "byte",
	"System.SByte":   "sbyte",
	"SByte":          "sbyte",
	"System.UInt32":  "uint",
	"UInt32":         "uint",
	"System.UInt64":  "ulong",
	"UInt64":         "ulong",
	"System.UInt16":  "ushort",
	"UInt16":         "ushort",
	"System.Double":  "double",
	"Double":         "double",
	"System.Single":  "float",
	"Single":         "float",
	"System.Decimal": "decimal",
	"Decimal":        "decimal",
	"System.Char":    "char",
	"Char":           "char",
	"System.Void":    "void",
	"dynamic":        "object",
	"nint":           "IntPtr",
	"nuint":          "UIntPtr",
	"System.IntPtr":  "IntPtr",
	"System.UIntPtr": "UIntPtr",
}

var builtinValueTypes = map[string]bool{
	"bool": true, "byte": true, "sbyte": true, "char": true, "decimal": true,
	"double": true, "float": true, "int": true, "uint": true, "long": true,
	"ulong": true, "short": true, "ushort": true, "IntPtr": true, "UIntPtr": true,
	"DateTime": true, "TimeSpan": true, "Guid": true,
}

// Erase implements Eraser.
func (e DefaultEraser) Erase(t TypeRef) string {
	return e.erase(strings.TrimSpace(string(t)))
}

func (e DefaultEraser) erase(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "params ")
	s = strings.TrimPrefix(s, "global::")
	if s == "" {
		return ""
	}
	if strings.HasSuffix(s, "?") {
		inner := e.erase(s[:len(s)-1])
		if e.isValueType(inner) {
			return "Nullable<" + inner + ">"
		}
		return inner
	}
	if strings.HasSuffix(s, "*") {
		return e.erase(s[:len(s)-1]) + "*"
	}
	if strings.HasSuffix(s, "]") {
		if open := matchingOpen(s, '[', ']'); open > 0 {
			rank := strings.ReplaceAll(s[open:], " ", "")
			return e.erase(s[:open]) + rank
		}
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		elems := splitTopLevel(s[1 : len(s)-1])
		parts := make([]string, 0, len(elems))
		for _, el := range elems {
			parts = append(parts, e.erase(stripTupleName(el)))
		}
		return "ValueTuple<" + strings.Join(parts, ",") + ">"
	}
	if strings.HasSuffix(s, ">") {
		if open := matchingOpen(s, '<', '>'); open > 0 {
			args := splitTopLevel(s[open+1 : len(s)-1])
			parts := make([]string, 0, len(args))
			for _, a := range args {
				parts = append(parts, e.erase(a))
			}
			name := strings.TrimSpace(s[:open])
			if name == "Nullable" || name == "System.Nullable" {
				name = "Nullable"
			}
			return name + "<" + strings.Join(parts, ",") + ">"
		}
	}
	if alias, ok := keywordAliases[s]; ok {
		return alias
	}
	return s
}

func (e DefaultEraser) isValueType(s string) bool {
	if builtinValueTypes[s] || strings.HasPrefix(s, "ValueTuple<") || strings.HasPrefix(s, "Nullable<") {
		return true
	}
	return e.ValueTypes[s]
}

// matchingOpen finds the opening bracket matching the final closing bracket.
func matchingOpen(s string, open, close byte) int {
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case close:
			depth++
		case open:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits on commas outside brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

// stripTupleName removes the element name of "int x".
func stripTupleName(el string) string {
	el = strings.TrimSpace(el)
	depth := 0
	for i := len(el) - 1; i >= 0; i-- {
		switch el[i] {
		case '>', ')', ']':
			depth++
		case '<', '(', '[':
			depth--
		case ' ':
			if depth == 0 {
				return strings.TrimSpace(el[:i])
			}
		}
	}
	return el
}
