package rude

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEveryKindIsDescribed(t *testing.T) {
	for _, k := range AllKinds {
		_, ok := descriptions[k]
		assert.True(t, ok, "no description for %s", k)
	}
	assert.Len(t, descriptions, len(AllKinds))
}

func TestDiagnosticMessage(t *testing.T) {
	d := Diagnostic{Kind: InsertIntoStruct, DeclarationKind: "field", Name: "Y", Container: "S"}
	assert.Equal(t, "Adding field 'Y' into struct 'S' requires restarting the application.", d.Message())

	unknown := Diagnostic{Kind: Kind("Bogus"), Name: "F"}
	assert.Equal(t, "Edit 'F' requires restarting the application.", unknown.Message())
}
