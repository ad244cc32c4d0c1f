package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLookupsAreTotal(t *testing.T) {
	s := Parse("Baseline, AddMethodToExistingType  FutureCapability")
	assert.True(t, s.Has(Baseline))
	assert.True(t, s.Has(AddMethodToExistingType))
	assert.False(t, s.Has(NewTypeDefinition))
	assert.False(t, Set{}.Has(Baseline))
	assert.Equal(t, "Baseline AddMethodToExistingType FutureCapability", s.String())
}

func TestSetOperations(t *testing.T) {
	base := Of(Baseline)
	more := base.With(AddMethodToExistingType, NewTypeDefinition)
	assert.Equal(t, 1, base.Len(), "With must not modify the receiver")
	assert.True(t, more.Contains(base))
	assert.False(t, base.Contains(more))
	assert.Equal(t, []Name{Baseline, NewTypeDefinition}, more.Without(AddMethodToExistingType).Names())
	assert.True(t, base.Union(Of(AddFieldRva)).HasAll(Baseline, AddFieldRva))
}

func TestDefaultProfiles(t *testing.T) {
	p := DefaultProfiles()
	def, ok := p.Get("")
	require.True(t, ok)
	net8, _ := p.Get("net8")
	assert.Equal(t, net8.Names(), def.Names())

	all, ok := p.Get("all")
	require.True(t, ok)
	assert.Equal(t, len(Known), all.Len())

	_, ok = p.Get("net4")
	assert.False(t, ok)
}

func TestParseProfiles(t *testing.T) {
	p, err := ParseProfiles(`
[profiles.mono]
extends = "baseline"
capabilities = ["AddMethodToExistingType"]

[profiles.mono-next]
extends = "mono"
capabilities = ["NewTypeDefinition"]
`)
	require.NoError(t, err)
	s, ok := p.Get("mono-next")
	require.True(t, ok)
	assert.Equal(t, []Name{Baseline, AddMethodToExistingType, NewTypeDefinition}, s.Names())
	assert.Contains(t, p.Names(), "mono")
}

func TestParseProfilesErrors(t *testing.T) {
	_, err := ParseProfiles("[profiles.a]\nextends = \"a\"\n")
	assert.ErrorContains(t, err, "extends itself")

	_, err = ParseProfiles("[profiles.a]\nextends = \"missing\"\n")
	assert.ErrorContains(t, err, "unknown capability profile")

	_, err = ParseProfiles("[profiles")
	assert.Error(t, err)
}
