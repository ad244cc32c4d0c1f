package capability

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Built-in profiles. "default" is the set reported by current runtimes.
var builtinProfiles = map[string][]Name{
	"none":     {},
	"baseline": {Baseline},
	"net6": {
		Baseline,
		AddMethodToExistingType,
		AddStaticFieldToExistingType,
		AddInstanceFieldToExistingType,
		NewTypeDefinition,
	},
	"net8": {
		Baseline,
		AddMethodToExistingType,
		AddStaticFieldToExistingType,
		AddInstanceFieldToExistingType,
		NewTypeDefinition,
		ChangeCustomAttributes,
		UpdateParameters,
		AddExplicitInterfaceImplementation,
		GenericAddMethodToExistingType,
		GenericUpdateMethod,
		GenericAddFieldToExistingType,
	},
	"all": Known,
}

// DefaultProfile is used when configuration names no profile.
const DefaultProfile = "net8"

// Profiles resolves profile names to sets. User profiles may extend built-in
// ones.
type Profiles struct {
	sets map[string]Set
}

// profileFile is the TOML layout of a profiles file:
//
//	[profiles.mono]
//	extends = "baseline"
//	capabilities = ["AddMethodToExistingType"]
type profileFile struct {
	Profiles map[string]struct {
		Extends      string   `toml:"extends"`
		Capabilities []string `toml:"capabilities"`
	} `toml:"profiles"`
}

// DefaultProfiles returns the built-in profiles.
func DefaultProfiles() *Profiles {
	p := &Profiles{sets: make(map[string]Set, len(builtinProfiles)+1)}
	for name, names := range builtinProfiles {
		p.sets[name] = Of(names...)
	}
	p.sets["default"] = p.sets[DefaultProfile]
	return p
}

// LoadProfiles reads a TOML profiles file on top of the built-in profiles.
func LoadProfiles(path string) (*Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseProfiles(string(data))
}

// ParseProfiles decodes TOML profile definitions on top of the built-ins.
func ParseProfiles(src string) (*Profiles, error) {
	var f profileFile
	if _, err := toml.Decode(src, &f); err != nil {
		return nil, fmt.Errorf("decoding capability profiles: %w", err)
	}
	p := DefaultProfiles()
	resolving := map[string]bool{}
	var resolve func(name string) (Set, error)
	resolve = func(name string) (Set, error) {
		def, ok := f.Profiles[name]
		if !ok {
			if s, ok := p.sets[name]; ok {
				return s, nil
			}
			return Set{}, fmt.Errorf("unknown capability profile %q", name)
		}
		if resolving[name] {
			return Set{}, fmt.Errorf("capability profile %q extends itself", name)
		}
		resolving[name] = true
		defer delete(resolving, name)

		base := Set{}
		if def.Extends != "" {
			var err error
			if base, err = resolve(def.Extends); err != nil {
				return Set{}, err
			}
		}
		return base.Union(Parse(strings.Join(def.Capabilities, ","))), nil
	}
	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	resolved := make(map[string]Set, len(names))
	for _, name := range names {
		s, err := resolve(name)
		if err != nil {
			return nil, err
		}
		resolved[name] = s
	}
	for name, s := range resolved {
		p.sets[name] = s
	}
	return p, nil
}

// Get returns the named profile.
func (p *Profiles) Get(name string) (Set, bool) {
	if name == "" {
		name = "default"
	}
	s, ok := p.sets[strings.ToLower(name)]
	if !ok {
		s, ok = p.sets[name]
	}
	return s, ok
}

// Names lists the profile names sorted.
func (p *Profiles) Names() []string {
	out := make([]string, 0, len(p.sets))
	for name := range p.sets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
