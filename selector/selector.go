// Package selector expands a requested set of core versions and
// extensions and collects the commands, types and enum extensions
// their requirement blocks name.
package selector

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/refaktor/vkgen/depexpr"
	"github.com/refaktor/vkgen/registry"
)

// UnknownFeatureError is returned for a feature that is absent from the
// registry or may not be enabled.
type UnknownFeatureError struct {
	Name string
	// Extension that implicitly required Name, if any.
	RequiredBy string
	Reason     string
}

func (e *UnknownFeatureError) Error() string {
	s := "feature " + strconv.Quote(e.Name)
	if e.RequiredBy != "" {
		s += " (required by " + strconv.Quote(e.RequiredBy) + ")"
	}
	return s + ": " + e.Reason
}

type Request struct {
	// Core feature names, e.g. "VK_VERSION_1_0". Order doesn't matter.
	CoreVersions []string
	// Extension names in request order. Duplicates are ignored.
	Extensions []string
}

// Implied records an extension that was enabled because another
// enabled extension depends on it.
type Implied struct {
	Name       string
	RequiredBy string
}

// Skipped records a requirement block whose gating expression was false.
type Skipped struct {
	Feature string
	Depends string
}

// EnumExtension is an enum extension together with the number of the
// extension whose requirement block named it.
type EnumExtension struct {
	registry.EnumExtension
	Feature string
	// 0 for core versions.
	OwnerNumber int
}

// Selection is the raw result of walking the requirement blocks.
// Command and type names keep duplicates and registry aliases.
type Selection struct {
	// Enabled features in processing order.
	Features       []*registry.Feature
	Implied        []Implied
	Skipped        []Skipped
	CommandNames   []string
	TypeNames      []string
	EnumExtensions []EnumExtension

	reg *registry.Registry
}

// Select expands req to a fixpoint over extension dependencies and walks
// the requirement blocks of every enabled feature.
func Select(reg *registry.Registry, req Request) (*Selection, error) {
	cores, err := coreVersions(reg, req.CoreVersions)
	if err != nil {
		return nil, err
	}
	enabled := depexpr.NewSet()
	for _, f := range cores {
		enabled[f.Name] = struct{}{}
	}

	sel := &Selection{reg: reg}
	exts, err := expand(reg, req.Extensions, enabled, sel)
	if err != nil {
		return nil, err
	}
	sel.Features = append(cores, exts...)

	for _, f := range sel.Features {
		var number int
		if !f.Core {
			number = f.Number
		}
		for _, block := range f.Requires {
			if reg.APIExcluded(block.API) {
				continue
			}
			if block.Depends != "" {
				ok, err := depexpr.Eval(block.Depends, enabled)
				if err != nil {
					return nil, fmt.Errorf("%v: %w", f.Name, err)
				}
				if !ok {
					sel.Skipped = append(sel.Skipped, Skipped{Feature: f.Name, Depends: block.Depends})
					continue
				}
			}
			sel.CommandNames = append(sel.CommandNames, block.Commands...)
			for _, e := range block.Enums {
				sel.EnumExtensions = append(sel.EnumExtensions, EnumExtension{
					EnumExtension: e,
					Feature:       f.Name,
					OwnerNumber:   number,
				})
			}
			sel.TypeNames = append(sel.TypeNames, block.Types...)
		}
	}
	return sel, nil
}

func coreVersions(reg *registry.Registry, names []string) ([]*registry.Feature, error) {
	var cores []*registry.Feature
	for _, name := range names {
		f := reg.Feature(name)
		if f == nil {
			return nil, &UnknownFeatureError{Name: name, Reason: "not in registry"}
		}
		if !f.Core {
			return nil, &UnknownFeatureError{Name: name, Reason: "not a core version"}
		}
		if !semver.IsValid("v" + f.Version) {
			return nil, registry.SchemaErrorf("feature", f.Name, "invalid version number %v", strconv.Quote(f.Version))
		}
		if !slices.Contains(cores, f) {
			cores = append(cores, f)
		}
	}
	slices.SortStableFunc(cores, func(a, b *registry.Feature) int {
		return semver.Compare("v"+a.Version, "v"+b.Version)
	})
	return cores, nil
}

// expand returns the requested extensions followed by the ones they
// depend on, in discovery order. enabled is updated in place.
func expand(reg *registry.Registry, requested []string, enabled depexpr.Set, sel *Selection) ([]*registry.Feature, error) {
	var names []string
	requiredBy := map[string]string{}
	add := func(name, by string) {
		if enabled.Has(name) {
			return
		}
		enabled[name] = struct{}{}
		names = append(names, name)
		if by != "" {
			requiredBy[name] = by
			sel.Implied = append(sel.Implied, Implied{Name: name, RequiredBy: by})
		}
	}
	for _, name := range requested {
		add(name, "")
	}

	isCore := func(name string) bool {
		if f := reg.Feature(name); f != nil {
			return f.Core
		}
		return strings.HasPrefix(name, "VK_VERSION_")
	}

	var exts []*registry.Feature
	for i := 0; i < len(names); i++ {
		name := names[i]
		f := reg.Feature(name)
		if f == nil {
			return nil, &UnknownFeatureError{Name: name, RequiredBy: requiredBy[name], Reason: "not in registry"}
		}
		if f.Core {
			return nil, &UnknownFeatureError{Name: name, RequiredBy: requiredBy[name], Reason: "core versions can't be requested as extensions"}
		}
		if !reg.Supported(f) {
			return nil, &UnknownFeatureError{Name: name, RequiredBy: requiredBy[name], Reason: "not supported (supported=" + strconv.Quote(strings.Join(f.Supported, ",")) + ")"}
		}
		exts = append(exts, f)

		if f.Depends == "" {
			continue
		}
		var deps []string
		if depexpr.IsFlat(f.Depends) {
			atoms, err := depexpr.Atoms(f.Depends)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", name, err)
			}
			deps = slices.DeleteFunc(atoms, isCore)
		} else {
			e, err := depexpr.Parse(f.Depends)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", name, err)
			}
			deps = depexpr.Required(e, enabled, isCore)
		}
		for _, dep := range deps {
			add(dep, name)
		}
	}
	return exts, nil
}

// Commands returns the selected commands with aliases resolved,
// deduplicated and sorted by name.
func (s *Selection) Commands() ([]*registry.Command, error) {
	var cmds []*registry.Command
	seen := map[*registry.Command]bool{}
	for _, name := range s.CommandNames {
		cmd := s.reg.Command(name)
		if cmd == nil {
			return nil, registry.SchemaErrorf("command", name, "required but not defined")
		}
		if seen[cmd] {
			continue
		}
		seen[cmd] = true
		cmds = append(cmds, cmd)
	}
	slices.SortFunc(cmds, func(a, b *registry.Command) int {
		return strings.Compare(a.Name, b.Name)
	})
	return cmds, nil
}

// Enabled reports whether a feature is enabled.
func (s *Selection) Enabled(name string) bool {
	return slices.ContainsFunc(s.Features, func(f *registry.Feature) bool { return f.Name == name })
}
