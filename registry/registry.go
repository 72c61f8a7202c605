// Package registry loads the Vulkan API registry (vk.xml) into an
// immutable snapshot indexed by name.
//
// Aliases are resolved once while loading, and entries that exist only
// for an excluded API (e.g. "vulkansc") are dropped, so each name maps to
// exactly one entry.
package registry

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// ConstantsEnum is the name of the enums block holding API constants.
const ConstantsEnum = "API Constants"

type Options struct {
	// API being generated for, e.g. "vulkan". If set, extensions must
	// list it in their "supported" attribute to be usable.
	API string
	// APIs whose exclusive entries, parameters and members are dropped.
	ExcludeAPIs []string
}

// Decl is a member of a struct or union, or a parameter of a command.
type Decl struct {
	Name string
	// Name of the referenced type, e.g. "VkStructureType".
	Type string
	// Optional api tag, e.g. "vulkan".
	API string
	// Mixed-content declaration.
	Node *Node
}

type Command struct {
	Name       string
	ReturnType string
	// Parameters, not counting those of excluded APIs.
	Params []Decl
	Node   *Node
}

type Type struct {
	Name     string
	Category string
	// Name of the aliased type. Empty for canonical types.
	Alias string
	// Declared parent handles, e.g. ["VkDevice"] for VkQueue.
	Parents []string
	// Members of structs and unions, not counting those of excluded APIs.
	Members []Decl
	// Types referenced through inner <type> elements, e.g. the
	// underlying type of a bitmask or the parameters of a funcpointer.
	Refs []string
	// The value of the "requires" attribute, e.g. "vk_platform" or
	// the FlagBits enum of a bitmask.
	Requires string
	// The value of the "bitvalues" attribute of 64-bit bitmasks.
	BitValues string
	Node      *Node
}

type Enumerant struct {
	Name string
	// Exactly one of Value, IsBit/BitPos and Alias is set.
	Value  string
	IsBit  bool
	BitPos int
	Alias  string
	// C type of API constants, e.g. "uint32_t".
	Type string
}

type EnumDefinition struct {
	Name string
	// "enum", "bitmask" or "constants".
	Type string
	// 32 or 64.
	BitWidth   int
	Enumerants []Enumerant
}

// EnumExtension is an <enum> referenced from a requirement block. It
// adds an enumerant to an existing enum if Extends is set.
type EnumExtension struct {
	Name    string
	Extends string
	Alias   string

	Value  string
	IsBit  bool
	BitPos int
	// Offset is only meaningful if HasOffset is set.
	HasOffset bool
	Offset    int
	// Set if dir="-".
	Negative bool
	// Explicit extension number; 0 if inherited from the owning extension.
	ExtNumber int
}

// Require is a requirement block of a feature.
type Require struct {
	// Gating expression. Legacy "feature" and "extension" attributes are
	// combined into it with AND. Empty if the block is unconditional.
	Depends  string
	API      string
	Commands []string
	Types    []string
	Enums    []EnumExtension
}

// Feature is a core version (<feature>) or an extension (<extension>).
type Feature struct {
	Name string
	Core bool
	// Version of core features, e.g. "1.1".
	Version string
	// Registry number of extensions; 0 if absent.
	Number int
	// "instance" or "device" for extensions.
	Type      string
	Depends   string
	Supported []string
	Requires  []Require
}

type Registry struct {
	opts Options

	tags         []string
	commands     map[string]*Command
	types        map[string]*Type
	canonTypes   map[string]*Type
	enums        map[string]*EnumDefinition
	enumOrder    []string
	features     map[string]*Feature
	coreVersions []*Feature
	extensions   []*Feature
}

// LoadFile loads a registry from a file.
func LoadFile(path string, opts Options) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, opts)
}

// Load parses a registry document.
func Load(r io.Reader, opts Options) (*Registry, error) {
	root, err := ParseTree(r)
	if err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if root.Tag != "registry" {
		return nil, SchemaErrorf(root.Tag, "", "expected root element <registry>")
	}

	reg := &Registry{
		opts:       opts,
		commands:   map[string]*Command{},
		types:      map[string]*Type{},
		canonTypes: map[string]*Type{},
		enums:      map[string]*EnumDefinition{},
		features:   map[string]*Feature{},
	}
	if tags := root.Find("tags"); tags != nil {
		for _, tag := range tags.FindAll("tag") {
			if name := tag.Get("name"); name != "" {
				reg.tags = append(reg.tags, name)
			}
		}
	}
	for _, types := range root.FindAll("types") {
		if err := reg.loadTypes(types); err != nil {
			return nil, err
		}
	}
	for _, enums := range root.FindAll("enums") {
		if err := reg.loadEnums(enums); err != nil {
			return nil, err
		}
	}
	for _, commands := range root.FindAll("commands") {
		if err := reg.loadCommands(commands); err != nil {
			return nil, err
		}
	}
	for _, feature := range root.FindAll("feature") {
		if reg.APIExcluded(feature.Get("api")) {
			continue
		}
		if err := reg.loadFeature(feature, true); err != nil {
			return nil, err
		}
	}
	for _, extensions := range root.FindAll("extensions") {
		for _, extension := range extensions.FindAll("extension") {
			if err := reg.loadFeature(extension, false); err != nil {
				return nil, err
			}
		}
	}
	if err := reg.resolveTypeAliases(); err != nil {
		return nil, err
	}
	return reg, nil
}

// APIExcluded reports whether an api attribute value (a comma separated
// list) names only excluded APIs. An empty value is never excluded.
func (r *Registry) APIExcluded(api string) bool {
	if api == "" {
		return false
	}
	for _, a := range strings.Split(api, ",") {
		if !slices.Contains(r.opts.ExcludeAPIs, strings.TrimSpace(a)) {
			return false
		}
	}
	return true
}

// Supported reports whether a feature may be enabled.
func (r *Registry) Supported(f *Feature) bool {
	if f.Core {
		return true
	}
	if slices.Contains(f.Supported, "disabled") {
		return false
	}
	if r.opts.API == "" {
		return true
	}
	return slices.Contains(f.Supported, r.opts.API)
}

// Tags returns the vendor tags in registry order, e.g. "KHR", "EXT".
func (r *Registry) Tags() []string { return r.tags }

// Command returns the canonical command for a command name or alias,
// or nil if there is none.
func (r *Registry) Command(name string) *Command { return r.commands[name] }

// Type returns the type entry of a name as declared, which may be an
// alias entry, or nil if there is none.
func (r *Registry) Type(name string) *Type { return r.types[name] }

// CanonicalType returns the type a name refers to after following
// aliases, or nil if there is none.
func (r *Registry) CanonicalType(name string) *Type { return r.canonTypes[name] }

// Enum returns an enum definition by name, or nil.
func (r *Registry) Enum(name string) *EnumDefinition { return r.enums[name] }

// Enums returns all enum definitions in registry order.
func (r *Registry) Enums() []*EnumDefinition {
	res := make([]*EnumDefinition, len(r.enumOrder))
	for i, name := range r.enumOrder {
		res[i] = r.enums[name]
	}
	return res
}

// Constants returns the API constants, or nil.
func (r *Registry) Constants() *EnumDefinition { return r.enums[ConstantsEnum] }

// Feature returns a core version or extension by name, or nil.
func (r *Registry) Feature(name string) *Feature { return r.features[name] }

// CoreVersions returns the core features in registry order.
func (r *Registry) CoreVersions() []*Feature { return r.coreVersions }

// Extensions returns the extensions in registry order.
func (r *Registry) Extensions() []*Feature { return r.extensions }

func typeName(n *Node) string {
	if name := n.FindText("name"); name != "" {
		return name
	}
	if name := n.Get("name"); name != "" {
		return name
	}
	return n.FindText("proto/name")
}

func (r *Registry) loadTypes(types *Node) error {
	for _, n := range types.FindAll("type") {
		if r.APIExcluded(n.Get("api")) {
			continue
		}
		ty := &Type{
			Name:      typeName(n),
			Category:  n.Get("category"),
			Alias:     n.Get("alias"),
			Requires:  n.Get("requires"),
			BitValues: n.Get("bitvalues"),
			Node:      n,
		}
		if ty.Name == "" {
			return SchemaErrorf("type", "", "missing name")
		}
		if _, ok := r.types[ty.Name]; ok {
			return SchemaErrorf("type", ty.Name, "duplicate definition")
		}
		if parents := n.Get("parent"); parents != "" {
			for _, p := range strings.Split(parents, ",") {
				ty.Parents = append(ty.Parents, strings.TrimSpace(p))
			}
		}
		for _, c := range n.Children {
			switch c.Tag {
			case "type":
				ty.Refs = append(ty.Refs, c.Text)
			case "proto", "param":
				for _, t := range c.FindAll("type") {
					ty.Refs = append(ty.Refs, t.Text)
				}
			case "member":
				if r.APIExcluded(c.Get("api")) {
					continue
				}
				m, err := decl(c)
				if err != nil {
					return SchemaErrorf("type", ty.Name, "%v", err)
				}
				ty.Members = append(ty.Members, m)
			}
		}
		r.types[ty.Name] = ty
	}
	return nil
}

func decl(n *Node) (Decl, error) {
	d := Decl{
		Name: n.FindText("name"),
		Type: n.FindText("type"),
		API:  n.Get("api"),
		Node: n,
	}
	if d.Name == "" {
		return Decl{}, fmt.Errorf("<%v> missing <name>", n.Tag)
	}
	if d.Type == "" {
		return Decl{}, fmt.Errorf("<%v> %v missing <type>", n.Tag, d.Name)
	}
	return d, nil
}

func (r *Registry) resolveTypeAliases() error {
	for name, ty := range r.types {
		seen := map[string]bool{name: true}
		for ty.Alias != "" {
			next, ok := r.types[ty.Alias]
			if !ok {
				return SchemaErrorf("type", name, "alias of unknown type %v", strconv.Quote(ty.Alias))
			}
			if seen[next.Name] {
				return SchemaErrorf("type", name, "alias cycle through %v", strconv.Quote(next.Name))
			}
			seen[next.Name] = true
			ty = next
		}
		r.canonTypes[name] = ty
	}
	return nil
}

func (r *Registry) loadEnums(enums *Node) error {
	def := &EnumDefinition{
		Name:     enums.Get("name"),
		Type:     enums.Get("type"),
		BitWidth: 32,
	}
	if def.Name == "" {
		return SchemaErrorf("enums", "", "missing name")
	}
	if _, ok := r.enums[def.Name]; ok {
		return SchemaErrorf("enums", def.Name, "duplicate definition")
	}
	if bw := enums.Get("bitwidth"); bw != "" {
		n, err := strconv.Atoi(bw)
		if err != nil || (n != 32 && n != 64) {
			return SchemaErrorf("enums", def.Name, "invalid bitwidth %v", strconv.Quote(bw))
		}
		def.BitWidth = n
	}
	for _, n := range enums.FindAll("enum") {
		if r.APIExcluded(n.Get("api")) {
			continue
		}
		e := Enumerant{
			Name:  n.Get("name"),
			Value: n.Get("value"),
			Alias: n.Get("alias"),
			Type:  n.Get("type"),
		}
		if e.Name == "" {
			return SchemaErrorf("enums", def.Name, "enumerant missing name")
		}
		if bp := n.Get("bitpos"); bp != "" {
			pos, err := strconv.Atoi(bp)
			if err != nil {
				return SchemaErrorf("enum", e.Name, "invalid bitpos %v", strconv.Quote(bp))
			}
			e.IsBit, e.BitPos = true, pos
		}
		if e.Value == "" && !e.IsBit && e.Alias == "" {
			return SchemaErrorf("enum", e.Name, "missing value, bitpos or alias")
		}
		def.Enumerants = append(def.Enumerants, e)
	}
	r.enums[def.Name] = def
	r.enumOrder = append(r.enumOrder, def.Name)
	return nil
}

func (r *Registry) loadCommands(commands *Node) error {
	aliases := map[string]string{}
	var aliasOrder []string
	for _, n := range commands.FindAll("command") {
		if r.APIExcluded(n.Get("api")) {
			continue
		}
		if alias := n.Get("alias"); alias != "" {
			name := n.Get("name")
			if name == "" {
				return SchemaErrorf("command", "", "alias of %v missing name", strconv.Quote(alias))
			}
			aliases[name] = alias
			aliasOrder = append(aliasOrder, name)
			continue
		}
		cmd := &Command{
			Name:       n.FindText("proto/name"),
			ReturnType: n.FindText("proto/type"),
			Node:       n,
		}
		if cmd.Name == "" {
			return SchemaErrorf("command", "", "missing <proto><name>")
		}
		if cmd.ReturnType == "" {
			return SchemaErrorf("command", cmd.Name, "missing <proto><type>")
		}
		if _, ok := r.commands[cmd.Name]; ok {
			return SchemaErrorf("command", cmd.Name, "duplicate definition")
		}
		for _, p := range n.FindAll("param") {
			if r.APIExcluded(p.Get("api")) {
				continue
			}
			d, err := decl(p)
			if err != nil {
				return SchemaErrorf("command", cmd.Name, "%v", err)
			}
			cmd.Params = append(cmd.Params, d)
		}
		r.commands[cmd.Name] = cmd
	}
	for _, name := range aliasOrder {
		target := name
		for range len(aliases) + 1 {
			next, ok := aliases[target]
			if !ok {
				break
			}
			target = next
		}
		cmd, ok := r.commands[target]
		if !ok {
			return SchemaErrorf("command", name, "alias of unknown command %v", strconv.Quote(aliases[name]))
		}
		if _, ok := r.commands[name]; ok {
			return SchemaErrorf("command", name, "duplicate definition")
		}
		r.commands[name] = cmd
	}
	return nil
}

// combineDepends joins expressions with AND, parenthesizing
// expressions that aren't plain atoms or AND-lists.
func combineDepends(exprs ...string) string {
	var parts []string
	for _, e := range exprs {
		if e == "" {
			continue
		}
		if strings.ContainsAny(e, ",()") {
			e = "(" + e + ")"
		}
		parts = append(parts, e)
	}
	return strings.Join(parts, "+")
}

func (r *Registry) loadFeature(n *Node, core bool) error {
	f := &Feature{
		Name:    n.Get("name"),
		Core:    core,
		Type:    n.Get("type"),
		Depends: n.Get("depends"),
	}
	element := n.Tag
	if f.Name == "" {
		return SchemaErrorf(element, "", "missing name")
	}
	if _, ok := r.features[f.Name]; ok {
		return SchemaErrorf(element, f.Name, "duplicate definition")
	}
	if core {
		f.Version = n.Get("number")
	} else {
		if num := n.Get("number"); num != "" {
			v, err := strconv.Atoi(num)
			if err != nil {
				return SchemaErrorf(element, f.Name, "invalid number %v", strconv.Quote(num))
			}
			f.Number = v
		}
		if sup := n.Get("supported"); sup != "" {
			f.Supported = strings.Split(sup, ",")
		}
		if f.Depends == "" {
			// Older registries list required extensions separated by ','.
			if req := n.Get("requires"); req != "" {
				f.Depends = strings.ReplaceAll(req, ",", "+")
			}
		}
	}
	for _, rn := range n.FindAll("require") {
		req := Require{
			Depends: combineDepends(rn.Get("depends"), rn.Get("feature"), rn.Get("extension")),
			API:     rn.Get("api"),
		}
		for _, c := range rn.Children {
			switch c.Tag {
			case "command":
				if name := c.Get("name"); name != "" {
					req.Commands = append(req.Commands, name)
				} else {
					return SchemaErrorf(element, f.Name, "<command> missing name")
				}
			case "type":
				if name := c.Get("name"); name != "" {
					req.Types = append(req.Types, name)
				} else {
					return SchemaErrorf(element, f.Name, "<type> missing name")
				}
			case "enum":
				if r.APIExcluded(c.Get("api")) {
					continue
				}
				e, err := enumExtension(c)
				if err != nil {
					return SchemaErrorf(element, f.Name, "%v", err)
				}
				req.Enums = append(req.Enums, e)
			}
		}
		f.Requires = append(f.Requires, req)
	}
	r.features[f.Name] = f
	if core {
		r.coreVersions = append(r.coreVersions, f)
	} else {
		r.extensions = append(r.extensions, f)
	}
	return nil
}

func enumExtension(n *Node) (EnumExtension, error) {
	e := EnumExtension{
		Name:     n.Get("name"),
		Extends:  n.Get("extends"),
		Alias:    n.Get("alias"),
		Value:    n.Get("value"),
		Negative: n.Get("dir") == "-",
	}
	if e.Name == "" {
		return EnumExtension{}, fmt.Errorf("<enum> missing name")
	}
	if bp := n.Get("bitpos"); bp != "" {
		pos, err := strconv.Atoi(bp)
		if err != nil {
			return EnumExtension{}, fmt.Errorf("<enum> %v: invalid bitpos %v", e.Name, strconv.Quote(bp))
		}
		e.IsBit, e.BitPos = true, pos
	}
	if off := n.Get("offset"); off != "" {
		v, err := strconv.Atoi(off)
		if err != nil {
			return EnumExtension{}, fmt.Errorf("<enum> %v: invalid offset %v", e.Name, strconv.Quote(off))
		}
		e.HasOffset, e.Offset = true, v
	}
	if num := n.Get("extnumber"); num != "" {
		v, err := strconv.Atoi(num)
		if err != nil {
			return EnumExtension{}, fmt.Errorf("<enum> %v: invalid extnumber %v", e.Name, strconv.Quote(num))
		}
		e.ExtNumber = v
	}
	if e.Extends != "" && e.Alias == "" && e.Value == "" && !e.IsBit && !e.HasOffset {
		return EnumExtension{}, fmt.Errorf("<enum> %v extends %v without value, bitpos or offset", e.Name, e.Extends)
	}
	return e, nil
}
