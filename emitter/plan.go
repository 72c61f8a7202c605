// Package emitter renders the selected, ordered and renamed registry
// entities as the three C++ artifacts of the binding.
//
// [NewPlan] decides what is emitted and under which identifier. The
// Write functions only format a finished plan.
package emitter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/refaktor/vkgen/config"
	"github.com/refaktor/vkgen/config/rules"
	"github.com/refaktor/vkgen/enumval"
	"github.com/refaktor/vkgen/ident"
	"github.com/refaktor/vkgen/registry"
	"github.com/refaktor/vkgen/scope"
)

type Input struct {
	Registry *registry.Registry
	Profile  *config.Profile
	Rules    []config.Rule
	// Selected types in dependency order.
	Types []string
	// Selected commands, deduplicated and sorted by name.
	Commands []*registry.Command
	Scopes   scope.Commands
	Enums    *enumval.Tables
}

type Constant struct {
	Name  string
	Ident string
	Type  string
	Value string
}

// Typedef is an alias of another type. External and forward declared
// types have no Underlying type.
type Typedef struct {
	Name       string
	Ident      string
	Underlying string
}

type Enumerant struct {
	Name  string
	Ident string
	Value string
}

type Enum struct {
	Name     string
	Ident    string
	BitWidth int
	// A None = 0 enumerant comes first.
	None bool
	// Bitwise operators are emitted.
	FlagBits bool
	// Emitted as integer constants instead of an enum class.
	AsConstants bool
	// Set for AsConstants enums without a bitmask typedef of the same
	// identifier, which then get a uint64_t typedef of their own.
	DeclareType bool
	Values      []Enumerant
}

// ConstantIdent returns the name of the constant emitted for an
// enumerant of an enum with AsConstants set.
func (e *Enum) ConstantIdent(v Enumerant) string {
	return e.Ident + "_" + v.Ident
}

type Command struct {
	*registry.Command
	Ident string
}

// Member is a class member of the dispatch table.
func (c Command) Member() string { return "m_" + c.Ident }

// PFN is the function pointer type of the command.
func (c Command) PFN() string { return "PFN_" + c.Ident }

type Plan struct {
	Profile *config.Profile

	Constants []Constant
	// Types declared outside of the registry, e.g. xcb_connection_t.
	External []Typedef
	// Sorted by registry name.
	BaseTypes []Typedef
	// Identifier of the VkBool32 wrapper class.
	Bool string
	// Sorted by registry name.
	Bitmasks []Typedef
	// Sorted by registry name.
	Handles []Typedef
	// Sorted by registry name.
	Enums []Enum
	// Function pointer types, structs and unions in dependency order.
	Composites []*registry.Type
	// Sorted by registry name.
	Commands []Command
	// Bootstrap command, not part of Commands.
	Bootstrap *Command
	Scopes    scope.Commands

	reg      *registry.Registry
	names    map[rules.Symbol]string
	commands map[string]Command
	// All commands including the bootstrap one, sorted by name.
	all []Command
}

func typeSym(name string) rules.Symbol {
	return rules.Symbol{Kind: rules.KindType, Name: name}
}

func constSym(name string) rules.Symbol {
	return rules.Symbol{Kind: rules.KindConstant, Name: name}
}

func enumerantSym(enum, name string) rules.Symbol {
	return rules.Symbol{Kind: rules.KindEnumerant, Enum: enum, Name: name}
}

func commandSym(name string) rules.Symbol {
	return rules.Symbol{Kind: rules.KindCommand, Name: name}
}

// isExternal reports whether a type without category is declared by a
// platform header rather than by vk_platform.h.
func isExternal(ty *registry.Type) bool {
	return ty.Category == "" && ty.Requires != "" && ty.Requires != "vk_platform"
}

// NewPlan converts all identifiers, applies the rename rules and checks
// that no two emitted entities share an identifier.
func NewPlan(in Input) (*Plan, error) {
	reg := in.Registry
	p := &Plan{
		Profile:  in.Profile,
		Scopes:   in.Scopes,
		reg:      reg,
		commands: map[string]Command{},
	}
	conv := ident.NewConverter(reg.Tags())

	var syms []rules.SymbolSpec
	addSym := func(sym rules.Symbol, id string) {
		syms = append(syms, rules.SymbolSpec{Symbol: sym, Ident: id})
	}

	if consts := reg.Constants(); consts != nil {
		for _, c := range consts.Enumerants {
			if c.Alias != "" || c.Name == "VK_TRUE" || c.Name == "VK_FALSE" {
				continue
			}
			addSym(constSym(c.Name), ident.Constant(c.Name))
		}
	}

	var (
		external, baseTypes, bitmasks, handles, enums []*registry.Type
	)
	seen := map[string]bool{}
	for _, name := range in.Types {
		ty := reg.Type(name)
		if ty == nil || ty.Alias != "" || seen[name] {
			continue
		}
		seen[name] = true
		switch {
		case isExternal(ty):
			external = append(external, ty)
		case ty.Category == "basetype":
			baseTypes = append(baseTypes, ty)
		case ty.Category == "bitmask":
			bitmasks = append(bitmasks, ty)
		case ty.Category == "handle":
			handles = append(handles, ty)
		case ty.Category == "enum":
			if t := in.Enums.Get(name); t != nil && slices.ContainsFunc(t.Values, func(v enumval.Value) bool { return v.Alias == "" }) {
				enums = append(enums, ty)
			}
		case ty.Category == "funcpointer", ty.Category == "struct", ty.Category == "union":
			p.Composites = append(p.Composites, ty)
		default:
			continue
		}
		addSym(typeSym(name), ident.Type(name))
	}
	if !seen["VkBool32"] {
		addSym(typeSym("VkBool32"), ident.Type("VkBool32"))
	}
	byName := func(a, b *registry.Type) int { return strings.Compare(a.Name, b.Name) }
	for _, l := range [][]*registry.Type{external, baseTypes, bitmasks, handles, enums} {
		slices.SortFunc(l, byName)
	}

	enumInfo := map[string]*ident.Enum{}
	for _, ty := range enums {
		e := conv.Enum(ty.Name)
		enumInfo[ty.Name] = e
		for _, v := range in.Enums.Get(ty.Name).Values {
			if v.Alias != "" {
				continue
			}
			addSym(enumerantSym(ty.Name, v.Name), conv.Enumerant(e, v.Name))
		}
	}

	for _, cmd := range in.Commands {
		addSym(commandSym(cmd.Name), cmd.Name)
	}

	names, err := rules.Execute(in.Rules, syms)
	if err != nil {
		return nil, err
	}
	p.names = names

	var constants []registry.Enumerant
	if consts := reg.Constants(); consts != nil {
		constants = consts.Enumerants
	}
	for _, c := range constants {
		id, ok := names[constSym(c.Name)]
		if !ok {
			continue
		}
		p.Constants = append(p.Constants, Constant{
			Name:  c.Name,
			Ident: id,
			Type:  c.Type,
			Value: strings.ToLower(c.Value),
		})
	}
	for _, ty := range external {
		p.External = append(p.External, Typedef{Name: ty.Name, Ident: p.TypeIdent(ty.Name)})
	}
	for _, ty := range baseTypes {
		if ty.Name == "VkBool32" {
			continue
		}
		td := Typedef{Name: ty.Name, Ident: p.TypeIdent(ty.Name)}
		if under := ty.Node.FindText("type"); under != "" {
			td.Underlying = p.TypeIdent(under)
		}
		p.BaseTypes = append(p.BaseTypes, td)
	}
	p.Bool = p.TypeIdent("VkBool32")
	for _, ty := range handles {
		p.Handles = append(p.Handles, Typedef{Name: ty.Name, Ident: p.TypeIdent(ty.Name)})
	}

	typedef64 := in.Profile.Flags64 == "typedef"
	enumIdents := map[string]bool{}
	for _, ty := range enums {
		info := enumInfo[ty.Name]
		t := in.Enums.Get(ty.Name)
		e := Enum{
			Name:     ty.Name,
			Ident:    p.TypeIdent(ty.Name),
			BitWidth: t.BitWidth,
			FlagBits: info.IsFlagBits(),
		}
		e.AsConstants = typedef64 && e.FlagBits && e.BitWidth == 64
		hasZeroNone := false
		for _, v := range t.Values {
			if v.Alias != "" {
				continue
			}
			ev := Enumerant{
				Name:  v.Name,
				Ident: names[enumerantSym(ty.Name, v.Name)],
				Value: enumerantValue(v, t.BitWidth),
			}
			if ev.Ident == "None" && ev.Value == "0" {
				hasZeroNone = true
			}
			e.Values = append(e.Values, ev)
		}
		// Judged on the converted name, so renames don't add or drop it.
		e.None = info.HasNone() && !hasZeroNone && !e.AsConstants
		p.Enums = append(p.Enums, e)
		if !e.AsConstants {
			enumIdents[e.Ident] = true
		}
	}
	for _, ty := range bitmasks {
		id := p.TypeIdent(ty.Name)
		if enumIdents[id] {
			continue
		}
		p.Bitmasks = append(p.Bitmasks, Typedef{
			Name:       ty.Name,
			Ident:      id,
			Underlying: p.TypeIdent(ty.Node.FindText("type")),
		})
	}
	// A bitmask typedef already declares the type of the constants.
	bitmaskIdents := map[string]bool{}
	for _, b := range p.Bitmasks {
		bitmaskIdents[b.Ident] = true
	}
	for i := range p.Enums {
		e := &p.Enums[i]
		e.DeclareType = e.AsConstants && !bitmaskIdents[e.Ident]
	}

	for _, cmd := range in.Commands {
		c := Command{Command: cmd, Ident: names[commandSym(cmd.Name)]}
		p.commands[cmd.Name] = c
		p.all = append(p.all, c)
		if cmd.Name == in.Profile.BootstrapCommand {
			p.Bootstrap = &c
			continue
		}
		p.Commands = append(p.Commands, c)
	}
	if p.Bootstrap == nil {
		return nil, fmt.Errorf("bootstrap command %v is not selected", strconv.Quote(in.Profile.BootstrapCommand))
	}

	if _, ok := p.tableMember(in.Profile.InstanceHandle); !ok {
		return nil, fmt.Errorf("no table member holds the instance handle %v", strconv.Quote(in.Profile.InstanceHandle))
	}

	if err := p.checkUnique(); err != nil {
		return nil, err
	}
	return p, nil
}

func enumerantValue(v enumval.Value, bitWidth int) string {
	if v.IsBit {
		if bitWidth == 64 {
			return fmt.Sprintf("1ull << %vull", v.BitPos)
		}
		return fmt.Sprintf("1u << %vu", v.BitPos)
	}
	return v.Value
}

func (p *Plan) checkUnique() error {
	file := ident.NewScope("file scope")
	add := func(s *ident.Scope, name, id string) error {
		if err := s.Add(name, id); err != nil {
			return fmt.Errorf("check identifiers: %w", err)
		}
		return nil
	}

	for _, c := range p.Constants {
		if err := add(file, c.Name, c.Ident); err != nil {
			return err
		}
	}
	for _, l := range [][]Typedef{p.External, p.BaseTypes, p.Bitmasks, p.Handles} {
		for _, td := range l {
			if err := add(file, td.Name, td.Ident); err != nil {
				return err
			}
		}
	}
	if err := add(file, "VkBool32", p.Bool); err != nil {
		return err
	}
	for _, e := range p.Enums {
		if !e.AsConstants || e.DeclareType {
			if err := add(file, e.Name, e.Ident); err != nil {
				return err
			}
		}
		enumScope := ident.NewScope("enum " + e.Ident)
		if e.None {
			if err := add(enumScope, "synthesized None", "None"); err != nil {
				return err
			}
		}
		for _, v := range e.Values {
			if err := add(enumScope, v.Name, v.Ident); err != nil {
				return err
			}
			if e.AsConstants {
				if err := add(file, v.Name, e.ConstantIdent(v)); err != nil {
					return err
				}
			}
		}
	}
	for _, ty := range p.Composites {
		if err := add(file, ty.Name, p.TypeIdent(ty.Name)); err != nil {
			return err
		}
	}

	table := ident.NewScope("class ContextTable")
	for _, m := range p.TableMembers() {
		if err := add(table, m.Type, m.Name); err != nil {
			return err
		}
	}
	for _, fn := range []string{"load_loader", "load_instance", "load_device"} {
		if err := add(table, fn, fn); err != nil {
			return err
		}
	}
	for _, c := range p.all {
		if err := add(file, c.Name, c.PFN()); err != nil {
			return err
		}
		if c.Name == p.Bootstrap.Name {
			continue
		}
		if err := add(table, c.Name, c.Ident); err != nil {
			return err
		}
		if err := add(table, c.Name, c.Member()); err != nil {
			return err
		}
	}
	return nil
}

// TypeIdent returns the identifier of a type. Aliases are resolved and
// names that aren't registry types, like "uint32_t", are returned as is.
func (p *Plan) TypeIdent(name string) string {
	if id, ok := p.names[typeSym(name)]; ok {
		return id
	}
	if ty := p.reg.Type(name); ty != nil && ty.Alias != "" {
		if canon := p.reg.CanonicalType(name); canon != nil {
			return p.TypeIdent(canon.Name)
		}
	}
	return ident.Type(name)
}

// ConstantIdent returns the identifier of an API constant, following
// aliases. Unknown names are returned as is.
func (p *Plan) ConstantIdent(name string) string {
	if id, ok := p.names[constSym(name)]; ok {
		return id
	}
	if consts := p.reg.Constants(); consts != nil {
		for _, c := range consts.Enumerants {
			if c.Name == name && c.Alias != "" {
				return p.ConstantIdent(c.Alias)
			}
		}
	}
	return name
}

// Command returns the planned command of a registry name.
func (p *Plan) Command(name string) (Command, bool) {
	c, ok := p.commands[name]
	return c, ok
}

type TableMember struct {
	Type string
	Name string
}

// TableMembers returns the handles stored in the dispatch table, with
// converted type identifiers.
func (p *Plan) TableMembers() []TableMember {
	res := make([]TableMember, len(p.Profile.TableMembers))
	for i, m := range p.Profile.TableMembers {
		res[i] = TableMember{Type: p.TypeIdent(m.Type), Name: m.Name}
	}
	return res
}

// tableMember returns the member holding a handle type.
func (p *Plan) tableMember(handle string) (string, bool) {
	for _, m := range p.Profile.TableMembers {
		if m.Type == handle {
			return m.Name, true
		}
	}
	return "", false
}
