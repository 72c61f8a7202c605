package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/refaktor/vkgen/config"
)

type Kind int

const (
	// Type, handle, bitmask or enum
	KindType Kind = iota
	// API constant
	KindConstant
	// Enumerant of an enum
	KindEnumerant
	// Command (function pointer and wrapper)
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "Type"
	case KindConstant:
		return "Constant"
	case KindEnumerant:
		return "Enumerant"
	case KindCommand:
		return "Command"
	default:
		panic("invalid kind")
	}
}

func KindFromString(s string) (Kind, bool) {
	if strings.EqualFold(s, "type") {
		return KindType, true
	} else if strings.EqualFold(s, "constant") {
		return KindConstant, true
	} else if strings.EqualFold(s, "enumerant") {
		return KindEnumerant, true
	} else if strings.EqualFold(s, "command") {
		return KindCommand, true
	} else {
		return -1, false
	}
}

type Symbol struct {
	Kind Kind
	// Registry name of the owning enum, for enumerants.
	Enum string
	// Registry name
	Name string
}

type SymbolSpec struct {
	Symbol
	// Converted identifier
	Ident string
}

// namespace is the C++ scope an identifier is emitted into.
func (s Symbol) namespace() string {
	switch s.Kind {
	case KindEnumerant:
		return "enum " + s.Enum
	case KindCommand:
		return "commands"
	default:
		return "file"
	}
}

// Execute executes renaming rules on the converted identifiers.
// Selectors match registry names, while actions work on the identifier
// as converted (or renamed by earlier rules).
// Return value names maps each symbol to its final identifier.
func Execute(rules []config.Rule, syms []SymbolSpec) (names map[Symbol]string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("execute rules: %w", err)
		}
	}()

	names = map[Symbol]string{}
	existingNames := map[string]map[string]int{} // namespace -> identifier -> number of symbols, to avoid collisions
	for _, sym := range syms {
		if _, ok := names[sym.Symbol]; ok {
			return nil, fmt.Errorf("duplicate %v symbol: %v", sym.Kind, sym.Name)
		}
		names[sym.Symbol] = sym.Ident
		ns := sym.namespace()
		if existingNames[ns] == nil {
			existingNames[ns] = map[string]int{}
		}
		existingNames[ns][sym.Ident]++
	}

	// Backrefs represents the '\1', '\2' etc.,
	// which are created by making a capture
	// group in the enum and/or name selector.
	var backrefs [][]byte

	for _, rule := range rules {
		var kind Kind
		if rule.Select.Kind != "" {
			var ok bool
			kind, ok = KindFromString(rule.Select.Kind)
			if !ok {
				return nil, fmt.Errorf("select: unknown kind: %v", rule.Select.Kind)
			}
		}
		if rule.Actions.Rename == "" && rule.Actions.ToCasing == "" {
			return nil, fmt.Errorf("rule without action")
		}

		for _, sym := range syms {
			backrefs = backrefs[:0]
			if rule.Select.Kind != "" && sym.Kind != kind {
				continue
			}
			if rule.Select.Enum != nil {
				if sym.Kind != KindEnumerant {
					continue
				}
				m := rule.Select.Enum.FindSubmatch([]byte(sym.Enum))
				if len(m) == 0 || len(m[0]) != len(sym.Enum) {
					continue
				}
				backrefs = append(backrefs, m[1:]...)
			}
			if rule.Select.Name != nil {
				m := rule.Select.Name.FindSubmatch([]byte(sym.Name))
				if len(m) == 0 || len(m[0]) != len(sym.Name) {
					continue
				}
				backrefs = append(backrefs, m[1:]...)
			}

			ns := sym.namespace()
			renameTo := func(newName string) error {
				oldName := names[sym.Symbol]
				if newName == oldName {
					return nil
				}
				if newName == "" {
					return fmt.Errorf("renaming %v to an empty identifier", strconv.Quote(oldName))
				}
				if existingNames[ns][newName] > 0 {
					return fmt.Errorf("renaming %v to %v would cause a conflict",
						strconv.Quote(oldName), strconv.Quote(newName))
				}
				names[sym.Symbol] = newName
				existingNames[ns][oldName]--
				existingNames[ns][newName]++
				return nil
			}

			if rule.Actions.Rename != "" {
				oldnew := [2 * 9]string{
					`\1`, "",
					`\2`, "",
					`\3`, "",
					`\4`, "",
					`\5`, "",
					`\6`, "",
					`\7`, "",
					`\8`, "",
					`\9`, "",
				}
				for i := range min(len(backrefs), 9) {
					oldnew[2*i+1] = string(backrefs[i])
				}
				newName := strings.NewReplacer(oldnew[:]...).
					Replace(rule.Actions.Rename)
				if err := renameTo(newName); err != nil {
					return nil, err
				}
			}

			if rule.Actions.ToCasing != "" {
				name := names[sym.Symbol]
				var newName string
				switch rule.Actions.ToCasing {
				case "kebab":
					newName = strcase.ToKebab(name)
				case "camel":
					newName = strcase.ToCamel(name)
				case "snake":
					newName = strcase.ToSnake(name)
				default:
					return nil, fmt.Errorf("action: unknown casing: %v", rule.Actions.ToCasing)
				}
				if err := renameTo(newName); err != nil {
					return nil, err
				}
			}
		}
	}

	return
}
