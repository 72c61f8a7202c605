// Package ident converts registry identifiers into the identifiers of
// the generated binding.
//
// Types lose the "Vk" prefix and get a normalized "Flags" suffix,
// enumerants lose the parts they share with their enum, and API
// constants become k_snake_case names. Commands keep their names.
package ident

import (
	"slices"
	"strconv"
	"strings"

	"github.com/refaktor/vkgen/textutils"
)

// FlagsWhitelist holds the base name endings that don't get a "Flags"
// suffix, e.g. VkImageUsageFlagBits becomes ImageUsage.
var FlagsWhitelist = []string{"Access", "Aspect", "Component", "Count", "Feature", "Mode", "Stage", "Usage"}

// Type converts a type name. Names that don't start with "Vk" are only
// touched if they contain "Flags" or "FlagBits", so Type can be applied
// to any token of a C declaration.
//
//	VkBool32                        -> Bool
//	VkQueueFlagBits, VkQueueFlags   -> QueueFlags
//	VkImageUsageFlagBits            -> ImageUsage
//	VkSurfaceTransformFlagBitsKHR   -> SurfaceTransformFlagsKHR
//	VkPipelineStageFlagBits2        -> PipelineStage2
func Type(name string) string {
	if name == "VkBool32" {
		return "Bool"
	}
	if strings.Contains(name, "Flags") || strings.Contains(name, "FlagBits") {
		var suffix string
		if i := strings.Index(name, "Flags"); i != -1 {
			suffix += name[i+len("Flags"):]
			name = name[:i]
		}
		if i := strings.Index(name, "FlagBits"); i != -1 {
			suffix += name[i+len("FlagBits"):]
			name = name[:i]
		}
		if !slices.ContainsFunc(FlagsWhitelist, func(w string) bool { return strings.HasSuffix(name, w) }) {
			name += "Flags"
		}
		name += suffix
	}
	return strings.TrimPrefix(name, "Vk")
}

// Constant converts an API constant name.
//
//	VK_MAX_PHYSICAL_DEVICE_NAME_SIZE -> k_max_physical_device_name_size
func Constant(name string) string {
	return "k_" + strings.TrimPrefix(strings.ToLower(name), "vk_")
}

// Converter converts the enumerants of an enum. It needs the vendor tags
// of the registry.
type Converter struct {
	vendors []string
}

func NewConverter(vendors []string) *Converter {
	return &Converter{vendors: vendors}
}

// Enum holds what is needed to convert the enumerants of one enum.
type Enum struct {
	// Registry name, e.g. "VkSurfaceTransformFlagBitsKHR".
	Name string
	// Converted name.
	Converted string
	// Registry name minus "FlagBits" and the vendor suffix, removed from
	// enumerant names.
	Subtract string
	// Whether the enum name ends in a vendor tag.
	Extension bool
}

// HasNone reports whether a None = 0 enumerant is synthesized.
func (e *Enum) HasNone() bool {
	return strings.HasSuffix(e.Converted, "Flags")
}

// IsFlagBits reports whether bitwise operators are emitted for the enum.
func (e *Enum) IsFlagBits() bool {
	return strings.Contains(e.Name, "FlagBits")
}

func (c *Converter) Enum(name string) *Enum {
	e := &Enum{
		Name:      name,
		Converted: Type(name),
		Subtract:  strings.ReplaceAll(name, "FlagBits", ""),
	}
	for _, v := range c.vendors {
		if strings.HasSuffix(e.Subtract, v) {
			e.Subtract = strings.TrimSuffix(e.Subtract, v)
			e.Extension = true
			break
		}
	}
	return e
}

// Enumerant converts an enumerant of e.
//
// The upper snake case name is turned into camel case, then the enum
// name, "Vk" and "Bit" are removed. A trailing vendor tag is cut; for
// enums that aren't vendor specific it is put back in upper case, so
// VK_ERROR_SURFACE_LOST_KHR in VkResult becomes ErrorSurfaceLostKHR.
// A leading digit gets an underscore.
func (c *Converter) Enumerant(e *Enum, name string) string {
	camel := textutils.UpperSnakeToCamel(name)
	res := strings.ReplaceAll(camel, e.Subtract, "")
	res = strings.ReplaceAll(res, "Vk", "")
	res = strings.ReplaceAll(res, "Bit", "")
	for _, v := range c.vendors {
		if tv := textutils.Title(v); strings.HasSuffix(res, tv) {
			res = strings.TrimSuffix(res, tv)
			if !e.Extension {
				res += v
			}
			break
		}
	}
	if res == "" {
		res = strings.TrimPrefix(camel, "Vk")
	}
	if res != "" && res[0] >= '0' && res[0] <= '9' {
		res = "_" + res
	}
	return res
}

// AmbiguousIdentifierError is returned if two registry names convert to
// the same identifier.
type AmbiguousIdentifierError struct {
	Scope string
	Ident string
	// Registry names in the order they were added.
	Names [2]string
}

func (e *AmbiguousIdentifierError) Error() string {
	return "ambiguous identifier " + strconv.Quote(e.Ident) + " in " + e.Scope +
		": produced by both " + strconv.Quote(e.Names[0]) + " and " + strconv.Quote(e.Names[1])
}

// Scope tracks the identifiers emitted into one C++ scope.
type Scope struct {
	name   string
	owners map[string]string
}

func NewScope(name string) *Scope {
	return &Scope{name: name, owners: map[string]string{}}
}

// Add records that registryName is emitted as ident. Adding the same
// pair twice is allowed.
func (s *Scope) Add(registryName, ident string) error {
	if owner, ok := s.owners[ident]; ok && owner != registryName {
		return &AmbiguousIdentifierError{
			Scope: s.name,
			Ident: ident,
			Names: [2]string{owner, registryName},
		}
	}
	s.owners[ident] = registryName
	return nil
}
