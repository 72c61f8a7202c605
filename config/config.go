package config

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/semver"
)

const DefaultRegistry = "vk.xml"

const DefaultRegistryURL = "https://raw.githubusercontent.com/KhronosGroup/Vulkan-Docs/main/xml/vk.xml"

type Rule struct {
	Select struct {
		// "type", "constant", "enumerant" or "command".
		Kind string `toml:"kind"`
		// Registry name of the owning enum, for enumerants.
		Enum *regexp.Regexp `toml:"enum"`
		// Registry name.
		Name *regexp.Regexp `toml:"name"`
	} `toml:"select"`
	Actions struct {
		Rename   string `toml:"rename"`
		ToCasing string `toml:"to-casing"`
	} `toml:"action"`
}

type Output struct {
	// Directory the artifacts are written to, relative to the config file.
	Dir                 string `toml:"dir"`
	Declarations        string `toml:"declarations"`
	Definitions         string `toml:"definitions"`
	Types               string `toml:"types"`
	DeclarationsInclude string `toml:"declarations-include"`
	TypesInclude        string `toml:"types-include"`
}

type TableMember struct {
	Type string `toml:"type"`
	Name string `toml:"name"`
}

type Profile struct {
	Name        string   `toml:"name"`
	API         string   `toml:"api"`
	ExcludeAPIs []string `toml:"exclude-apis"`
	// Core versions, either as "1.3" or as "VK_VERSION_1_3".
	CoreVersions []string `toml:"core-versions"`
	Extensions   []string `toml:"extensions"`
	// How 64-bit flag enums are emitted: "enum" or "typedef".
	Flags64             string `toml:"flags64"`
	Namespace           string `toml:"namespace"`
	BootstrapCommand    string `toml:"bootstrap-command"`
	DeviceLoaderCommand string `toml:"device-loader-command"`
	InstanceHandle      string `toml:"instance-handle"`
	DeviceHandle        string `toml:"device-handle"`
	// Handles stored in the dispatch table.
	TableMembers []TableMember `toml:"table-member"`
	// Parameter names the wrappers fill in themselves, mapped to the
	// expression passed instead. An empty expression unbinds a default.
	BoundParams map[string]string `toml:"bound-params"`
	Output      Output            `toml:"output"`
}

// DefaultProfile returns the settings used for anything a profile
// leaves unset.
func DefaultProfile() Profile {
	return Profile{
		API:                 "vulkan",
		ExcludeAPIs:         []string{"vulkansc"},
		CoreVersions:        []string{"1.0", "1.1", "1.2", "1.3"},
		Flags64:             "enum",
		Namespace:           "vull::vkb",
		BootstrapCommand:    "vkGetInstanceProcAddr",
		DeviceLoaderCommand: "vkGetDeviceProcAddr",
		InstanceHandle:      "VkInstance",
		DeviceHandle:        "VkDevice",
		TableMembers: []TableMember{
			{Type: "VkInstance", Name: "m_instance"},
			{Type: "VkPhysicalDevice", Name: "m_physical_device"},
			{Type: "VkDevice", Name: "m_device"},
		},
		BoundParams: map[string]string{
			"device":         "m_device",
			"instance":       "m_instance",
			"physicalDevice": "m_physical_device",
			"pAllocator":     "nullptr",
		},
		Output: Output{
			Declarations:        "ContextTable.hh",
			Definitions:         "ContextTable.cc",
			Types:               "Vulkan.hh",
			DeclarationsInclude: "vull/vulkan/ContextTable.hh",
			TypesInclude:        "vull/vulkan/Vulkan.hh",
		},
	}
}

// CoreFeatureNames returns the registry names of the core versions in
// ascending version order.
func (p *Profile) CoreFeatureNames() ([]string, error) {
	type version struct{ semver, name string }
	var vers []version
	for _, v := range p.CoreVersions {
		num := strings.ReplaceAll(strings.TrimPrefix(v, "VK_VERSION_"), "_", ".")
		sv := "v" + num
		if !semver.IsValid(sv) {
			return nil, fmt.Errorf("profile %v: invalid core version %v", strconv.Quote(p.Name), strconv.Quote(v))
		}
		vers = append(vers, version{sv, "VK_VERSION_" + strings.ReplaceAll(num, ".", "_")})
	}
	slices.SortStableFunc(vers, func(a, b version) int { return semver.Compare(a.semver, b.semver) })
	vers = slices.CompactFunc(vers, func(a, b version) bool { return a.name == b.name })
	res := make([]string, len(vers))
	for i, v := range vers {
		res[i] = v.name
	}
	return res, nil
}

// BoundParam returns the expression a wrapper passes for a parameter,
// if the parameter is bound.
func (p *Profile) BoundParam(name string) (string, bool) {
	expr := p.BoundParams[name]
	return expr, expr != ""
}

func (p *Profile) validate() error {
	if p.Name == "" {
		return errors.New("profile without name")
	}
	switch p.Flags64 {
	case "enum", "typedef":
	default:
		return fmt.Errorf("profile %v: flags64: expected \"enum\" or \"typedef\", got %v", strconv.Quote(p.Name), strconv.Quote(p.Flags64))
	}
	if _, err := p.CoreFeatureNames(); err != nil {
		return err
	}
	return nil
}

type Config struct {
	Imports     []string `toml:"imports"`
	Registry    string   `toml:"registry"`
	RegistryURL string   `toml:"registry-url"`
	// Profile used if none is given on the command line.
	UseProfile string    `toml:"use-profile"`
	Profiles   []Profile `toml:"profile"`
	Rules      []Rule    `toml:"rule"`

	// Directory of the loaded file.
	Dir string `toml:"-"`
}

// Path resolves a path relative to the directory of the config file.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// RegistryPath returns the path of the registry document, vk.xml next
// to the config file unless configured.
func (c *Config) RegistryPath() string {
	if c.Registry == "" {
		return c.Path(DefaultRegistry)
	}
	return c.Path(c.Registry)
}

// Profile returns the named profile with defaults filled in. If name is
// empty, use-profile is used, and if that is empty too there must be
// exactly one profile.
func (c *Config) Profile(name string) (*Profile, error) {
	seen := map[string]bool{}
	for _, p := range c.Profiles {
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate profile %v", strconv.Quote(p.Name))
		}
		seen[p.Name] = true
	}

	if name == "" {
		name = c.UseProfile
	}
	var prof Profile
	switch {
	case name != "":
		i := slices.IndexFunc(c.Profiles, func(p Profile) bool { return p.Name == name })
		if i == -1 {
			return nil, fmt.Errorf("unknown profile %v", strconv.Quote(name))
		}
		prof = c.Profiles[i]
	case len(c.Profiles) == 1:
		prof = c.Profiles[0]
	case len(c.Profiles) == 0:
		return nil, errors.New("no profile defined")
	default:
		names := make([]string, len(c.Profiles))
		for i, p := range c.Profiles {
			names[i] = p.Name
		}
		return nil, fmt.Errorf("%v profiles defined (%v), select one with use-profile or -profile", len(names), strings.Join(names, ", "))
	}

	// mergo would replace empty expressions, which unbind defaults.
	bound := DefaultProfile().BoundParams
	maps.Copy(bound, prof.BoundParams)
	prof.BoundParams = nil
	if err := mergo.Merge(&prof, DefaultProfile()); err != nil {
		return nil, err
	}
	prof.BoundParams = bound
	if err := prof.validate(); err != nil {
		return nil, err
	}
	return &prof, nil
}

type Error struct {
	filePath string
	err      error  // short, single-line error
	str      string // full, multi-line error string, or err string, if none
}

// Error returns a short error message.
func (e *Error) Error() string {
	return e.filePath + ": " + e.err.Error()
}

// String returns the full multi-line error string.
func (e *Error) String() string {
	if e.str != "" {
		return "Error in file " + strconv.Quote(e.filePath) + ":\n" + e.str
	} else {
		return e.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.err
}

// Parse decodes a config document. Imports are not followed.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	err := toml.NewDecoder(bytes.NewReader(data)).
		DisallowUnknownFields().
		Decode(&c)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads a config file and merges its imports into it. Import paths
// are relative to the importing file.
func Load(path string) (_ *Config, err error) {
	defer func() {
		if err != nil {
			if cErr := (&Error{}); errors.As(err, &cErr) {
				// from an import
			} else if tErr := (&toml.DecodeError{}); errors.As(err, &tErr) {
				err = &Error{filePath: path, err: err, str: tErr.String()}
			} else if tErr := (&toml.StrictMissingError{}); errors.As(err, &tErr) {
				err = &Error{filePath: path, err: err, str: tErr.String()}
			} else {
				err = &Error{filePath: path, err: err}
			}
		}
	}()

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c, err := Parse(file)
	if err != nil {
		return nil, err
	}
	c.Dir = filepath.Dir(path)

	var importedCs []*Config // collect imported files first so their imports don't leak into our file's imports
	for _, imp := range c.Imports {
		newC, err := Load(c.Path(imp))
		if err != nil {
			return nil, err
		}
		newC.Dir = ""
		importedCs = append(importedCs, newC)
	}
	for _, newC := range importedCs {
		if err := mergo.Merge(c, newC, mergo.WithAppendSlice); err != nil {
			return nil, err
		}
	}

	return c, nil
}
