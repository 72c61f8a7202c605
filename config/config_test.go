package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0666))
	return path
}

func TestLoad(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	writeFile(t, dir, "rules.toml", `
[[rule]]
select.kind = "enumerant"
select.enum = "VkFoo"
select.name = "VK_FOO_(.*)_BIT"
action.rename = "\\1Bit"
`)
	path := writeFile(t, dir, "vkgen.toml", `
imports = ["rules.toml"]
registry = "vk.xml"

[[profile]]
name = "minimal"
core-versions = ["1.1", "1.0"]
extensions = ["VK_KHR_surface"]
flags64 = "typedef"
bound-params.pAllocator = ""
bound-params.commandBuffer = "m_cmd"

[profile.output]
dir = "out"
`)

	c, err := Load(path)
	require.NoError(err)
	require.Equal(dir, c.Dir)
	require.Equal(filepath.Join(dir, "vk.xml"), c.RegistryPath())
	require.Equal(filepath.Join("base", DefaultRegistry), (&Config{Dir: "base"}).RegistryPath())
	require.Len(c.Rules, 1)
	require.Equal("enumerant", c.Rules[0].Select.Kind)
	require.True(c.Rules[0].Select.Name.MatchString("VK_FOO_A_BIT"))
	require.Equal(`\1Bit`, c.Rules[0].Actions.Rename)

	p, err := c.Profile("")
	require.NoError(err)
	require.Equal("minimal", p.Name)
	require.Equal("vulkan", p.API)
	require.Equal([]string{"vulkansc"}, p.ExcludeAPIs)
	require.Equal([]string{"VK_KHR_surface"}, p.Extensions)
	require.Equal("typedef", p.Flags64)
	require.Equal("vull::vkb", p.Namespace)
	require.Equal("out", p.Output.Dir)
	require.Equal("ContextTable.hh", p.Output.Declarations)
	require.Len(p.TableMembers, 3)

	expr, ok := p.BoundParam("device")
	require.True(ok)
	require.Equal("m_device", expr)
	_, ok = p.BoundParam("pAllocator")
	require.False(ok)
	expr, ok = p.BoundParam("commandBuffer")
	require.True(ok)
	require.Equal("m_cmd", expr)

	names, err := p.CoreFeatureNames()
	require.NoError(err)
	require.Equal([]string{"VK_VERSION_1_0", "VK_VERSION_1_1"}, names)
}

func TestUnknownField(t *testing.T) {
	require := require.New(t)
	path := writeFile(t, t.TempDir(), "vkgen.toml", `
[[profile]]
name = "a"
extentions = ["VK_KHR_surface"]
`)
	_, err := Load(path)
	var cErr *Error
	require.True(errors.As(err, &cErr))
	var tErr *toml.StrictMissingError
	require.True(errors.As(err, &tErr))
	require.Contains(cErr.String(), "extentions")
}

func TestImportError(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	imported := writeFile(t, dir, "broken.toml", `registry = `)
	path := writeFile(t, dir, "vkgen.toml", `imports = ["broken.toml"]`)

	_, err := Load(path)
	var cErr *Error
	require.True(errors.As(err, &cErr))
	require.Equal(imported, cErr.filePath)
}

func TestProfileSelection(t *testing.T) {
	two := &Config{Profiles: []Profile{{Name: "a"}, {Name: "b"}}}

	for _, tc := range []struct {
		name    string
		c       *Config
		profile string
		want    string
		wantErr string
	}{
		{name: "single", c: &Config{Profiles: []Profile{{Name: "a"}}}, want: "a"},
		{name: "explicit", c: two, profile: "b", want: "b"},
		{name: "use-profile", c: &Config{UseProfile: "a", Profiles: two.Profiles}, want: "a"},
		{name: "explicit over use-profile", c: &Config{UseProfile: "a", Profiles: two.Profiles}, profile: "b", want: "b"},
		{name: "ambiguous", c: two, wantErr: "2 profiles defined (a, b), select one with use-profile or -profile"},
		{name: "none", c: &Config{}, wantErr: "no profile defined"},
		{name: "unknown", c: two, profile: "c", wantErr: `unknown profile "c"`},
		{name: "duplicate", c: &Config{Profiles: []Profile{{Name: "a"}, {Name: "a"}}}, profile: "a", wantErr: `duplicate profile "a"`},
		{name: "bad flags64", c: &Config{Profiles: []Profile{{Name: "a", Flags64: "bits"}}}, wantErr: `profile "a": flags64: expected "enum" or "typedef", got "bits"`},
		{name: "bad core version", c: &Config{Profiles: []Profile{{Name: "a", CoreVersions: []string{"one"}}}}, wantErr: `profile "a": invalid core version "one"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require := require.New(t)
			p, err := tc.c.Profile(tc.profile)
			if tc.wantErr != "" {
				require.EqualError(err, tc.wantErr)
				return
			}
			require.NoError(err)
			require.Equal(tc.want, p.Name)
		})
	}
}

func TestCoreFeatureNames(t *testing.T) {
	require := require.New(t)
	p := &Profile{CoreVersions: []string{"VK_VERSION_1_3", "1.0", "1.2", "VK_VERSION_1_0", "1.1"}}
	names, err := p.CoreFeatureNames()
	require.NoError(err)
	require.Equal([]string{"VK_VERSION_1_0", "VK_VERSION_1_1", "VK_VERSION_1_2", "VK_VERSION_1_3"}, names)
}

func TestDefaultsNotShared(t *testing.T) {
	require := require.New(t)
	c := &Config{Profiles: []Profile{{Name: "a"}}}
	p, err := c.Profile("")
	require.NoError(err)
	p.BoundParams["device"] = "changed"
	p.ExcludeAPIs[0] = "changed"
	require.Equal("m_device", DefaultProfile().BoundParams["device"])

	p, err = c.Profile("")
	require.NoError(err)
	require.Equal("m_device", p.BoundParams["device"])
	require.Equal([]string{"vulkansc"}, p.ExcludeAPIs)
}

func TestExampleConfig(t *testing.T) {
	require := require.New(t)
	c, err := Load(filepath.Join("..", "examples", "vull", "vkgen.toml"))
	require.NoError(err)
	p, err := c.Profile("")
	require.NoError(err)
	require.Equal([]string{
		"VK_EXT_debug_utils",
		"VK_EXT_descriptor_buffer",
		"VK_EXT_shader_atomic_float2",
		"VK_EXT_validation_features",
		"VK_KHR_surface",
		"VK_KHR_swapchain",
		"VK_KHR_xcb_surface",
	}, p.Extensions)
	require.Len(c.Rules, 2)
}
