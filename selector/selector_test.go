package selector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refaktor/vkgen/depexpr"
	"github.com/refaktor/vkgen/registry"
	"github.com/refaktor/vkgen/registry/registrytest"
)

func featureNames(sel *Selection) []string {
	var names []string
	for _, f := range sel.Features {
		names = append(names, f.Name)
	}
	return names
}

func commandNames(t *testing.T, sel *Selection) []string {
	cmds, err := sel.Commands()
	require.NoError(t, err)
	var names []string
	for _, cmd := range cmds {
		names = append(names, cmd.Name)
	}
	return names
}

func TestSelect(t *testing.T) {
	require := require.New(t)
	reg := registrytest.Load(t)

	sel, err := Select(reg, Request{
		CoreVersions: []string{"VK_VERSION_1_1", "VK_VERSION_1_0"},
		Extensions:   []string{"VK_KHR_swapchain"},
	})
	require.NoError(err)

	require.Equal([]string{"VK_VERSION_1_0", "VK_VERSION_1_1", "VK_KHR_swapchain", "VK_KHR_surface"}, featureNames(sel))
	require.Equal([]Implied{{Name: "VK_KHR_surface", RequiredBy: "VK_KHR_swapchain"}}, sel.Implied)
	require.Equal([]Skipped{{Feature: "VK_KHR_swapchain", Depends: "VK_KHR_device_group"}}, sel.Skipped)
	require.True(sel.Enabled("VK_KHR_surface"))
	require.False(sel.Enabled("VK_VERSION_1_3"))

	require.Equal([]string{
		"vkCmdDraw",
		"vkCreateDevice",
		"vkCreateInstance",
		"vkDestroyInstance",
		"vkDestroySurfaceKHR",
		"vkEnumerateInstanceVersion",
		"vkEnumeratePhysicalDevices",
		"vkGetDeviceProcAddr",
		"vkGetDeviceQueue",
		"vkGetInstanceProcAddr",
		"vkGetPhysicalDeviceFeatures2",
		"vkGetPhysicalDeviceQueueFamilyProperties",
		"vkGetPhysicalDeviceSurfaceCapabilitiesKHR",
		"vkQueuePresentKHR",
		"vkQueueWaitIdle",
	}, commandNames(t, sel))

	var enums []string
	for _, e := range sel.EnumExtensions {
		if e.Extends != "" {
			enums = append(enums, e.Name)
		}
	}
	require.Equal([]string{
		"VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_FEATURES_2",
		"VK_STRUCTURE_TYPE_SWAPCHAIN_CREATE_INFO_KHR",
		"VK_ERROR_OUT_OF_DATE_KHR",
		"VK_STRUCTURE_TYPE_DEVICE_GROUP_PRESENT_CAPABILITIES_KHR",
		"VK_ERROR_SURFACE_LOST_KHR",
	}, enums)

	for _, e := range sel.EnumExtensions {
		switch e.Feature {
		case "VK_VERSION_1_0", "VK_VERSION_1_1":
			require.Equal(0, e.OwnerNumber, e.Name)
		case "VK_KHR_swapchain":
			require.Equal(2, e.OwnerNumber, e.Name)
		case "VK_KHR_surface":
			require.Equal(1, e.OwnerNumber, e.Name)
		}
	}
	require.Contains(sel.TypeNames, "VkSurfaceKHR")
	require.Contains(sel.TypeNames, "VkPhysicalDeviceFeatures2")
}

func TestSelectIdempotent(t *testing.T) {
	require := require.New(t)
	reg := registrytest.Load(t)
	req := Request{
		CoreVersions: []string{"VK_VERSION_1_0", "VK_VERSION_1_1", "VK_VERSION_1_2", "VK_VERSION_1_3"},
		Extensions:   []string{"VK_KHR_xcb_surface", "VK_KHR_swapchain", "VK_KHR_xcb_surface"},
	}
	a, err := Select(reg, req)
	require.NoError(err)
	b, err := Select(reg, req)
	require.NoError(err)
	require.Equal(a, b)
	require.Equal([]string{
		"VK_VERSION_1_0", "VK_VERSION_1_1", "VK_VERSION_1_2", "VK_VERSION_1_3",
		"VK_KHR_xcb_surface", "VK_KHR_swapchain", "VK_KHR_surface",
	}, featureNames(a))
}

func TestSelectAliasedCommands(t *testing.T) {
	require := require.New(t)
	reg := registrytest.Load(t)

	sel, err := Select(reg, Request{
		CoreVersions: []string{"VK_VERSION_1_0", "VK_VERSION_1_1"},
		Extensions:   []string{"VK_KHR_get_physical_device_properties2"},
	})
	require.NoError(err)
	require.Empty(sel.Implied)
	require.Contains(sel.CommandNames, "vkGetPhysicalDeviceFeatures2KHR")

	n := 0
	for _, name := range commandNames(t, sel) {
		if name == "vkGetPhysicalDeviceFeatures2" {
			n++
		}
		require.NotEqual("vkGetPhysicalDeviceFeatures2KHR", name)
	}
	require.Equal(1, n)
}

func TestSelectComplexDepends(t *testing.T) {
	reg := registrytest.Load(t)
	cores := []string{"VK_VERSION_1_0"}

	t.Run("first alternative", func(t *testing.T) {
		require := require.New(t)
		sel, err := Select(reg, Request{
			CoreVersions: cores,
			Extensions:   []string{"VK_EXT_swapchain_maintenance1"},
		})
		require.NoError(err)
		require.Equal([]Implied{
			{Name: "VK_KHR_swapchain", RequiredBy: "VK_EXT_swapchain_maintenance1"},
			{Name: "VK_KHR_surface_maintenance1", RequiredBy: "VK_EXT_swapchain_maintenance1"},
			{Name: "VK_KHR_surface", RequiredBy: "VK_KHR_swapchain"},
		}, sel.Implied)
	})

	t.Run("already satisfied alternative", func(t *testing.T) {
		require := require.New(t)
		sel, err := Select(reg, Request{
			CoreVersions: cores,
			Extensions:   []string{"VK_EXT_surface_maintenance1", "VK_EXT_swapchain_maintenance1"},
		})
		require.NoError(err)
		require.False(sel.Enabled("VK_KHR_surface_maintenance1"))
		require.True(sel.Enabled("VK_KHR_swapchain"))
	})
}

func TestSelectCoreOnlyDependsIgnored(t *testing.T) {
	require := require.New(t)
	reg := registrytest.Load(t)

	sel, err := Select(reg, Request{
		CoreVersions: []string{"VK_VERSION_1_1"},
		Extensions:   []string{"VK_KHR_get_physical_device_properties2"},
	})
	require.NoError(err)
	require.False(sel.Enabled("VK_VERSION_1_0"))
	require.Empty(sel.Implied)
}

func TestSelectUnknownFeature(t *testing.T) {
	reg := registrytest.Load(t)
	for _, tc := range []struct {
		name string
		req  Request
		want UnknownFeatureError
	}{
		{
			name: "unknown extension",
			req:  Request{CoreVersions: []string{"VK_VERSION_1_0"}, Extensions: []string{"VK_KHR_bogus"}},
			want: UnknownFeatureError{Name: "VK_KHR_bogus", Reason: "not in registry"},
		},
		{
			name: "unknown core version",
			req:  Request{CoreVersions: []string{"VK_VERSION_9_9"}},
			want: UnknownFeatureError{Name: "VK_VERSION_9_9", Reason: "not in registry"},
		},
		{
			name: "extension as core version",
			req:  Request{CoreVersions: []string{"VK_KHR_surface"}},
			want: UnknownFeatureError{Name: "VK_KHR_surface", Reason: "not a core version"},
		},
		{
			name: "excluded core version",
			req:  Request{CoreVersions: []string{"VKSC_VERSION_1_0"}},
			want: UnknownFeatureError{Name: "VKSC_VERSION_1_0", Reason: "not in registry"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require := require.New(t)
			_, err := Select(reg, tc.req)
			var ufErr *UnknownFeatureError
			require.True(errors.As(err, &ufErr), "%v", err)
			require.Equal(tc.want, *ufErr)
		})
	}

	t.Run("disabled", func(t *testing.T) {
		require := require.New(t)
		_, err := Select(reg, Request{CoreVersions: []string{"VK_VERSION_1_0"}, Extensions: []string{"VK_AMD_extension_1"}})
		var ufErr *UnknownFeatureError
		require.True(errors.As(err, &ufErr), "%v", err)
		require.Equal("VK_AMD_extension_1", ufErr.Name)
		require.Contains(ufErr.Error(), "not supported")
	})

	t.Run("implicit dependency", func(t *testing.T) {
		require := require.New(t)
		reg := registrytest.Parse(t, `<registry>
	<extensions>
		<extension name="VK_KHR_a" number="3" depends="VK_KHR_missing" supported="vulkan"/>
	</extensions>
</registry>`, registrytest.Options)
		_, err := Select(reg, Request{Extensions: []string{"VK_KHR_a"}})
		var ufErr *UnknownFeatureError
		require.True(errors.As(err, &ufErr), "%v", err)
		require.Equal(UnknownFeatureError{Name: "VK_KHR_missing", RequiredBy: "VK_KHR_a", Reason: "not in registry"}, *ufErr)
	})
}

func TestSelectUndefinedCommand(t *testing.T) {
	require := require.New(t)
	reg := registrytest.Parse(t, `<registry>
	<feature api="vulkan" name="VK_VERSION_1_0" number="1.0">
		<require><command name="vkMissing"/></require>
	</feature>
</registry>`, registrytest.Options)

	sel, err := Select(reg, Request{CoreVersions: []string{"VK_VERSION_1_0"}})
	require.NoError(err)
	_, err = sel.Commands()
	var schemaErr *registry.SchemaError
	require.True(errors.As(err, &schemaErr))
	require.Equal("vkMissing", schemaErr.Name)
}

func TestSelectExcludedRequireBlock(t *testing.T) {
	require := require.New(t)
	reg := registrytest.Parse(t, `<registry>
	<feature api="vulkan" name="VK_VERSION_1_0" number="1.0">
		<require><type name="VkA"/></require>
		<require api="vulkansc"><type name="VkB"/></require>
	</feature>
</registry>`, registrytest.Options)

	sel, err := Select(reg, Request{CoreVersions: []string{"VK_VERSION_1_0"}})
	require.NoError(err)
	require.Equal([]string{"VkA"}, sel.TypeNames)
	require.Empty(sel.Skipped)
}

func TestSelectMalformedBlockDepends(t *testing.T) {
	require := require.New(t)
	reg := registrytest.Parse(t, `<registry>
	<feature api="vulkan" name="VK_VERSION_1_0" number="1.0">
		<require depends="VK_VERSION_1_0+(VK_KHR_x"><type name="VkC"/></require>
	</feature>
</registry>`, registrytest.Options)

	_, err := Select(reg, Request{CoreVersions: []string{"VK_VERSION_1_0"}})
	var exprErr *depexpr.Error
	require.True(errors.As(err, &exprErr), "%v", err)
	require.Contains(err.Error(), "VK_VERSION_1_0")
}
