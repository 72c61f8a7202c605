package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refaktor/vkgen/registry"
	"github.com/refaktor/vkgen/registry/registrytest"
)

func TestClassify(t *testing.T) {
	reg := registrytest.Load(t)
	c := NewClassifier(reg, DefaultOptions())

	for _, tc := range []struct {
		command string
		want    Scope
	}{
		{"vkCreateInstance", Loader},
		{"vkEnumerateInstanceVersion", Loader},
		{"vkDestroyInstance", Instance},
		{"vkEnumeratePhysicalDevices", Instance},
		{"vkGetPhysicalDeviceQueueFamilyProperties", Instance},
		{"vkCreateDevice", Instance},
		{"vkGetDeviceProcAddr", Instance},
		{"vkGetPhysicalDeviceFeatures2KHR", Instance},
		{"vkDestroySurfaceKHR", Instance},
		{"vkCreateXcbSurfaceKHR", Instance},
		{"vkGetDeviceQueue", Device},
		{"vkQueueWaitIdle", Device},
		{"vkQueuePresentKHR", Device},
		// VkCommandBuffer -> VkCommandPool -> VkDevice
		{"vkCmdDraw", Device},
	} {
		t.Run(tc.command, func(t *testing.T) {
			require := require.New(t)
			cmd := reg.Command(tc.command)
			require.NotNil(cmd)
			s, ok := c.Classify(cmd)
			require.True(ok)
			require.Equal(tc.want, s, "got %v", s)
		})
	}

	_, ok := c.Classify(reg.Command("vkGetInstanceProcAddr"))
	require.False(t, ok)
}

func TestClassifyAll(t *testing.T) {
	require := require.New(t)
	reg := registrytest.Load(t)
	c := NewClassifier(reg, DefaultOptions())

	var cmds []*registry.Command
	for _, name := range []string{
		"vkCmdDraw",
		"vkCreateDevice",
		"vkCreateInstance",
		"vkEnumerateInstanceVersion",
		"vkGetDeviceProcAddr",
		"vkGetInstanceProcAddr",
		"vkQueueWaitIdle",
	} {
		cmds = append(cmds, reg.Command(name))
	}
	got := c.ClassifyAll(cmds)
	require.Equal([]string{"vkCreateInstance", "vkEnumerateInstanceVersion"}, got.Loader)
	require.Equal([]string{"vkCreateDevice", "vkGetDeviceProcAddr"}, got.Instance)
	require.Equal([]string{"vkCmdDraw", "vkQueueWaitIdle"}, got.Device)
	require.Equal(got.Device, got.Of(Device))
}

func TestCustomCommandNames(t *testing.T) {
	require := require.New(t)
	reg := registrytest.Load(t)
	opts := DefaultOptions()
	opts.BootstrapCommand = "vkGetDeviceProcAddr"
	opts.DeviceLoaderCommand = ""
	c := NewClassifier(reg, opts)

	_, ok := c.Classify(reg.Command("vkGetDeviceProcAddr"))
	require.False(ok)
	s, ok := c.Classify(reg.Command("vkGetInstanceProcAddr"))
	require.True(ok)
	require.Equal(Instance, s)
}

func TestDescendsFrom(t *testing.T) {
	reg := registrytest.Parse(t, `<registry>
	<types>
		<type category="handle"><type>VK_DEFINE_HANDLE</type>(<name>VkInstance</name>)</type>
		<type category="handle" parent="VkInstance"><type>VK_DEFINE_HANDLE</type>(<name>VkDevice</name>)</type>
		<type category="handle" parent="VkDevice"><type>VK_DEFINE_NON_DISPATCHABLE_HANDLE</type>(<name>VkTemplate</name>)</type>
		<type category="handle" name="VkTemplateKHR" alias="VkTemplate"/>
		<type category="handle" parent="VkTemplateKHR"><type>VK_DEFINE_NON_DISPATCHABLE_HANDLE</type>(<name>VkChild</name>)</type>
		<type category="handle" parent="VkLoopB,VkInstance"><type>VK_DEFINE_NON_DISPATCHABLE_HANDLE</type>(<name>VkLoopA</name>)</type>
		<type category="handle" parent="VkLoopA"><type>VK_DEFINE_NON_DISPATCHABLE_HANDLE</type>(<name>VkLoopB</name>)</type>
	</types>
</registry>`, registry.Options{})
	c := NewClassifier(reg, DefaultOptions())

	for _, tc := range []struct {
		typ, ancestor string
		want          bool
	}{
		{"VkDevice", "VkDevice", true},
		{"VkDevice", "VkInstance", true},
		{"VkInstance", "VkDevice", false},
		{"VkTemplateKHR", "VkDevice", true},
		{"VkChild", "VkInstance", true},
		{"VkLoopB", "VkInstance", true},
		{"VkLoopB", "VkDevice", false},
		{"uint32_t", "VkInstance", false},
	} {
		require.Equal(t, tc.want, c.DescendsFrom(tc.typ, tc.ancestor), "%v -> %v", tc.typ, tc.ancestor)
	}
}

func TestScopeString(t *testing.T) {
	require := require.New(t)
	require.Equal("loader", Loader.String())
	require.Equal("instance", Instance.String())
	require.Equal("device", Device.String())
}
