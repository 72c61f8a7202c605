// Package registrytest provides a small registry document for tests.
package registrytest

import (
	_ "embed"
	"strings"
	"testing"

	"github.com/refaktor/vkgen/registry"
)

// XML is a trimmed down vk.xml.
//
//go:embed testdata/vk.xml
var XML string

// Options are the options tests usually load with.
var Options = registry.Options{
	API:         "vulkan",
	ExcludeAPIs: []string{"vulkansc"},
}

// Load parses [XML] with [Options].
func Load(t testing.TB) *registry.Registry {
	t.Helper()
	return Parse(t, XML, Options)
}

// Parse parses a registry document, failing the test on error.
func Parse(t testing.TB, doc string, opts registry.Options) *registry.Registry {
	t.Helper()
	reg, err := registry.Load(strings.NewReader(doc), opts)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}
