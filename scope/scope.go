// Package scope decides which initialization routine loads the function
// pointer of each command.
package scope

import (
	"strings"

	"github.com/refaktor/vkgen/registry"
)

type Scope int

const (
	// Loaded without an instance.
	Loader Scope = iota
	// Loaded after the instance was created.
	Instance
	// Loaded after the device was created.
	Device
)

func (s Scope) String() string {
	switch s {
	case Loader:
		return "loader"
	case Instance:
		return "instance"
	case Device:
		return "device"
	default:
		return "invalid"
	}
}

type Options struct {
	InstanceHandle string
	DeviceHandle   string
	// Entry point that loads everything else. It has no scope of its own.
	BootstrapCommand string
	// Fetches device scoped pointers, so it is always instance scoped.
	DeviceLoaderCommand string
}

func DefaultOptions() Options {
	return Options{
		InstanceHandle:      "VkInstance",
		DeviceHandle:        "VkDevice",
		BootstrapCommand:    "vkGetInstanceProcAddr",
		DeviceLoaderCommand: "vkGetDeviceProcAddr",
	}
}

type Classifier struct {
	reg  *registry.Registry
	opts Options
}

func NewClassifier(reg *registry.Registry, opts Options) *Classifier {
	return &Classifier{reg: reg, opts: opts}
}

// DescendsFrom reports whether typ is ancestor or one of its declared
// parents descends from ancestor. Type aliases are followed.
func (c *Classifier) DescendsFrom(typ, ancestor string) bool {
	return c.descends(typ, ancestor, map[string]bool{})
}

func (c *Classifier) descends(typ, ancestor string, visited map[string]bool) bool {
	if typ == ancestor {
		return true
	}
	if visited[typ] {
		return false
	}
	visited[typ] = true
	ty := c.reg.CanonicalType(typ)
	if ty == nil {
		return false
	}
	if ty.Name == ancestor {
		return true
	}
	for _, p := range ty.Parents {
		if c.descends(strings.TrimSpace(p), ancestor, visited) {
			return true
		}
	}
	return false
}

// Classify returns the scope of cmd. ok is false for the bootstrap
// command.
func (c *Classifier) Classify(cmd *registry.Command) (s Scope, ok bool) {
	if cmd.Name == c.opts.BootstrapCommand {
		return 0, false
	}
	if cmd.Name == c.opts.DeviceLoaderCommand {
		return Instance, true
	}
	if len(cmd.Params) == 0 {
		return Loader, true
	}
	// Params tagged with excluded APIs were dropped by the registry.
	typ := cmd.Params[0].Type
	switch {
	case c.DescendsFrom(typ, c.opts.DeviceHandle):
		return Device, true
	case c.DescendsFrom(typ, c.opts.InstanceHandle):
		return Instance, true
	default:
		return Loader, true
	}
}

// Commands holds command names per scope, in input order.
type Commands struct {
	Loader   []string
	Instance []string
	Device   []string
}

func (c *Commands) Of(s Scope) []string {
	switch s {
	case Loader:
		return c.Loader
	case Instance:
		return c.Instance
	default:
		return c.Device
	}
}

func (c *Classifier) ClassifyAll(cmds []*registry.Command) Commands {
	var res Commands
	for _, cmd := range cmds {
		s, ok := c.Classify(cmd)
		if !ok {
			continue
		}
		switch s {
		case Loader:
			res.Loader = append(res.Loader, cmd.Name)
		case Instance:
			res.Instance = append(res.Instance, cmd.Name)
		case Device:
			res.Device = append(res.Device, cmd.Name)
		}
	}
	return res
}
