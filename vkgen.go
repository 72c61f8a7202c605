package vkgen

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/refaktor/vkgen/config"
	"github.com/refaktor/vkgen/emitter"
	"github.com/refaktor/vkgen/enumval"
	"github.com/refaktor/vkgen/fetch"
	"github.com/refaktor/vkgen/registry"
	"github.com/refaktor/vkgen/scope"
	"github.com/refaktor/vkgen/selector"
	"github.com/refaktor/vkgen/typeorder"
)

type Options struct {
	ConfigPath string
	// Profile name; empty selects the configured default.
	Profile string
	// Optional output paths.
	ManifestPath string
	DOTPath      string
	Log          *Logger
}

// Manifest lists what a run selected. It is written as YAML.
type Manifest struct {
	Profile  string    `yaml:"profile"`
	Features []string  `yaml:"features"`
	Implied  []Implied `yaml:"implied,omitempty"`
	Skipped  []Skipped `yaml:"skipped,omitempty"`
	Commands struct {
		Loader   []string `yaml:"loader"`
		Instance []string `yaml:"instance"`
		Device   []string `yaml:"device"`
	} `yaml:"commands"`
	// Types in emission order.
	Types []string `yaml:"types"`
}

type Implied struct {
	Name       string `yaml:"name"`
	RequiredBy string `yaml:"required-by"`
}

type Skipped struct {
	Feature string `yaml:"feature"`
	Depends string `yaml:"depends"`
}

type stage struct {
	name string
	time time.Duration
}

// Result describes a finished run.
type Result struct {
	Manifest Manifest
	// Paths of the written artifacts.
	Files []string

	plan   *emitter.Plan
	stages []stage
}

// Run loads the configuration and registry, and writes the artifacts of
// the selected profile.
func Run(opts Options) (*Result, error) {
	res := &Result{}
	timeStart := time.Now()
	lap := func(name string) {
		res.stages = append(res.stages, stage{name, time.Since(timeStart)})
		timeStart = time.Now()
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	prof, err := cfg.Profile(opts.Profile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	res.Manifest.Profile = prof.Name

	regPath := cfg.RegistryPath()
	if have, err := (&fetch.Registry{Dest: regPath}).Have(); err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	} else if !have {
		return nil, fmt.Errorf("load registry: %v is missing or incomplete, download it with -download-latest", regPath)
	}
	reg, err := registry.LoadFile(regPath, registry.Options{
		API:         prof.API,
		ExcludeAPIs: prof.ExcludeAPIs,
	})
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	lap("Load registry")

	cores, err := prof.CoreFeatureNames()
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	sel, err := selector.Select(reg, selector.Request{
		CoreVersions: cores,
		Extensions:   prof.Extensions,
	})
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	for _, imp := range sel.Implied {
		opts.Log.Infof("Implicitly generating %v, needed by %v", imp.Name, imp.RequiredBy)
		res.Manifest.Implied = append(res.Manifest.Implied, Implied(imp))
	}
	for _, sk := range sel.Skipped {
		opts.Log.Warnf("Skipping functionality of %v gated behind %v", sk.Feature, sk.Depends)
		res.Manifest.Skipped = append(res.Manifest.Skipped, Skipped(sk))
	}
	for _, f := range sel.Features {
		res.Manifest.Features = append(res.Manifest.Features, f.Name)
	}
	cmds, err := sel.Commands()
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	lap("Select features")

	enums, err := enumval.Resolve(reg, sel.EnumExtensions)
	if err != nil {
		return nil, fmt.Errorf("resolve enums: %w", err)
	}
	graph, err := typeorder.Build(reg, sel.TypeNames)
	if err != nil {
		return nil, fmt.Errorf("order types: %w", err)
	}
	types, err := graph.Order()
	if err != nil {
		return nil, fmt.Errorf("order types: %w", err)
	}
	if n := len(graph.Types) - graph.NumSelected; n > 0 {
		opts.Log.Infof("Added %v types referenced by selected types", n)
	}
	res.Manifest.Types = types
	cls := scope.NewClassifier(reg, scope.Options{
		InstanceHandle:      prof.InstanceHandle,
		DeviceHandle:        prof.DeviceHandle,
		BootstrapCommand:    prof.BootstrapCommand,
		DeviceLoaderCommand: prof.DeviceLoaderCommand,
	})
	scopes := cls.ClassifyAll(cmds)
	res.Manifest.Commands.Loader = scopes.Loader
	res.Manifest.Commands.Instance = scopes.Instance
	res.Manifest.Commands.Device = scopes.Device
	lap("Resolve and order")

	plan, err := emitter.NewPlan(emitter.Input{
		Registry: reg,
		Profile:  prof,
		Rules:    cfg.Rules,
		Types:    types,
		Commands: cmds,
		Scopes:   scopes,
		Enums:    enums,
	})
	if err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}
	res.plan = plan

	outDir := cfg.Path(prof.Output.Dir)
	if outDir == "" {
		outDir = cfg.Dir
	}
	for _, out := range []struct {
		path string
		code *emitter.CodeBuilder
	}{
		{prof.Output.Types, plan.Types()},
		{prof.Output.Declarations, plan.Declarations()},
		{prof.Output.Definitions, plan.Definitions()},
	} {
		path := filepath.Join(outDir, out.path)
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return nil, fmt.Errorf("emit: %w", err)
		}
		if err := out.code.SaveToFile(path); err != nil {
			return nil, fmt.Errorf("emit: %w", err)
		}
		res.Files = append(res.Files, path)
	}

	if opts.ManifestPath != "" {
		data, err := yaml.Marshal(&res.Manifest)
		if err != nil {
			return nil, fmt.Errorf("write manifest: %w", err)
		}
		if err := os.WriteFile(opts.ManifestPath, data, 0666); err != nil {
			return nil, fmt.Errorf("write manifest: %w", err)
		}
	}
	if opts.DOTPath != "" {
		if err := os.WriteFile(opts.DOTPath, graph.DOT(), 0666); err != nil {
			return nil, fmt.Errorf("write type graph: %w", err)
		}
	}
	lap("Write code")

	return res, nil
}

// Download replaces the configured registry file with the latest
// version from the configured URL. The document must load with the API
// settings of the selected profile.
func Download(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	prof, err := cfg.Profile(opts.Profile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	url := cfg.RegistryURL
	if url == "" {
		url = config.DefaultRegistryURL
	}
	reg := &fetch.Registry{
		URL:  url,
		Dest: cfg.RegistryPath(),
		Options: registry.Options{
			API:         prof.API,
			ExcludeAPIs: prof.ExcludeAPIs,
		},
	}
	opts.Log.Infof("Downloading %v to %v", url, reg.Dest)
	if err := reg.Get(ctx); err != nil {
		return fmt.Errorf("download registry: %w", err)
	}
	return nil
}

// WriteStats prints tables of the emitted entities and the time spent
// per stage.
func (r *Result) WriteStats(w io.Writer) {
	p := r.plan
	fmt.Fprintf(w, "==Generation stats==\n")
	{
		tbl := tablewriter.NewWriter(w)
		tbl.SetHeader([]string{"Category", "Emitted"})
		count := func(n int) string { return strconv.Itoa(n) }
		tbl.AppendBulk([][]string{
			{"Constants", count(len(p.Constants))},
			{"Base types", count(len(p.BaseTypes))},
			{"Bitmasks", count(len(p.Bitmasks))},
			{"Handles", count(len(p.Handles))},
			{"Enums", count(len(p.Enums))},
			{"Structs, unions and function pointers", count(len(p.Composites))},
			{"Loader commands", count(len(p.Scopes.Loader))},
			{"Instance commands", count(len(p.Scopes.Instance))},
			{"Device commands", count(len(p.Scopes.Device))},
		})
		tbl.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})
		tbl.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		tbl.SetCenterSeparator("|")
		tbl.Render()
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "==Timing stats==\n")
	{
		var timeTotal time.Duration
		for _, s := range r.stages {
			timeTotal += s.time
		}
		timePercent := func(t time.Duration) string {
			if timeTotal == 0 {
				return "0.00"
			}
			return strconv.FormatFloat(
				float64(t)/float64(timeTotal)*100,
				'f', 2, 64,
			)
		}

		tbl := tablewriter.NewWriter(w)
		tbl.SetHeader([]string{"Task", "Time", "Time %"})
		for _, s := range r.stages {
			tbl.Append([]string{s.name, s.time.String(), timePercent(s.time)})
		}
		tbl.Append([]string{"==TOTAL==", timeTotal.String(), "100"})
		tbl.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT})
		tbl.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		tbl.SetCenterSeparator("|")
		tbl.Render()
	}
}
