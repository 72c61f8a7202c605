package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/refaktor/vkgen"
	"github.com/refaktor/vkgen/config"
)

var (
	optConfig         string
	optProfile        string
	optDownloadLatest bool
	optManifest       string
	optDOT            string
	optQuiet          bool
)

func init() {
	flag.StringVar(&optConfig, "config", "vkgen.toml", "configuration file")
	flag.StringVar(&optProfile, "profile", "", "profile to generate (default: use-profile from the configuration)")
	flag.BoolVar(&optDownloadLatest, "download-latest", false, "download the latest vk.xml to the configured registry path and exit")
	flag.StringVar(&optManifest, "manifest", "", "write a YAML manifest of the selection to this file")
	flag.StringVar(&optDOT, "dot", "", "write the type dependency graph in graphviz DOT format to this file")
	flag.BoolVar(&optQuiet, "quiet", false, "only log warnings and errors, don't print stats")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `usage: vkgen [options...]

options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(),
			`
examples:
  vkgen
  	Generate the default profile of ./vkgen.toml
  vkgen -profile headless -manifest selection.yaml
  	Generate the "headless" profile and list what was selected
  vkgen -download-latest
  	Refresh the registry file from the configured URL
`)
	}
}

// fatal logs err and exits. Config errors are printed in full.
func fatal(log *vkgen.Logger, err error) {
	if cfgErr := (&config.Error{}); errors.As(err, &cfgErr) {
		log.Log(vkgen.FATAL, "%v", cfgErr.String())
	}
	log.Log(vkgen.FATAL, "%v", err)
}

func main() {
	flag.Parse()
	if flag.NArg() != 0 {
		flag.Usage()
		os.Exit(1)
	}

	log := &vkgen.Logger{Writer: os.Stderr, Prefix: "vkgen"}
	if optQuiet {
		log.MinLevel = vkgen.WARN
	}
	opts := vkgen.Options{
		ConfigPath:   optConfig,
		Profile:      optProfile,
		ManifestPath: optManifest,
		DOTPath:      optDOT,
		Log:          log,
	}

	if optDownloadLatest {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err := vkgen.Download(ctx, opts)
		stop()
		if err != nil {
			fatal(log, err)
		}
		return
	}

	res, err := vkgen.Run(opts)
	if err != nil {
		fatal(log, err)
	}
	if !optQuiet {
		res.WriteStats(os.Stdout)
		fmt.Println()
		for _, f := range res.Files {
			fmt.Println("Wrote", f)
		}
	}
}
