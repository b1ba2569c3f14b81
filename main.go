// ss2xray
// Converts a Shadowsocks node list into an xray routing configuration,
// keeping at most two representative nodes per inferred region.
package main

import (
	"flag"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"ss2xray/internal/compose"
	"ss2xray/internal/node"
	"ss2xray/internal/region"
	"ss2xray/internal/xray"
)

func main() {
	// Parse command-line flags
	input := flag.String("input", "shadowsocks.json", "Input node list (file path or http(s) URL)")
	output := flag.String("output", "config.json", "Output xray config file")
	startPort := flag.Int("port", 10001, "Starting local port for inbounds")
	appendMode := flag.Bool("append", false, "Append to an existing output file instead of replacing it")
	composePath := flag.String("compose", "", "docker-compose file to update with the allocated port range (optional)")
	mmdbPath := flag.String("mmdb", "", "MaxMind country database for resolving unlabeled nodes (optional)")
	flag.Parse()

	records, err := node.Load(*input)
	if err != nil {
		logrus.Errorf("load input: %v", err)
		os.Exit(1)
	}
	logrus.Infof("Loaded %d nodes from %s", len(records), *input)

	valid, dropped := node.FilterInfo(records)
	logrus.Infof("Found %d valid nodes after filtering info nodes (%d dropped)", len(valid), dropped)

	candidates := region.Extract(valid)
	logrus.Infof("Detected %d possible regions from node names", len(candidates))
	if len(candidates) > 0 {
		logrus.Infof("Detected regions: %s", strings.Join(candidates, ", "))
	}

	var resolver region.CountryResolver
	if *mmdbPath != "" {
		r, err := region.OpenResolver(*mmdbPath)
		if err != nil {
			logrus.Warnf("GeoIP fallback disabled: %v", err)
		} else {
			defer r.Close()
			resolver = r
		}
	}

	buckets := region.Group(valid, candidates, resolver)
	logrus.Infof("Grouped nodes into %d regions", len(buckets))

	selected := region.SelectRepresentatives(buckets)

	cfg, port := xray.LoadOrCreate(*output, *appendMode, *startPort)
	for _, rec := range selected {
		cfg.Append(rec, port)
		port++
	}
	cfg.AppendDirect()

	if err := cfg.Write(*output); err != nil {
		logrus.Errorf("write output: %v", err)
		os.Exit(1)
	}
	logrus.Infof("Wrote configuration to %s", *output)

	if *composePath != "" {
		if err := compose.PatchPorts(*composePath, compose.DefaultService, cfg.Ports()); err != nil {
			logrus.Warnf("Compose update skipped: %v", err)
		}
	}

	mode := "generated"
	if *appendMode {
		mode = "appended to"
	}
	logrus.Infof("Config %s %s: %d nodes from %d regions", mode, *output, len(selected), len(buckets))
}
