// Package compose rewrites the port-range mapping of a docker-compose file
// to span the ports allocated in the generated configuration.
package compose

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultService is the compose service whose port mapping is rewritten.
const DefaultService = "v2ray"

type document struct {
	Services map[string]service `yaml:"services"`
}

type service struct {
	Ports []string `yaml:"ports"`
}

// PatchPorts replaces the first port mapping of the named service with
// "{min}-{max}:{min}-{max}" over the allocated ports. The rest of the file
// is preserved byte-for-byte. A missing file or service is a warning, not an
// error: by the time this runs the primary config is already committed.
func PatchPorts(path, serviceName string, ports []int) error {
	if len(ports) == 0 {
		logrus.Warnf("No ports allocated, leaving %s untouched", path)
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Warnf("Compose file %s not found, port mappings not updated", path)
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	svc, ok := doc.Services[serviceName]
	if !ok || len(svc.Ports) == 0 {
		logrus.Warnf("Service %s has no port mapping in %s, nothing to update", serviceName, path)
		return nil
	}

	lo, hi := minMax(ports)
	mapping := fmt.Sprintf("%d-%d:%d-%d", lo, hi, lo, hi)
	patched := strings.ReplaceAll(string(raw), svc.Ports[0], mapping)
	if err := os.WriteFile(path, []byte(patched), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logrus.Infof("Updated compose port mappings to %s", mapping)
	return nil
}

func minMax(ports []int) (int, int) {
	lo, hi := ports[0], ports[0]
	for _, p := range ports[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return lo, hi
}
