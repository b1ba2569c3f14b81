package xray

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"ss2xray/internal/node"
)

const (
	// DirectTag names the trailing catch-all outbound.
	DirectTag = "direct"

	domainStrategy = "IPIfNonMatch"
)

// NewConfig returns an empty configuration document.
func NewConfig() *Config {
	return &Config{
		Inbounds:  []Inbound{},
		Outbounds: []Outbound{},
		Routing: Routing{
			Rules:          []Rule{},
			DomainStrategy: domainStrategy,
		},
	}
}

// LoadOrCreate returns the document new entries are appended to, and the
// first port safe to allocate. In append mode an existing file becomes the
// base and the start port is bumped past its highest inbound port; a missing
// or unreadable file falls back to a fresh document. Gaps in the existing
// port sequence are not reused.
func LoadOrCreate(path string, appendMode bool, startPort int) (*Config, int) {
	if !appendMode {
		return NewConfig(), startPort
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.Warnf("Cannot read existing config %s: %v, starting fresh", path, err)
		}
		return NewConfig(), startPort
	}

	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		logrus.Warnf("Cannot parse existing config %s: %v, starting fresh", path, err)
		return NewConfig(), startPort
	}
	logrus.Infof("Loaded existing configuration from %s for appending", path)

	if max, ok := maxPort(cfg.Inbounds); ok && startPort <= max {
		startPort = max + 1
		logrus.Infof("Adjusted start port to %d to avoid conflicts", startPort)
	}
	return cfg, startPort
}

func maxPort(inbounds []Inbound) (int, bool) {
	if len(inbounds) == 0 {
		return 0, false
	}
	max := inbounds[0].Port
	for _, in := range inbounds[1:] {
		if in.Port > max {
			max = in.Port
		}
	}
	return max, true
}

// Append adds the inbound/outbound/rule triple for one node on the given
// local port.
func (c *Config) Append(rec node.Record, port int) {
	inTag := fmt.Sprintf("in-%d-%s", port, rec.Remarks)
	outTag := fmt.Sprintf("out-%d-%s", port, rec.Remarks)

	c.Inbounds = append(c.Inbounds, Inbound{
		Port:     port,
		Protocol: "socks",
		Settings: InboundSettings{Auth: "noauth", UDP: true, UserLevel: 1},
		Tag:      inTag,
		Sniffing: Sniffing{Enabled: true, DestOverride: []string{"http", "tls"}},
	})
	c.Outbounds = append(c.Outbounds, Outbound{
		Protocol: "shadowsocks",
		Settings: &OutboundSettings{Servers: []Server{{
			Address:  rec.Server,
			Port:     rec.ServerPort,
			Method:   rec.Method,
			Password: rec.Password,
			Level:    1,
		}}},
		Tag: outTag,
	})
	c.Routing.Rules = append(c.Routing.Rules, Rule{
		Type:        "field",
		InboundTag:  []string{inTag},
		OutboundTag: outTag,
	})
}

// AppendDirect adds the unconditional catch-all outbound. It has no paired
// inbound or rule and must stay last.
func (c *Config) AppendDirect() {
	c.Outbounds = append(c.Outbounds, Outbound{Protocol: "freedom", Tag: DirectTag})
}

// Ports lists the ports of all inbounds.
func (c *Config) Ports() []int {
	ports := make([]int, 0, len(c.Inbounds))
	for _, in := range c.Inbounds {
		ports = append(ports, in.Port)
	}
	return ports
}

// Write persists the document. Labels carry CJK text, so HTML escaping is
// off; the write goes through a temp file and rename so a failed run leaves
// no partial output behind.
func (c *Config) Write(path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".ss2xray-*.json")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
