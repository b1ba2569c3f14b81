package xray_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ss2xray/internal/node"
	"ss2xray/internal/xray"
)

func testRecords(n int) []node.Record {
	records := make([]node.Record, n)
	for i := range records {
		records[i] = node.Record{
			Remarks:    "HK-0" + string(rune('1'+i)),
			Server:     "1.2.3.4",
			ServerPort: 8388,
			Method:     "aes-256-gcm",
			Password:   "secret",
		}
	}
	return records
}

func buildConfig(records []node.Record, startPort int) *xray.Config {
	cfg := xray.NewConfig()
	port := startPort
	for _, rec := range records {
		cfg.Append(rec, port)
		port++
	}
	cfg.AppendDirect()
	return cfg
}

func TestAppendTriples(t *testing.T) {
	cfg := buildConfig(testRecords(3), 10001)

	if len(cfg.Inbounds) != 3 || len(cfg.Routing.Rules) != 3 {
		t.Fatalf("got %d inbounds, %d rules, want 3 each", len(cfg.Inbounds), len(cfg.Routing.Rules))
	}
	// 3 node outbounds plus the catch-all
	if len(cfg.Outbounds) != 4 {
		t.Fatalf("got %d outbounds, want 4", len(cfg.Outbounds))
	}

	for i, in := range cfg.Inbounds {
		wantPort := 10001 + i
		if in.Port != wantPort {
			t.Errorf("inbound[%d].Port = %d, want %d", i, in.Port, wantPort)
		}
		if in.Protocol != "socks" || in.Settings.Auth != "noauth" || !in.Settings.UDP {
			t.Errorf("inbound[%d] misconfigured: %+v", i, in)
		}
		if !strings.HasPrefix(in.Tag, "in-") {
			t.Errorf("inbound[%d].Tag = %q", i, in.Tag)
		}

		rule := cfg.Routing.Rules[i]
		if rule.Type != "field" || len(rule.InboundTag) != 1 || rule.InboundTag[0] != in.Tag {
			t.Errorf("rule[%d] not bound to inbound tag: %+v", i, rule)
		}
		if rule.OutboundTag != cfg.Outbounds[i].Tag {
			t.Errorf("rule[%d].OutboundTag = %q, want %q", i, rule.OutboundTag, cfg.Outbounds[i].Tag)
		}
	}

	out := cfg.Outbounds[0]
	if out.Protocol != "shadowsocks" || out.Settings == nil || len(out.Settings.Servers) != 1 {
		t.Fatalf("outbound misconfigured: %+v", out)
	}
	srv := out.Settings.Servers[0]
	if srv.Address != "1.2.3.4" || srv.Port != 8388 || srv.Method != "aes-256-gcm" || srv.Password != "secret" {
		t.Errorf("server credentials not copied through: %+v", srv)
	}
}

func TestDirectOutboundLast(t *testing.T) {
	cfg := buildConfig(testRecords(2), 10001)

	direct := 0
	for _, out := range cfg.Outbounds {
		if out.Tag == xray.DirectTag {
			direct++
		}
	}
	if direct != 1 {
		t.Fatalf("found %d direct outbounds, want 1", direct)
	}
	last := cfg.Outbounds[len(cfg.Outbounds)-1]
	if last.Tag != xray.DirectTag || last.Protocol != "freedom" || last.Settings != nil {
		t.Errorf("trailing outbound is not the catch-all: %+v", last)
	}
}

func TestLoadOrCreateFresh(t *testing.T) {
	cfg, port := xray.LoadOrCreate(filepath.Join(t.TempDir(), "config.json"), false, 10001)
	if port != 10001 {
		t.Errorf("start port = %d, want 10001", port)
	}
	if len(cfg.Inbounds) != 0 || cfg.Routing.DomainStrategy != "IPIfNonMatch" {
		t.Errorf("unexpected fresh template: %+v", cfg)
	}
}

func TestLoadOrCreateAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	base := buildConfig(testRecords(5), 10001) // ports 10001-10005
	if err := base.Write(path); err != nil {
		t.Fatal(err)
	}

	cfg, port := xray.LoadOrCreate(path, true, 10001)
	if port != 10006 {
		t.Errorf("start port = %d, want 10006", port)
	}
	if len(cfg.Inbounds) != 5 {
		t.Fatalf("base inbounds = %d, want 5", len(cfg.Inbounds))
	}

	// Appending three more nodes occupies 10006-10008 and leaves the prior
	// entries untouched.
	for i, rec := range testRecords(3) {
		cfg.Append(rec, port+i)
	}
	for i, in := range cfg.Inbounds {
		if want := 10001 + i; in.Port != want {
			t.Errorf("inbound[%d].Port = %d, want %d", i, in.Port, want)
		}
	}
	for i, in := range base.Inbounds {
		if cfg.Inbounds[i].Tag != in.Tag {
			t.Errorf("prior inbound[%d] changed: %q != %q", i, cfg.Inbounds[i].Tag, in.Tag)
		}
	}
}

func TestLoadOrCreateAppendUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, port := xray.LoadOrCreate(path, true, 10001)
	if port != 10001 || len(cfg.Inbounds) != 0 {
		t.Errorf("broken base not replaced by fresh template: port=%d inbounds=%d", port, len(cfg.Inbounds))
	}
}

func TestWriteIdempotent(t *testing.T) {
	dir := t.TempDir()
	records := testRecords(3)

	pathA := filepath.Join(dir, "a.json")
	pathB := filepath.Join(dir, "b.json")
	if err := buildConfig(records, 10001).Write(pathA); err != nil {
		t.Fatal(err)
	}
	if err := buildConfig(records, 10001).Write(pathB); err != nil {
		t.Fatal(err)
	}

	a, err := os.ReadFile(pathA)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(pathB)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("two runs over identical input produced different bytes")
	}
}

func TestWriteKeepsCJKUnescaped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := xray.NewConfig()
	cfg.Append(node.Record{Remarks: "香港 HK-01", Server: "1.2.3.4", ServerPort: 8388}, 10001)
	cfg.AppendDirect()
	if err := cfg.Write(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("in-10001-香港 HK-01")) {
		t.Error("CJK label was escaped or mangled in output")
	}
}

func TestPorts(t *testing.T) {
	cfg := buildConfig(testRecords(3), 10001)
	ports := cfg.Ports()
	want := []int{10001, 10002, 10003}
	if len(ports) != len(want) {
		t.Fatalf("Ports() returned %d entries, want %d", len(ports), len(want))
	}
	for i, p := range ports {
		if p != want[i] {
			t.Errorf("Ports()[%d] = %d, want %d", i, p, want[i])
		}
	}
}
