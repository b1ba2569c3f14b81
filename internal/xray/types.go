// Package xray builds and persists the xray routing configuration: one
// socks inbound, one shadowsocks outbound and one routing rule per selected
// node, plus a trailing catch-all direct outbound.
package xray

// Inbound is a local socks listener entry.
type Inbound struct {
	Port     int             `json:"port"`
	Protocol string          `json:"protocol"`
	Settings InboundSettings `json:"settings"`
	Tag      string          `json:"tag"`
	Sniffing Sniffing        `json:"sniffing"`
}

// InboundSettings configures the socks listener.
type InboundSettings struct {
	Auth      string `json:"auth"`
	UDP       bool   `json:"udp"`
	UserLevel int    `json:"userLevel"`
}

// Sniffing configures destination override sniffing on an inbound.
type Sniffing struct {
	Enabled      bool     `json:"enabled"`
	DestOverride []string `json:"destOverride"`
}

// Outbound is an upstream connection entry. Settings is nil for the
// catch-all direct outbound.
type Outbound struct {
	Protocol string            `json:"protocol"`
	Settings *OutboundSettings `json:"settings,omitempty"`
	Tag      string            `json:"tag"`
}

// OutboundSettings carries the upstream server list.
type OutboundSettings struct {
	Servers []Server `json:"servers"`
}

// Server is one Shadowsocks upstream.
type Server struct {
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Method   string `json:"method"`
	Password string `json:"password"`
	Level    int    `json:"level"`
}

// Rule binds one inbound tag to one outbound tag.
type Rule struct {
	Type        string   `json:"type"`
	InboundTag  []string `json:"inboundTag"`
	OutboundTag string   `json:"outboundTag"`
}

// Routing holds the rule list and the top-level domain strategy.
type Routing struct {
	Rules          []Rule `json:"rules"`
	DomainStrategy string `json:"domainStrategy"`
}

// Config is the full xray configuration document. Inbounds[i], Outbounds[i]
// and Routing.Rules[i] are produced together and share a tag scheme; the
// catch-all outbound is appended after all triples and has no paired rule.
type Config struct {
	Inbounds  []Inbound  `json:"inbounds"`
	Outbounds []Outbound `json:"outbounds"`
	Routing   Routing    `json:"routing"`
}
