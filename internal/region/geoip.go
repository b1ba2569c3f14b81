package region

import (
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/maxminddb-golang"
)

// Resolver answers country lookups against a MaxMind-format database. It is
// the optional last fallback of Group; hosts that are not literal IPs miss.
type Resolver struct {
	db *maxminddb.Reader
}

// OpenResolver opens the database at path.
func OpenResolver(path string) (*Resolver, error) {
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mmdb: %w", err)
	}
	return &Resolver{db: db}, nil
}

// Country returns the upper-cased ISO country code for a literal IP host.
func (r *Resolver) Country(host string) (string, bool) {
	ip := net.ParseIP(host)
	if ip == nil {
		return "", false
	}

	var record any
	if err := r.db.Lookup(ip, &record); err != nil {
		return "", false
	}
	code := countryCode(record)
	return code, code != ""
}

// countryCode digs the ISO code out of a lookup record. Country databases
// differ: some store a bare code string, some the full country structure.
func countryCode(record any) string {
	switch v := record.(type) {
	case string:
		return strings.ToUpper(v)
	case map[string]any:
		if c, ok := v["country"].(map[string]any); ok {
			if iso, ok := c["iso_code"].(string); ok {
				return strings.ToUpper(iso)
			}
		}
		if iso, ok := v["iso_code"].(string); ok {
			return strings.ToUpper(iso)
		}
	}
	return ""
}

// Close releases the database.
func (r *Resolver) Close() error {
	return r.db.Close()
}
