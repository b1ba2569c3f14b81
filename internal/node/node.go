// Package node loads and filters Shadowsocks server records.
package node

import (
	"encoding/json"
	"strconv"
	"strings"
)

// infoMarkers identify subscription announcement entries ("latest URL",
// "remaining traffic", "expiry date") that carry no usable server.
var infoMarkers = []string{"最新网址", "剩余流量", "过期时间"}

// Record is one Shadowsocks server entry from the input list. Keys the
// converter does not use are kept in Extra so loading stays lossless.
type Record struct {
	Remarks    string
	Server     string
	ServerPort int
	Method     string
	Password   string
	Extra      map[string]any
}

// UnmarshalJSON splits the known record keys from the rest of the object.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		switch k {
		case "remarks":
			r.Remarks, _ = v.(string)
		case "server":
			r.Server, _ = v.(string)
		case "server_port":
			switch n := v.(type) {
			case float64:
				r.ServerPort = int(n)
			case string:
				r.ServerPort, _ = strconv.Atoi(n)
			}
		case "method":
			r.Method, _ = v.(string)
		case "password":
			r.Password, _ = v.(string)
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]any)
			}
			r.Extra[k] = v
		}
	}
	return nil
}

// FilterInfo drops records without a label and records whose label contains
// an announcement marker. Order is preserved; the second return value counts
// the dropped records.
func FilterInfo(records []Record) ([]Record, int) {
	valid := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.Remarks == "" || isInfoNode(rec.Remarks) {
			continue
		}
		valid = append(valid, rec)
	}
	return valid, len(records) - len(valid)
}

func isInfoNode(label string) bool {
	for _, marker := range infoMarkers {
		if strings.Contains(label, marker) {
			return true
		}
	}
	return false
}
