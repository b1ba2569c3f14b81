// Package region infers geographic groupings from free-text node labels and
// picks representative nodes per group. Region names are not drawn from a
// fixed vocabulary: the candidate set is built from the batch itself.
package region

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"ss2xray/internal/node"
)

// Other is the fallback bucket for records no region could be inferred for.
const Other = "Other"

var (
	// Leading run of letters/spaces cut off by a hyphen or digit ("HK-01").
	prefixPattern = regexp.MustCompile(`^([A-Za-z\s]+)[-\d]`)
	// Same shape anywhere in the label, before a numeric suffix ("x HK-01").
	embeddedPattern = regexp.MustCompile(`([A-Za-z\s]+)[-\s]\d+`)
)

// Infer guesses a region name from a node label: first the anchored prefix
// pattern, then the embedded one. Single-character guesses are rejected.
func Infer(label string) (string, bool) {
	if r, ok := InferPrefix(label); ok {
		return r, ok
	}
	if m := embeddedPattern.FindStringSubmatch(label); m != nil {
		if r := strings.TrimSpace(m[1]); len(r) > 1 {
			return r, true
		}
	}
	return "", false
}

// InferPrefix runs only the anchored prefix stage of Infer. The grouping
// fallback uses this stage alone.
func InferPrefix(label string) (string, bool) {
	if m := prefixPattern.FindStringSubmatch(label); m != nil {
		if r := strings.TrimSpace(m[1]); len(r) > 1 {
			return r, true
		}
	}
	return "", false
}

// Extract builds the candidate region list from all labels in the batch.
// The result is deduplicated and sorted so that matching against it is
// deterministic across runs.
func Extract(records []node.Record) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		if r, ok := Infer(rec.Remarks); ok {
			seen[r] = struct{}{}
		}
	}

	regions := make([]string, 0, len(seen))
	for r := range seen {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}

// Member is a record assigned to a bucket, with a flag telling whether its
// label starts with the bucket's region name.
type Member struct {
	Record     node.Record
	StartsWith bool
}

// CountryResolver maps a server host to a region name. Implemented by
// Resolver; a nil value disables the lookup.
type CountryResolver interface {
	Country(host string) (string, bool)
}

// Group assigns every record to exactly one bucket. Candidates are tried in
// the order given (Extract returns them sorted) and the first one found
// anywhere in the label wins. Unmatched records fall back to a fresh prefix
// guess, then to the resolver, then to the Other bucket.
func Group(records []node.Record, candidates []string, resolver CountryResolver) map[string][]Member {
	buckets := make(map[string][]Member)
	for _, rec := range records {
		assigned := false
		for _, r := range candidates {
			if strings.Contains(rec.Remarks, r) {
				buckets[r] = append(buckets[r], Member{rec, strings.HasPrefix(rec.Remarks, r)})
				assigned = true
				break
			}
		}
		if assigned {
			continue
		}

		if r, ok := InferPrefix(rec.Remarks); ok {
			buckets[r] = append(buckets[r], Member{rec, true})
			continue
		}
		if resolver != nil {
			if code, ok := resolver.Country(rec.Server); ok {
				buckets[code] = append(buckets[code], Member{rec, strings.HasPrefix(rec.Remarks, code)})
				continue
			}
		}

		logrus.Infof("Node %q assigned to %s region", rec.Remarks, Other)
		buckets[Other] = append(buckets[Other], Member{rec, false})
	}
	return buckets
}

// SelectRepresentatives picks at most two nodes per bucket. Each bucket is
// sorted so labels starting with the region name come first, ties broken by
// label; a single-entry bucket yields that entry, larger buckets yield the
// first and last entry. Buckets are visited in sorted name order so the
// output order is reproducible. Note the first-and-last rule is
// unconditional: a two-entry bucket with identical labels selects the same
// node twice.
func SelectRepresentatives(buckets map[string][]Member) []node.Record {
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	var selected []node.Record
	for _, name := range names {
		members := buckets[name]
		if len(members) == 0 {
			continue
		}

		sorted := make([]Member, len(members))
		copy(sorted, members)
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].StartsWith != sorted[j].StartsWith {
				return sorted[i].StartsWith
			}
			return sorted[i].Record.Remarks < sorted[j].Record.Remarks
		})

		if len(sorted) == 1 {
			selected = append(selected, sorted[0].Record)
			logrus.Infof("Selected 1 node from %s: %s", name, sorted[0].Record.Remarks)
			continue
		}
		first, last := sorted[0].Record, sorted[len(sorted)-1].Record
		selected = append(selected, first, last)
		logrus.Infof("Selected 2 nodes from %s: %s, %s", name, first.Remarks, last.Remarks)
	}
	return selected
}
