package mapping

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/larsfn/minterra/internal/core"
)

// Store is the immutable organization/workspace to service-account mapping.
// It is built exactly once at process start and shared read-only across all
// concurrent requests, so no locking is needed. Changing the mapping
// requires a new process.
type Store struct {
	entries map[string]string
}

// Parse builds a Store from an inline JSON object, the shape used when the
// mapping is supplied through an environment variable:
//
//	{"my-org/my-workspace": "deployer@project.iam.gserviceaccount.com"}
func Parse(data []byte) (*Store, error) {
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, core.Wrap(core.KindConfig, "mapping is not a valid JSON object of string to string", err)
	}
	return New(entries)
}

// LoadFile reads a YAML mapping document with the same slug-to-identity shape.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.Wrap(core.KindConfig, "reading mapping file", err)
	}
	var entries map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, core.Wrap(core.KindConfig, "parsing mapping file", err)
	}
	return New(entries)
}

// New validates the entries and copies them into an immutable Store.
// The input map is not retained, so later mutation of it cannot affect
// lookups.
func New(entries map[string]string) (*Store, error) {
	m := make(map[string]string, len(entries))
	for slug, identity := range entries {
		if !validSlug(slug) {
			return nil, core.Errf(core.KindConfig, "invalid mapping key %q: expected \"organization/workspace\"", slug)
		}
		if !validServiceAccount(identity) {
			return nil, core.Errf(core.KindConfig, "invalid service account %q for %q", identity, slug)
		}
		m[slug] = identity
	}
	return &Store{entries: m}, nil
}

// Lookup returns the service account mapped to the organization/workspace
// pair. The lookup is exact and case-sensitive; a miss is a normal outcome,
// there is no default identity.
func (s *Store) Lookup(organization, workspace string) (string, bool) {
	identity, ok := s.entries[organization+"/"+workspace]
	return identity, ok
}

// Len returns the number of configured mappings.
func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns a sorted copy of the mapping for display purposes.
func (s *Store) Entries() [][2]string {
	slugs := make([]string, 0, len(s.entries))
	for slug := range s.entries {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	out := make([][2]string, 0, len(slugs))
	for _, slug := range slugs {
		out = append(out, [2]string{slug, s.entries[slug]})
	}
	return out
}

func validSlug(slug string) bool {
	org, ws, ok := strings.Cut(slug, "/")
	return ok && org != "" && ws != "" && !strings.Contains(ws, "/")
}

// validServiceAccount checks that the value is syntactically a plausible
// service-account email: local@domain with a dotted domain.
func validServiceAccount(identity string) bool {
	local, domain, ok := strings.Cut(identity, "@")
	if !ok || local == "" || domain == "" {
		return false
	}
	if strings.ContainsAny(identity, " \t\n") || strings.Contains(domain, "@") {
		return false
	}
	return strings.Contains(strings.Trim(domain, "."), ".")
}
