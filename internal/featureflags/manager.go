// Package featureflags evaluates rollout switches read from FEATURE_FLAGS.
//
// The format is a comma separated list of name=value pairs, for example
// "bulk_update_approvals=off,new_forum_layout=25%". Values are on/true/1,
// off/false/0 or a percentage rolled out deterministically per user.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// BulkUpdateApprovals gates the admin approve endpoint.
const BulkUpdateApprovals = "bulk_update_approvals"

// Defaults hold the value of every registered flag that FEATURE_FLAGS leaves unset.
var Defaults = map[string]string{
	BulkUpdateApprovals: "on",
}

// Flag sources reported by Manager.Source.
const (
	SourceConfig  = "config"
	SourceDefault = "default"
	SourceUnknown = "unknown"
)

type rule struct {
	value   string
	percent int
}

func parseRule(value string) rule {
	switch value {
	case "on", "true", "1":
		return rule{value: value, percent: 100}
	case "off", "false", "0":
		return rule{value: value, percent: 0}
	}
	if raw, ok := strings.CutSuffix(value, "%"); ok {
		if pct, err := strconv.Atoi(raw); err == nil {
			return rule{value: value, percent: min(max(pct, 0), 100)}
		}
	}
	return rule{value: value}
}

func (r rule) allows(name string, userID uint) bool {
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0, userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < r.percent
}

// Manager answers flag lookups. A nil Manager behaves as if FEATURE_FLAGS were empty.
type Manager struct {
	rules      map[string]rule
	configured map[string]bool
}

// NewManager parses raw and layers it over Defaults. Malformed pairs are ignored.
func NewManager(raw string) *Manager {
	m := &Manager{
		rules:      make(map[string]rule, len(Defaults)),
		configured: make(map[string]bool),
	}
	for name, value := range Defaults {
		m.rules[name] = parseRule(value)
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key, value = normalize(key), normalize(value)
		if !ok || key == "" || value == "" {
			continue
		}
		m.rules[key] = parseRule(value)
		m.configured[key] = true
	}
	return m
}

func (m *Manager) lookup(name string) (rule, bool) {
	name = normalize(name)
	if m == nil {
		value, ok := Defaults[name]
		return parseRule(value), ok
	}
	r, ok := m.rules[name]
	return r, ok
}

// Enabled reports whether name is switched on for userID. Unknown flags are off.
func (m *Manager) Enabled(name string, userID uint) bool {
	r, ok := m.lookup(name)
	if !ok {
		return false
	}
	return r.allows(normalize(name), userID)
}

// Source reports where the value of name comes from.
func (m *Manager) Source(name string) string {
	name = normalize(name)
	switch {
	case m != nil && m.configured[name]:
		return SourceConfig
	case Defaults[name] != "":
		return SourceDefault
	default:
		return SourceUnknown
	}
}

// Raw returns the effective value of every known flag.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return NewManager("").Raw()
	}
	out := make(map[string]string, len(m.rules))
	for name, r := range m.rules {
		out[name] = r.value
	}
	return out
}

// Snapshot evaluates every known flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	raw := m.Raw()
	out := make(map[string]bool, len(raw))
	for name := range raw {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", name, userID)
	return int(h.Sum32() % 100)
}
