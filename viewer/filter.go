// FILE: lixenwraith/monitor/viewer/filter.go
package viewer

import (
	"fmt"
	"strings"

	"github.com/lixenwraith/monitor/formatter"
	"github.com/lixenwraith/monitor/sanitizer"
)

var (
	queryText     = sanitizer.New().Policy(sanitizer.PolicyQuery)
	queryCategory = sanitizer.New().Policy(sanitizer.PolicyCategory)
)

// Filter selects the lines published to the UI. Empty fields match everything.
type Filter struct {
	Level    string // minimum level name
	Category string // category prefix, "monitor" also matches "monitor.heartbeat"
	Text     string // case-insensitive substring of the raw line
}

// matcher is a compiled Filter
type matcher struct {
	minLevel int64
	hasLevel bool
	category string
	text     string
}

func (f Filter) compile() (*matcher, error) {
	// Typed or pasted queries may carry escape sequences and stray spaces
	m := &matcher{
		category: queryCategory.Sanitize(f.Category),
		text:     strings.ToLower(queryText.Sanitize(f.Text)),
	}
	if f.Level != "" {
		lvl, ok := formatter.ParseLevel(f.Level)
		if !ok {
			return nil, fmt.Errorf("monitor/viewer: invalid level filter '%s'", f.Level)
		}
		m.minLevel, m.hasLevel = lvl, true
	}
	return m, nil
}

// match is stateless; lines without a parsed level or category are only
// excluded by the text filter
func (m *matcher) match(l Line) bool {
	if m.hasLevel && l.HasLevel && l.Level < m.minLevel {
		return false
	}
	if m.category != "" && l.Category != "" {
		if l.Category != m.category && !strings.HasPrefix(l.Category, m.category+".") {
			return false
		}
	}
	if m.text != "" && !strings.Contains(strings.ToLower(l.Raw), m.text) {
		return false
	}
	return true
}
