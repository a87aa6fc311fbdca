// FILE: lixenwraith/monitor/sanitizer/sanitizer.go
// Package sanitizer cleans text before it reaches a log line, a JSON object or a
// viewer query. A Sanitizer first applies pattern redactions (scrubbing of user
// directories and addresses), then per-rune rules made of a filter mask and a
// transform.
package sanitizer

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/davecgh/go-spew/spew"
)

// Filter flags select the runes a rule applies to
const (
	FilterNonPrintable uint64 = 1 << iota // !strconv.IsPrint
	FilterControl                         // unicode.IsControl
	FilterWhitespace                      // unicode.IsSpace
)

// Transform flags say what happens to a selected rune
const (
	TransformStrip      uint64 = 1 << iota // drop the rune
	TransformHexEncode                     // "<c285>" for the rune's UTF-8 bytes
	TransformJSONEscape                    // "\n", "\u0001"
)

// PolicyPreset names a canned set of redactions and rules
type PolicyPreset string

const (
	PolicyRaw      PolicyPreset = "raw"      // passthrough
	PolicyTxt      PolicyPreset = "txt"      // session log lines: hex encode what a terminal cannot show
	PolicyJSON     PolicyPreset = "json"     // JSON string bodies
	PolicyScrub    PolicyPreset = "scrub"    // redact user directories and IPv4 addresses
	PolicyQuery    PolicyPreset = "query"    // viewer text search: drop control runes
	PolicyCategory PolicyPreset = "category" // viewer category filter: drop control and space runes
)

type rule struct {
	filter    uint64
	transform uint64
}

type redaction struct {
	pattern *regexp.Regexp
	repl    string
}

var (
	windowsProfile = regexp.MustCompile(`(?i)([a-z]:\\Users\\)[^\\/\s]+`)
	unixHome       = regexp.MustCompile(`(/home/|/Users/)[^/\s]+`)
	ipv4Address    = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

var presets = map[PolicyPreset]struct {
	redactions []redaction
	rules      []rule
}{
	PolicyRaw:  {},
	PolicyTxt:  {rules: []rule{{FilterNonPrintable, TransformHexEncode}}},
	PolicyJSON: {rules: []rule{{FilterControl, TransformJSONEscape}}},
	PolicyScrub: {redactions: []redaction{
		{windowsProfile, "${1}<redacted>"},
		{unixHome, "${1}<redacted>"},
		{ipv4Address, "<ip>"},
	}},
	PolicyQuery:    {rules: []rule{{FilterControl | FilterNonPrintable, TransformStrip}}},
	PolicyCategory: {rules: []rule{{FilterControl | FilterNonPrintable | FilterWhitespace, TransformStrip}}},
}

// Sanitizer is built with the chaining methods and then shared read-only;
// Sanitize allocates its own buffer and is safe for concurrent use.
type Sanitizer struct {
	redactions []redaction
	rules      []rule
}

// New returns an empty Sanitizer (passthrough)
func New() *Sanitizer {
	return &Sanitizer{}
}

// Rule appends a rune rule; the first matching rule wins
func (s *Sanitizer) Rule(filter, transform uint64) *Sanitizer {
	s.rules = append(s.rules, rule{filter: filter, transform: transform})
	return s
}

// Redact appends a pattern replacement. Redactions run before rune rules.
func (s *Sanitizer) Redact(pattern *regexp.Regexp, repl string) *Sanitizer {
	s.redactions = append(s.redactions, redaction{pattern: pattern, repl: repl})
	return s
}

// Policy appends the redactions and rules of a preset. Unknown presets are ignored.
func (s *Sanitizer) Policy(preset PolicyPreset) *Sanitizer {
	p := presets[preset]
	s.redactions = append(s.redactions, p.redactions...)
	s.rules = append(s.rules, p.rules...)
	return s
}

// Sanitize returns data with every redaction and rule applied
func (s *Sanitizer) Sanitize(data string) string {
	for _, rd := range s.redactions {
		data = rd.pattern.ReplaceAllString(data, rd.repl)
	}
	if len(s.rules) == 0 {
		return data
	}

	out := make([]byte, 0, len(data))
next:
	for _, r := range data {
		for _, rl := range s.rules {
			if selected(r, rl.filter) {
				out = transform(out, r, rl.transform)
				continue next
			}
		}
		out = utf8.AppendRune(out, r)
	}
	return string(out)
}

func selected(r rune, mask uint64) bool {
	switch {
	case mask&FilterNonPrintable != 0 && !strconv.IsPrint(r):
		return true
	case mask&FilterControl != 0 && unicode.IsControl(r):
		return true
	case mask&FilterWhitespace != 0 && unicode.IsSpace(r):
		return true
	}
	return false
}

func transform(out []byte, r rune, mask uint64) []byte {
	switch {
	case mask&TransformStrip != 0:
		return out
	case mask&TransformHexEncode != 0:
		var enc [utf8.UTFMax]byte
		n := utf8.EncodeRune(enc[:], r)
		out = append(out, '<')
		out = fmt.Appendf(out, "%x", enc[:n])
		return append(out, '>')
	case mask&TransformJSONEscape != 0:
		return appendJSONRune(out, r)
	}
	return utf8.AppendRune(out, r)
}

// appendJSONRune writes r as it must appear inside a JSON string
func appendJSONRune(out []byte, r rune) []byte {
	switch r {
	case '"', '\\':
		return append(out, '\\', byte(r))
	case '\n':
		return append(out, '\\', 'n')
	case '\r':
		return append(out, '\\', 'r')
	case '\t':
		return append(out, '\\', 't')
	case '\b':
		return append(out, '\\', 'b')
	case '\f':
		return append(out, '\\', 'f')
	}
	if r < 0x20 || r == 0x7f {
		return fmt.Appendf(out, `\u%04x`, r)
	}
	return utf8.AppendRune(out, r)
}

// Serializer writes field values for one output format: "raw" (as is),
// "txt" (quoted when the value would break key=value parsing) or "json".
type Serializer struct {
	format    string
	sanitizer *Sanitizer
}

// NewSerializer binds a format to a sanitizer; a nil sanitizer is passthrough
func NewSerializer(format string, san *Sanitizer) *Serializer {
	if san == nil {
		san = New()
	}
	return &Serializer{format: format, sanitizer: san}
}

// WriteString appends a sanitized string value
func (se *Serializer) WriteString(buf *[]byte, s string) {
	s = se.sanitizer.Sanitize(s)
	switch se.format {
	case "json":
		*buf = append(*buf, '"')
		for _, r := range s {
			*buf = appendJSONRune(*buf, r)
		}
		*buf = append(*buf, '"')
	case "txt":
		if !se.NeedsQuotes(s) {
			*buf = append(*buf, s...)
			return
		}
		*buf = append(*buf, '"')
		for i := 0; i < len(s); i++ {
			if s[i] == '"' || s[i] == '\\' {
				*buf = append(*buf, '\\')
			}
			*buf = append(*buf, s[i])
		}
		*buf = append(*buf, '"')
	default:
		*buf = append(*buf, s...)
	}
}

// WriteNumber appends an already formatted number
func (se *Serializer) WriteNumber(buf *[]byte, n string) {
	*buf = append(*buf, n...)
}

func (se *Serializer) WriteBool(buf *[]byte, b bool) {
	*buf = strconv.AppendBool(*buf, b)
}

func (se *Serializer) WriteNil(buf *[]byte) {
	if se.format == "raw" {
		*buf = append(*buf, "nil"...)
		return
	}
	*buf = append(*buf, "null"...)
}

// fieldDumper renders nested field values on one line with sorted map keys
var fieldDumper = &spew.ConfigState{
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	MaxDepth:                5,
}

// WriteComplex appends maps, slices and structs
func (se *Serializer) WriteComplex(buf *[]byte, v any) {
	if se.format == "json" {
		se.WriteString(buf, fmt.Sprintf("%+v", v))
		return
	}
	se.WriteString(buf, fieldDumper.Sprintf("%v", v))
}

// NeedsQuotes reports whether a txt value must be quoted to stay one token
func (se *Serializer) NeedsQuotes(s string) bool {
	switch se.format {
	case "json":
		return true
	case "txt":
		if s == "" {
			return true
		}
		for _, r := range s {
			if unicode.IsSpace(r) || !unicode.IsPrint(r) {
				return true
			}
			switch r {
			case '"', '\'', '\\', '=', '[', ']', '{', '}', '<', '>', '$', '`', '|', '&', ';', '#':
				return true
			}
		}
	}
	return false
}
