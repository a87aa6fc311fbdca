// FILE: lixenwraith/monitor/formatter/formatter.go
// Package formatter renders log records as human-readable lines and as JSONL objects.
package formatter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lixenwraith/monitor/sanitizer"
)

// Formatter manages the buffered writing and formatting of log entries.
// A Formatter is not safe for concurrent use; the returned slice is reused by the next call.
type Formatter struct {
	sanitizer       *sanitizer.Sanitizer
	timestampFormat string
	buf             []byte
}

// New creates a formatter with the provided sanitizer
func New(s ...*sanitizer.Sanitizer) *Formatter {
	var san *sanitizer.Sanitizer
	if len(s) > 0 && s[0] != nil {
		san = s[0]
	} else {
		san = sanitizer.New().Policy(sanitizer.PolicyTxt)
	}
	return &Formatter{
		sanitizer:       san,
		timestampFormat: "2006-01-02 15:04:05.000",
		buf:             make([]byte, 0, 1024),
	}
}

// TimestampFormat sets the timestamp format string of text lines
func (f *Formatter) TimestampFormat(format string) *Formatter {
	if format != "" {
		f.timestampFormat = format
	}
	return f
}

// Reset clears the formatter buffer for reuse
func (f *Formatter) Reset() {
	f.buf = f.buf[:0]
}

// Text formats one record as a single line:
// "<timestamp> [LEVEL] [category] message key=value ...\n"
func (f *Formatter) Text(ts time.Time, level int64, category, message string, fields map[string]any) []byte {
	f.Reset()
	serializer := sanitizer.NewSerializer("txt", f.sanitizer)
	plain := sanitizer.NewSerializer("raw", f.sanitizer)

	f.buf = ts.AppendFormat(f.buf, f.timestampFormat)
	f.buf = append(f.buf, " ["...)
	f.buf = append(f.buf, LevelToString(level)...)
	f.buf = append(f.buf, "] ["...)
	plain.WriteString(&f.buf, strings.ReplaceAll(category, "]", ")"))
	f.buf = append(f.buf, "] "...)
	plain.WriteString(&f.buf, message)

	for _, k := range sortedKeys(fields) {
		f.buf = append(f.buf, ' ')
		plain.WriteString(&f.buf, k)
		f.buf = append(f.buf, '=')
		f.convertValue(&f.buf, fields[k], serializer)
	}

	f.buf = append(f.buf, '\n')
	return f.buf
}

// JSON formats one record as a self-contained JSON object line
func (f *Formatter) JSON(ts time.Time, level int64, category, message string, fields map[string]any) []byte {
	f.Reset()
	serializer := sanitizer.NewSerializer("json", sanitizer.New())

	f.buf = append(f.buf, `{"timestamp":"`...)
	f.buf = ts.AppendFormat(f.buf, time.RFC3339Nano)
	f.buf = append(f.buf, `","level":"`...)
	f.buf = append(f.buf, LevelToString(level)...)
	f.buf = append(f.buf, `","category":`...)
	serializer.WriteString(&f.buf, category)
	f.buf = append(f.buf, `,"message":`...)
	serializer.WriteString(&f.buf, message)

	if len(fields) > 0 {
		f.buf = append(f.buf, `,"fields":`...)
		marshaledFields, err := json.Marshal(fields)
		if err != nil {
			f.buf = append(f.buf, `{"_marshal_error":`...)
			serializer.WriteString(&f.buf, err.Error())
			f.buf = append(f.buf, '}')
		} else {
			f.buf = append(f.buf, marshaledFields...)
		}
	}

	f.buf = append(f.buf, '}', '\n')
	return f.buf
}

// LevelToString converts integer level values to string
func LevelToString(level int64) string {
	switch level {
	case -4:
		return "DEBUG"
	case 0:
		return "INFO"
	case 4:
		return "WARN"
	case 8:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", level)
	}
}

// ParseLevel converts a rendered level name back to its value
func ParseLevel(name string) (int64, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return -4, true
	case "INFO":
		return 0, true
	case "WARN", "WARNING":
		return 4, true
	case "ERROR", "CRITICAL":
		return 8, true
	default:
		return 0, false
	}
}

var textLine = regexp.MustCompile(`^(.*?) \[([A-Z]+)\] \[([^\]]*)\] ?(.*)$`)

// ParseText splits a line produced by Text into its parts
func ParseText(line string) (timestamp, level, category, message string, ok bool) {
	m := textLine.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return "", "", "", "", false
	}
	return m[1], m[2], m[3], m[4], true
}

func sortedKeys(fields map[string]any) []string {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// convertValue provides unified type conversion
func (f *Formatter) convertValue(buf *[]byte, v any, serializer *sanitizer.Serializer) {
	switch val := v.(type) {
	case string:
		serializer.WriteString(buf, val)

	case []byte:
		serializer.WriteString(buf, string(val))

	case rune:
		var runeStr [utf8.UTFMax]byte
		n := utf8.EncodeRune(runeStr[:], val)
		serializer.WriteString(buf, string(runeStr[:n]))

	case int:
		serializer.WriteNumber(buf, strconv.Itoa(val))

	case int64:
		serializer.WriteNumber(buf, strconv.FormatInt(val, 10))

	case uint:
		serializer.WriteNumber(buf, strconv.FormatUint(uint64(val), 10))

	case uint64:
		serializer.WriteNumber(buf, strconv.FormatUint(val, 10))

	case float32:
		serializer.WriteNumber(buf, strconv.FormatFloat(float64(val), 'f', -1, 32))

	case float64:
		serializer.WriteNumber(buf, strconv.FormatFloat(val, 'f', -1, 64))

	case bool:
		serializer.WriteBool(buf, val)

	case nil:
		serializer.WriteNil(buf)

	case time.Time:
		serializer.WriteString(buf, val.Format(f.timestampFormat))

	case time.Duration:
		serializer.WriteString(buf, val.String())

	case error:
		serializer.WriteString(buf, val.Error())

	case fmt.Stringer:
		serializer.WriteString(buf, val.String())

	default:
		serializer.WriteComplex(buf, val)
	}
}
