// FILE: lixenwraith/monitor/viewer/parse.go
package viewer

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lixenwraith/monitor/formatter"
)

// Line is one complete line read from the followed file
type Line struct {
	Raw      string
	Time     time.Time // zero when the timestamp could not be parsed
	Level    int64
	HasLevel bool
	Category string
	Message  string
}

// Default layouts tried for text timestamps
var defaultLayouts = []string{"2006-01-02 15:04:05.000", time.RFC3339Nano}

// parseLine splits raw into its parts. Unrecognised lines (stack traces,
// foreign output) keep only Raw and Message.
func parseLine(raw string, jsonl bool, layouts []string) Line {
	l := Line{Raw: raw, Message: raw}

	if jsonl {
		if !gjson.Valid(raw) {
			return l
		}
		res := gjson.GetMany(raw, "timestamp", "level", "category", "message")
		if ts, err := time.Parse(time.RFC3339Nano, res[0].String()); err == nil {
			l.Time = ts
		}
		l.Level, l.HasLevel = formatter.ParseLevel(res[1].String())
		l.Category = res[2].String()
		if res[3].Exists() {
			l.Message = res[3].String()
		}
		return l
	}

	ts, level, category, message, ok := formatter.ParseText(raw)
	if !ok {
		return l
	}
	l.Level, l.HasLevel = formatter.ParseLevel(level)
	l.Category = category
	l.Message = message
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, ts, time.Local); err == nil {
			l.Time = t
			break
		}
	}
	return l
}

// isJSONL reports whether path holds JSON lines
func isJSONL(path string) bool {
	return strings.HasSuffix(path, ".jsonl")
}
