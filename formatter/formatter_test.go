// FILE: lixenwraith/monitor/formatter/formatter_test.go
package formatter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/monitor/sanitizer"
)

var timestamp = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestText(t *testing.T) {
	f := New()

	t.Run("plain line", func(t *testing.T) {
		line := string(f.Text(timestamp, 0, "host", "widget created", nil))
		assert.Equal(t, "2026-01-01 12:00:00.000 [INFO] [host] widget created\n", line)
	})

	t.Run("fields sorted", func(t *testing.T) {
		fields := map[string]any{
			"zeta":  1,
			"alpha": "two words",
			"ok":    true,
			"err":   errors.New("boom"),
			"none":  nil,
			"took":  1500 * time.Millisecond,
		}
		line := string(f.Text(timestamp, 8, "db", "query failed", fields))
		assert.Equal(t, `2026-01-01 12:00:00.000 [ERROR] [db] query failed alpha="two words" err=boom none=null ok=true took=1.5s zeta=1`+"\n", line)
	})

	t.Run("control characters", func(t *testing.T) {
		line := string(f.Text(timestamp, 4, "host", "line one\nline two", nil))
		assert.Equal(t, 1, strings.Count(line, "\n"), "a record is always one line")
		assert.Contains(t, line, "line one<0a>line two")
	})

	t.Run("category brackets", func(t *testing.T) {
		line := string(f.Text(timestamp, 0, "odd]cat", "m", nil))
		assert.Contains(t, line, "[odd)cat]")
	})

	t.Run("custom timestamp", func(t *testing.T) {
		g := New().TimestampFormat(time.RFC3339)
		line := string(g.Text(timestamp, -4, "host", "m", nil))
		assert.True(t, strings.HasPrefix(line, "2026-01-01T12:00:00Z [DEBUG]"))
	})

	t.Run("nested values", func(t *testing.T) {
		line := string(f.Text(timestamp, 0, "host", "m", map[string]any{"list": []int{1, 2}}))
		assert.Contains(t, line, "list=")
		assert.Contains(t, line, "1")
	})
}

func TestJSON(t *testing.T) {
	f := New()
	data := f.JSON(timestamp, 4, "plugin.io", `quote " and \ slash`, map[string]any{"n": 3, "s": "x"})
	require.True(t, strings.HasSuffix(string(data), "}\n"))

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.Equal(t, "2026-01-01T12:00:00Z", obj["timestamp"])
	assert.Equal(t, "WARN", obj["level"])
	assert.Equal(t, "plugin.io", obj["category"])
	assert.Equal(t, `quote " and \ slash`, obj["message"])
	assert.Equal(t, map[string]any{"n": 3.0, "s": "x"}, obj["fields"])

	t.Run("no fields", func(t *testing.T) {
		data := f.JSON(timestamp, 0, "host", "m", nil)
		assert.NotContains(t, string(data), "fields")
	})

	t.Run("unmarshalable fields", func(t *testing.T) {
		data := f.JSON(timestamp, 0, "host", "m", map[string]any{"ch": make(chan int)})
		var obj map[string]any
		require.NoError(t, json.Unmarshal(data, &obj))
		assert.Contains(t, obj["fields"], "_marshal_error")
	})
}

func TestScrubbingSanitizer(t *testing.T) {
	f := New(sanitizer.New().Policy(sanitizer.PolicyScrub).Policy(sanitizer.PolicyTxt))
	line := string(f.Text(timestamp, 0, "host", "open /home/alice/doc.txt from 10.0.0.7", nil))
	assert.Contains(t, line, "open /home/<redacted>/doc.txt from <ip>")
}

func TestLevelNames(t *testing.T) {
	for _, lvl := range []int64{-4, 0, 4, 8} {
		name := LevelToString(lvl)
		back, ok := ParseLevel(name)
		require.True(t, ok, name)
		assert.Equal(t, lvl, back)
	}
	assert.Equal(t, "LEVEL(2)", LevelToString(2))

	lvl, ok := ParseLevel(" warning ")
	assert.True(t, ok)
	assert.Equal(t, int64(4), lvl)
	_, ok = ParseLevel("LEVEL(2)")
	assert.False(t, ok)
}

func TestParseText(t *testing.T) {
	f := New()
	line := string(f.Text(timestamp, 8, "monitor.watchdog", "[watchdog] no activity", map[string]any{"misses": 3}))

	ts, level, category, message, ok := ParseText(line)
	require.True(t, ok)
	assert.Equal(t, "2026-01-01 12:00:00.000", ts)
	assert.Equal(t, "ERROR", level)
	assert.Equal(t, "monitor.watchdog", category)
	assert.Equal(t, "[watchdog] no activity misses=3", message)

	_, _, _, _, ok = ParseText("not a log line")
	assert.False(t, ok)
}

func TestBufferReuse(t *testing.T) {
	f := New()
	first := string(f.Text(timestamp, 0, "host", "first", nil))
	second := string(f.Text(timestamp, 0, "host", "second", nil))
	assert.NotEqual(t, first, second)
	assert.NotContains(t, second, "first")
}
