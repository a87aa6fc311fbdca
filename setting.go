// FILE: lixenwraith/monitor/setting.go
package monitor

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"
)

// Kind is the declared type of a setting
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// rule checks an already converted value
type rule func(key string, v any) error

// Setting is one typed, validated configuration entry
type Setting struct {
	Key     string
	Kind    Kind
	Default any
	rule    rule
	index   int // field index in Config
}

// Entry is a setting together with its current value
type Entry struct {
	Key     string `json:"key"`
	Kind    string `json:"kind"`
	Default any    `json:"default"`
	Value   any    `json:"value"`
}

// Validate checks a converted value against the setting's rule
func (s *Setting) Validate(v any) error {
	if s.rule == nil {
		return nil
	}
	return s.rule(s.Key, v)
}

func (s *Setting) get(c *Config) any {
	v := reflect.ValueOf(c).Elem().Field(s.index).Interface()
	if list, ok := v.([]string); ok {
		return append([]string{}, list...)
	}
	return v
}

func (s *Setting) set(c *Config, v any) {
	reflect.ValueOf(c).Elem().Field(s.index).Set(reflect.ValueOf(v))
}

// convert turns an untyped external value into the declared kind
func (s *Setting) convert(raw any) (any, error) {
	fail := &ValidationError{Key: s.Key, Expected: s.Kind.String(), Value: raw}

	switch s.Kind {
	case KindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fail
			}
			return b, nil
		}

	case KindInt:
		switch v := raw.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
				return nil, fail
			}
			return int64(v), nil
		case json.Number:
			i, err := v.Int64()
			if err != nil {
				return nil, fail
			}
			return i, nil
		case string:
			i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, fail
			}
			return i, nil
		}

	case KindFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return nil, fail
			}
			return f, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fail
			}
			return f, nil
		}

	case KindString:
		if v, ok := raw.(string); ok {
			return v, nil
		}

	case KindList:
		switch v := raw.(type) {
		case []string:
			return append([]string{}, v...), nil
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				str, ok := item.(string)
				if !ok {
					return nil, fail
				}
				out = append(out, str)
			}
			return out, nil
		case string:
			// UI widgets deliver lists as one comma separated string
			out := []string{}
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			return out, nil
		}
	}

	return nil, fail
}

// rules keyed by setting key
var rules = map[string]rule{
	"level":                   levelName,
	"webhook_min_level":       levelName,
	"directory":               nonEmpty,
	"name":                    fileBase,
	"timestamp_format":        nonEmpty,
	"max_size_kb":             nonNegative,
	"max_lines":               nonNegative,
	"max_archives":            nonNegative,
	"rate_limit_per_sec":      nonNegative,
	"heartbeat_sec":           nonNegative,
	"tail_lines":              nonNegative,
	"watchdog_miss_threshold": positiveInt,
	"webhook_timeout_ms":      positiveInt,
	"webhook_queue":           positiveInt,
	"buffer_size":             positiveInt,
	"stop_timeout_ms":         positiveInt,
	"breadcrumb_limit":        positiveInt,
	"coalesce_window_sec":     positiveFloat,
	"watchdog_interval_sec":   positiveFloat,
	"viewer_idle_sec":         positiveFloat,
	"watchdog_multiplier":     atLeastOne,
	"webhook_url":             webhookURL,
	"noise_patterns":          nonEmptyItems,
}

func invalid(key string, kind Kind, v any, reason string) error {
	return &ValidationError{Key: key, Expected: kind.String(), Value: v, Reason: reason}
}

func levelName(key string, v any) error {
	if _, err := Level(v.(string)); err != nil {
		return invalid(key, KindString, v, "use debug, info, warn or error")
	}
	return nil
}

func nonEmpty(key string, v any) error {
	if strings.TrimSpace(v.(string)) == "" {
		return invalid(key, KindString, v, "cannot be empty")
	}
	return nil
}

func fileBase(key string, v any) error {
	if err := nonEmpty(key, v); err != nil {
		return err
	}
	if strings.ContainsAny(v.(string), `/\`) {
		return invalid(key, KindString, v, "cannot contain path separators")
	}
	return nil
}

func nonNegative(key string, v any) error {
	if v.(int64) < 0 {
		return invalid(key, KindInt, v, "cannot be negative")
	}
	return nil
}

func positiveInt(key string, v any) error {
	if v.(int64) < 1 {
		return invalid(key, KindInt, v, "must be positive")
	}
	return nil
}

func positiveFloat(key string, v any) error {
	if f := v.(float64); f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return invalid(key, KindFloat, v, "must be positive")
	}
	return nil
}

func atLeastOne(key string, v any) error {
	if f := v.(float64); f < 1 || math.IsNaN(f) || math.IsInf(f, 0) {
		return invalid(key, KindFloat, v, "must be at least 1")
	}
	return nil
}

func webhookURL(key string, v any) error {
	s := v.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(key, KindString, v, "must be an absolute http or https URL")
	}
	return nil
}

func nonEmptyItems(key string, v any) error {
	for _, item := range v.([]string) {
		if strings.TrimSpace(item) == "" {
			return invalid(key, KindList, v, "entries cannot be empty")
		}
	}
	return nil
}

// schema is built once from the Config struct tags, in field order
var schema = buildSchema()

func buildSchema() []Setting {
	t := reflect.TypeOf(Config{})
	def := reflect.ValueOf(defaultConfig)
	out := make([]Setting, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("toml")
		if key == "" {
			continue
		}

		var kind Kind
		switch field.Type.Kind() {
		case reflect.Bool:
			kind = KindBool
		case reflect.Int64:
			kind = KindInt
		case reflect.Float64:
			kind = KindFloat
		case reflect.String:
			kind = KindString
		case reflect.Slice:
			kind = KindList
		default:
			panic(fmt.Sprintf("monitor: unsupported config field type %s for %s", field.Type, key))
		}

		dv := def.Field(i).Interface()
		if list, ok := dv.([]string); ok {
			dv = append([]string{}, list...)
		}

		out = append(out, Setting{
			Key:     key,
			Kind:    kind,
			Default: dv,
			rule:    rules[key],
			index:   i,
		})
	}
	return out
}

// lookupSetting finds a setting by key
func lookupSetting(key string) (*Setting, bool) {
	for i := range schema {
		if schema[i].Key == key {
			return &schema[i], true
		}
	}
	return nil, false
}

// Schema returns a copy of the ordered setting entries
func Schema() []Setting {
	return append([]Setting(nil), schema...)
}

// Describe lists every setting with its default and current value
func Describe(cfg *Config) []Entry {
	out := make([]Entry, 0, len(schema))
	for i := range schema {
		s := &schema[i]
		out = append(out, Entry{
			Key:     s.Key,
			Kind:    s.Kind.String(),
			Default: s.Default,
			Value:   s.get(cfg),
		})
	}
	return out
}

// Convert builds a validated Config from untyped values.
// Unknown keys are ignored, missing or null keys keep their defaults.
func Convert(values map[string]any) (*Config, error) {
	cfg := DefaultConfig()
	var errs error

	for i := range schema {
		s := &schema[i]
		raw, ok := values[s.Key]
		if !ok || raw == nil {
			continue
		}
		v, err := s.convert(raw)
		if err != nil {
			errs = combineErrors(errs, err)
			continue
		}
		s.set(cfg, v)
	}
	if errs != nil {
		return nil, errs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Export returns the canonical key/value mapping of a configuration
func Export(cfg *Config) map[string]any {
	out := make(map[string]any, len(schema))
	for i := range schema {
		out[schema[i].Key] = schema[i].get(cfg)
	}
	return out
}

// ExportJSON renders Export as indented JSON with sorted keys
func ExportJSON(cfg *Config) ([]byte, error) {
	data, err := json.MarshalIndent(Export(cfg), "", "  ")
	if err != nil {
		return nil, fmtErrorf("failed to export settings: %w", err)
	}
	return append(data, '\n'), nil
}

// ImportJSON parses a settings JSON object and converts it
func ImportJSON(data []byte) (*Config, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmtErrorf("failed to parse settings: %w", err)
	}
	obj, err := v.Object()
	if err != nil {
		return nil, fmtErrorf("settings must be a JSON object: %w", err)
	}

	values := make(map[string]any, obj.Len())
	obj.Visit(func(key []byte, val *fastjson.Value) {
		values[string(key)] = fromJSONValue(val)
	})
	return Convert(values)
}

// fromJSONValue converts a fastjson value into plain Go values
func fromJSONValue(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeNumber:
		if i, err := v.Int64(); err == nil {
			return i
		}
		return v.GetFloat64()
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeArray:
		arr := v.GetArray()
		out := make([]any, 0, len(arr))
		for _, item := range arr {
			out = append(out, fromJSONValue(item))
		}
		return out
	case fastjson.TypeObject:
		out := make(map[string]any)
		v.GetObject().Visit(func(key []byte, val *fastjson.Value) {
			out[string(key)] = fromJSONValue(val)
		})
		return out
	default:
		return nil
	}
}
