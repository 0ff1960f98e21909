package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry is one decoded run log record.
type Entry struct {
	Time   time.Time
	Level  string
	Msg    string
	Fields map[string]any
}

// skipped keys are implied by the file a record came from.
var skipped = map[string]bool{"run_id": true}

// ParseEntry decodes a JSON run log line. Lines that are not JSON objects
// report false so callers can print them verbatim.
func ParseEntry(line string) (Entry, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	entry := Entry{Fields: make(map[string]any, len(raw))}
	for key, value := range raw {
		switch key {
		case "ts":
			if s, ok := value.(string); ok {
				entry.Time, _ = time.Parse(time.RFC3339, s)
			}
		case "level":
			entry.Level, _ = value.(string)
		case "msg":
			entry.Msg, _ = value.(string)
		default:
			if !skipped[key] {
				entry.Fields[key] = value
			}
		}
	}
	return entry, true
}

// Format renders the entry as "15:04:05 INFO  message key=value ...", with
// fields sorted by key.
func (e Entry) Format() string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format(time.TimeOnly))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", strings.ToUpper(e.Level), e.Msg)

	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, formatValue(e.Fields[key]))
	}
	return b.String()
}

// FormatLine renders a raw run log line, falling back to the line itself.
func FormatLine(line string) string {
	entry, ok := ParseEntry(line)
	if !ok {
		return line
	}
	return entry.Format()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		if val == "" || strings.ContainsAny(val, " \t\"=") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case nil:
		return "null"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
