// Package observ carries the process-wide observability primitives: JSON-line
// event logging and the in-memory metrics registry.
package observ

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// out is swapped by tests; everything else logs to stdout.
var out io.Writer = os.Stdout

// Log emits one JSON line carrying the event name, a UTC timestamp, and the
// given fields. kv may be nil.
func Log(event string, kv map[string]any) {
	fields := make(map[string]any, len(kv)+2)
	for k, v := range kv {
		fields[k] = v
	}
	fields["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	fields["event"] = event
	b, _ := json.Marshal(fields)
	fmt.Fprintln(out, string(b))
}

// LogError is Log with err flattened into the "error" field.
func LogError(event string, err error, kv map[string]any) {
	fields := make(map[string]any, len(kv)+1)
	for k, v := range kv {
		fields[k] = v
	}
	fields["error"] = err.Error()
	Log(event, fields)
}
