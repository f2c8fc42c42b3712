package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/gatelink/pkg/constants"
	"github.com/agentstation/gatelink/pkg/events"
	"github.com/agentstation/gatelink/pkg/registry"
)

// headers title-cases column keys, e.g. "wire name" becomes "Wire Name".
func headers(keys ...string) []string {
	caser := cases.Title(language.English)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = caser.String(k)
	}
	return out
}

// CatalogData lists registry entries, one row per event. Internal events
// have no interface or method. The qualified name and adapter columns are
// shown in wide tables only.
func CatalogData(entries []registry.Entry) Data {
	data := Data{
		Headers:  headers("package", "event", "interface", "method", "qualified name", "adapted"),
		WideFrom: 4,
	}
	for _, e := range entries {
		pkg := string(e.Interface.Package)
		if e.Interface.IsZero() {
			pkg = string(events.PackageInternal)
		}
		data.Rows = append(data.Rows, []string{
			pkg,
			e.WireName,
			e.Interface.Name,
			e.Method,
			e.QualifiedName,
			strconv.FormatBool(e.Adapted),
		})
	}
	return data
}

// Record is one received event as written by an EventWriter.
type Record struct {
	Time  utc.Time     `json:"time" yaml:"time"`
	Event string       `json:"event" yaml:"event"`
	Data  events.Event `json:"data" yaml:"data"`
}

// EventWriter writes received events to w as they arrive. JSON writes one
// object per line, YAML one document per event, and the table formats one
// aligned text line per event. It is safe for concurrent use.
type EventWriter struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
}

// NewEventWriter returns an EventWriter for format.
func NewEventWriter(w io.Writer, format Format) *EventWriter {
	return &EventWriter{w: w, format: format}
}

// Write writes ev, stamped with the current time.
func (ew *EventWriter) Write(ev events.Event) error {
	return ew.WriteRecord(Record{Time: utc.Now(), Event: ev.EventName(), Data: ev})
}

// WriteRecord writes rec.
func (ew *EventWriter) WriteRecord(rec Record) error {
	var buf bytes.Buffer
	switch ew.format {
	case FormatJSON:
		if err := json.NewEncoder(&buf).Encode(rec); err != nil {
			return err
		}
	case FormatYAML:
		data, err := yaml.Marshal(rec)
		if err != nil {
			return err
		}
		buf.WriteString("---\n")
		buf.Write(data)
	default:
		data, err := json.Marshal(rec.Data)
		if err != nil {
			return err
		}
		layout := constants.TimeFormatClock
		if ew.format == FormatWide {
			layout = constants.TimeFormatLog
		}
		fmt.Fprintf(&buf, "%s  %-28s %s\n", rec.Time.Format(layout), rec.Event, data)
	}

	ew.mu.Lock()
	defer ew.mu.Unlock()
	_, err := ew.w.Write(buf.Bytes())
	return err
}
