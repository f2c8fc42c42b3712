package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gatelink/pkg/events"
	"github.com/agentstation/gatelink/pkg/registry"
)

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", "wide", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestDetectFormat_Explicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestCatalogData(t *testing.T) {
	data := CatalogData(registry.NewDefault().Entries())
	assert.Equal(t, []string{"Package", "Event", "Interface", "Method", "Qualified Name", "Adapted"}, data.Headers)

	byEvent := map[string][]string{}
	for _, row := range data.Rows {
		byEvent[row[1]] = row
	}
	assert.Equal(t, []string{"telephony", "OnCallCreated", "TelephonyListener", "OnCallCreated", "telephony.OnCallCreatedEvent", "false"}, byEvent["OnCallCreated"])
	assert.Equal(t, "internal", byEvent["OnChannelInformation"][0])
	assert.Equal(t, "true", byEvent["OnOperatorStateChanged"][5])
}

func TestTableFormatter_Wide(t *testing.T) {
	data := Data{
		Headers:  []string{"Event", "Method", "Qualified Name"},
		Rows:     [][]string{{"Bar", "OnBar", "test.BarEvent"}},
		WideFrom: 2,
	}

	var narrow, wide bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&narrow, data))
	require.NoError(t, NewFormatter(FormatWide).Format(&wide, data))

	assert.Contains(t, narrow.String(), "OnBar")
	assert.NotContains(t, narrow.String(), "test.BarEvent")
	assert.Contains(t, wide.String(), "test.BarEvent")
}

func TestStructuredFormatters_UseRecords(t *testing.T) {
	data := Data{
		Headers: []string{"Event", "Qualified Name"},
		Rows:    [][]string{{"Bar", "test.BarEvent"}},
	}

	var js bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Format(&js, data))
	var records []map[string]string
	require.NoError(t, json.Unmarshal(js.Bytes(), &records))
	assert.Equal(t, []map[string]string{{"event": "Bar", "qualified_name": "test.BarEvent"}}, records)

	var y bytes.Buffer
	require.NoError(t, NewFormatter(FormatYAML).Format(&y, data))
	assert.Contains(t, y.String(), "qualified_name: test.BarEvent")
}

func TestEventWriter(t *testing.T) {
	at := utc.New(time.Date(2026, 3, 1, 9, 30, 15, 0, time.UTC))
	rec := Record{
		Time:  at,
		Event: "OnCallRemoved",
		Data:  &events.OnCallRemovedEvent{LoginName: "alice", CallRef: "c1"},
	}

	var buf bytes.Buffer
	require.NoError(t, NewEventWriter(&buf, FormatJSON).WriteRecord(rec))
	require.NoError(t, NewEventWriter(&buf, FormatJSON).WriteRecord(rec))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var got struct {
		Event string                    `json:"event"`
		Data  events.OnCallRemovedEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "OnCallRemoved", got.Event)
	assert.Equal(t, "c1", got.Data.CallRef)

	buf.Reset()
	require.NoError(t, NewEventWriter(&buf, FormatTable).WriteRecord(rec))
	assert.True(t, strings.HasPrefix(buf.String(), "09:30:15.000  OnCallRemoved"), buf.String())
	assert.Contains(t, buf.String(), `"callRef":"c1"`)

	buf.Reset()
	require.NoError(t, NewEventWriter(&buf, FormatYAML).WriteRecord(rec))
	assert.True(t, strings.HasPrefix(buf.String(), "---\n"))
	assert.Contains(t, buf.String(), "event: OnCallRemoved")
}
