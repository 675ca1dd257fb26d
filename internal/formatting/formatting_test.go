package formatting

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/service"
	"github.com/giantswarm/conductor/internal/services"
)

func sampleStatuses() []container.ControllerStatus {
	return []container.ControllerStatus{
		{
			Name:    service.MustName("db"),
			Aliases: []service.Name{service.MustName("sql")},
			Mode:    container.ModeActive,
			State:   container.StateUp,
		},
		{
			Name:               service.MustName("api"),
			Mode:               container.ModeActive,
			State:              container.StateStartFailed,
			FailedDependencies: 0,
			StartError:         &container.StartError{Name: service.MustName("api"), Err: errors.New("port in use")},
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, in := range []string{"table", "json", "yaml"} {
		f, err := ParseOutputFormat(in)
		require.NoError(t, err)
		assert.Equal(t, OutputFormat(in), f)
	}
	f, err := ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)
	_, err = ParseOutputFormat("xml")
	assert.Error(t, err)
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatTable}).FormatStatus(&buf, sampleStatuses()))

	out := buf.String()
	assert.Contains(t, out, "db (sql)")
	assert.Contains(t, out, "START_FAILED")
	assert.Contains(t, out, "port in use")
	assert.Contains(t, out, "Total: 2")

	buf.Reset()
	require.NoError(t, New(Options{Format: FormatTable, Quiet: true}).FormatStatus(&buf, nil))
	assert.Equal(t, "No services installed\n", buf.String())
}

func TestTableFormatterPlan(t *testing.T) {
	plan := services.Plan{
		Order:      []service.Name{service.MustName("db"), service.MustName("api")},
		Unresolved: []service.Name{service.MustName("cache")},
	}
	var buf bytes.Buffer
	require.NoError(t, New(Options{}).FormatPlan(&buf, plan))

	out := buf.String()
	assert.Less(t, strings.Index(out, "db"), strings.Index(out, "api"))
	assert.Contains(t, out, "Not declared: cache")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatJSON}).FormatStatus(&buf, sampleStatuses()))

	var rows []StatusRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"sql"}, rows[0].Aliases)
	assert.Equal(t, "UP", rows[0].State)
	assert.Equal(t, "service api failed to start: port in use", rows[1].Error)
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	plan := services.Plan{Order: []service.Name{service.MustName("db")}}
	require.NoError(t, New(Options{Format: FormatYAML}).FormatPlan(&buf, plan))

	var doc PlanDoc
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, []string{"db"}, doc.Order)
	assert.Empty(t, doc.Unresolved)
}

func TestPrettyJSON(t *testing.T) {
	assert.Equal(t, "{\n  \"name\": \"test\",\n  \"value\": 42\n}", PrettyJSON(map[string]interface{}{"name": "test", "value": 42}))
	assert.Equal(t, "null", PrettyJSON(nil))
	// Values that cannot be marshaled fall back to fmt formatting.
	assert.NotEmpty(t, PrettyJSON(make(chan int)))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
