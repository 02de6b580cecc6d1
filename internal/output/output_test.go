package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"TABLE", FormatTable, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"json", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintTable(t *testing.T) {
	table := NewTable("Service", "State")
	table.AddRow("app", "running")
	table.AddRow("postgres", "stopped")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, table))

	out := buf.String()
	assert.Contains(t, out, "SERVICE")
	assert.Contains(t, out, "STATE")
	assert.Contains(t, out, "app")
	assert.Contains(t, out, "postgres")
	assert.Contains(t, out, "stopped")
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintYAML(&buf, map[string]any{
		"project":  "crudstack",
		"services": []string{"app", "mongo"},
	}))
	assert.Equal(t, "project: crudstack\nservices:\n  - app\n  - mongo\n", buf.String())
}

func TestStyles(t *testing.T) {
	plain := NewStyles(false)
	assert.Equal(t, "running", plain.Running.Render("running"))

	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
