package manifest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWindow struct {
	id      string
	title   string
	appType string
}

func (w fakeWindow) ID() string           { return w.id }
func (w fakeWindow) Title() string        { return w.title }
func (w fakeWindow) Position() Position   { return Position{X: 10, Y: 20} }
func (w fakeWindow) Dimension() Dimension { return Dimension{Width: 640, Height: 480} }
func (w fakeWindow) Maximized() bool      { return false }
func (w fakeWindow) Minimized() bool      { return true }
func (w fakeWindow) ZIndex() int          { return 3 }
func (w fakeWindow) AppType() string      { return w.appType }

func strPtr(s string) *string { return &s }

func TestNew(t *testing.T) {
	m := New()

	assert.Equal(t, Version, m.Version)
	assert.WithinDuration(t, time.Now(), m.Timestamp, time.Minute)
	assert.NotNil(t, m.VFS)
	assert.NotNil(t, m.Processes)
	assert.NotNil(t, m.Settings)
	assert.NotNil(t, m.Metadata)
	assert.NoError(t, Validate(m))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Manifest) *Manifest
		reason string
	}{
		{
			name:   "nil manifest",
			mutate: func(m *Manifest) *Manifest { return nil },
			reason: "invalid manifest object",
		},
		{
			name: "old version",
			mutate: func(m *Manifest) *Manifest {
				m.Version = "0.0.1"
				return m
			},
			reason: "unsupported version: 0.0.1",
		},
		{
			name: "nil processes",
			mutate: func(m *Manifest) *Manifest {
				m.Processes = nil
				return m
			},
			reason: "invalid processes array",
		},
		{
			name: "nil vfs",
			mutate: func(m *Manifest) *Manifest {
				m.VFS = nil
				return m
			},
			reason: "invalid VFS object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.mutate(New()))
			require.Error(t, err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.reason, ve.Reason)
		})
	}
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unsupported version", doc: `{"version":"0.0.1","processes":[],"vfs":{}}`},
		{name: "processes not a sequence", doc: `{"version":"1.0.0","processes":{},"vfs":{}}`},
		{name: "vfs not a mapping", doc: `{"version":"1.0.0","processes":[],"vfs":[]}`},
		{name: "missing version", doc: `{"processes":[],"vfs":{}}`},
		{name: "not an object", doc: `[1,2,3]`},
		{name: "not json", doc: `version: 1.0.0`},
		{name: "typed mismatch", doc: `{"version":"1.0.0","processes":[{"type":7}],"vfs":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.doc))
			assert.Nil(t, m)
			assert.True(t, IsValidationError(err), "expected validation error, got %v", err)
		})
	}
}

func TestDecodeMinimalDocument(t *testing.T) {
	m, err := Decode([]byte(`{"version":"1.0.0","timestamp":"2024-03-01T10:00:00.000Z","processes":[],"vfs":{}}`))
	require.NoError(t, err)

	assert.Equal(t, 2024, m.Timestamp.Year())
	assert.NotNil(t, m.Settings)
	assert.NotNil(t, m.Metadata)
	assert.NoError(t, Validate(m))
}

func TestEncodeDecode(t *testing.T) {
	m := New()
	m.VFS["home:/docs"] = SerializeVFSNode(Stat{Path: "home:/docs", Filename: "docs", IsDirectory: true}, nil)
	m.VFS["home:/docs/a.txt"] = SerializeVFSNode(Stat{
		Path: "home:/docs/a.txt", Filename: "a.txt", Mime: "text/plain", Size: 5, IsFile: true,
		Mtime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}, strPtr("hello"))
	m.Processes = append(m.Processes, NewProcessDescriptor("text-editor",
		SerializeWindowState(fakeWindow{id: "w1", title: "Notes"}),
		map[string]interface{}{"content": "hello"}))
	m.Settings["general.theme"] = "dark"

	data, err := Encode(m)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, "{\n  \"version\": \"1.0.0\""))
	keys := []string{`"version"`, `"timestamp"`, `"vfs"`, `"processes"`, `"settings"`, `"metadata"`}
	last := -1
	for _, k := range keys {
		idx := strings.Index(text, "\n  "+k)
		require.Greater(t, idx, last, "key %s out of order", k)
		last = idx
	}

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "hello", *decoded.VFS["home:/docs/a.txt"].Content)
	assert.Nil(t, decoded.VFS["home:/docs"].Content)
	assert.Equal(t, "Notes", decoded.Processes[0].WindowState.Title)
	assert.Equal(t, m.Processes[0].Timestamp, decoded.Processes[0].Timestamp)
	assert.Equal(t, "dark", decoded.Settings["general.theme"])
}

func TestEncodeAs(t *testing.T) {
	m := New()
	m.VFS["home:/docs"] = SerializeVFSNode(Stat{Path: "home:/docs", Filename: "docs", IsDirectory: true}, nil)
	m.Metadata["fileCount"] = 1

	yamlData, err := EncodeAs(m, FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, string(yamlData), "version:")
	assert.Contains(t, string(yamlData), "1.0.0")

	tomlData, err := EncodeAs(m, FormatTOML)
	require.NoError(t, err)
	assert.Contains(t, string(tomlData), "version = ")
	assert.Contains(t, string(tomlData), "1.0.0")
	assert.NotContains(t, string(tomlData), "content")

	jsonData, err := EncodeAs(m, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"content": null`)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yml": FormatYAML, "toml": FormatTOML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestSerializeWindowState(t *testing.T) {
	ws := SerializeWindowState(fakeWindow{id: "w9", title: "Calc"})

	assert.Equal(t, WindowState{
		ID:        "w9",
		Title:     "Calc",
		Position:  Position{X: 10, Y: 20},
		Dimension: Dimension{Width: 640, Height: 480},
		Minimized: true,
		ZIndex:    3,
	}, ws)
}

func TestNewProcessDescriptor(t *testing.T) {
	before := time.Now().UnixMilli()
	p := NewProcessDescriptor("calculator", WindowState{ID: "w1"}, nil)

	assert.GreaterOrEqual(t, p.Timestamp, before)
	assert.NotNil(t, p.AppState)
	assert.False(t, p.HasAppState())
}
