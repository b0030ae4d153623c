package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/monitoring"
)

// backendSuite checks the Backend contract against any implementation.
type backendSuite struct {
	suite.Suite
	open    func(t *testing.T) session.Backend
	backend session.Backend
	ctx     context.Context
}

func (s *backendSuite) SetupTest() {
	s.backend = s.open(s.T())
	s.ctx = context.Background()
}

func (s *backendSuite) TestWriteRead() {
	s.Require().NoError(s.backend.Write(s.ctx, "s1", []byte(`{"a":1}`)))

	data, err := s.backend.Read(s.ctx, "s1")
	s.Require().NoError(err)
	s.Equal(`{"a":1}`, string(data))
}

func (s *backendSuite) TestOverwrite() {
	s.Require().NoError(s.backend.Write(s.ctx, "s1", []byte("first record, longer")))
	s.Require().NoError(s.backend.Write(s.ctx, "s1", []byte("second")))

	data, err := s.backend.Read(s.ctx, "s1")
	s.Require().NoError(err)
	s.Equal("second", string(data))
}

func (s *backendSuite) TestReadMissing() {
	_, err := s.backend.Read(s.ctx, "missing")
	s.ErrorIs(err, session.ErrRecordNotFound)
}

func (s *backendSuite) TestListSorted() {
	ids, err := s.backend.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(ids)

	for _, id := range []string{"c", "a", "b"} {
		s.Require().NoError(s.backend.Write(s.ctx, id, []byte(id)))
	}

	ids, err = s.backend.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"a", "b", "c"}, ids)
}

func (s *backendSuite) TestDelete() {
	s.Require().NoError(s.backend.Write(s.ctx, "s1", []byte("x")))
	s.Require().NoError(s.backend.Delete(s.ctx, "s1"))

	_, err := s.backend.Read(s.ctx, "s1")
	s.ErrorIs(err, session.ErrRecordNotFound)
	s.ErrorIs(s.backend.Delete(s.ctx, "s1"), session.ErrRecordNotFound)
}

func (s *backendSuite) TestWithStore() {
	store := session.NewStore(s.backend)
	m := manifest.New()
	content := "hi"
	m.VFS["home:/a.txt"] = manifest.VFSNode{Path: "home:/a.txt", Filename: "a.txt", IsFile: true, Size: 2, Content: &content}

	s.Require().NoError(store.Save(s.ctx, "session-1", m))

	loaded, err := session.NewStore(s.backend).Load(s.ctx, "session-1")
	s.Require().NoError(err)
	s.Require().NotNil(loaded.VFS["home:/a.txt"].Content)
	s.Equal("hi", *loaded.VFS["home:/a.txt"].Content)

	summaries, err := store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(summaries, 1)
}

func TestFileBackend(t *testing.T) {
	suite.Run(t, &backendSuite{open: func(t *testing.T) session.Backend {
		b, err := NewFileBackend(filepath.Join(t.TempDir(), "sessions"))
		require.NoError(t, err)
		return b
	}})
}

func TestSQLiteBackend(t *testing.T) {
	suite.Run(t, &backendSuite{open: func(t *testing.T) session.Backend {
		b, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "sessions.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })
		return b
	}})
}

func TestMemoryBackend(t *testing.T) {
	suite.Run(t, &backendSuite{open: func(*testing.T) session.Backend {
		return NewMemoryBackend()
	}})
}

func TestInstrumentedBackend(t *testing.T) {
	suite.Run(t, &backendSuite{open: func(*testing.T) session.Backend {
		return Instrument(NewMemoryBackend(), "memory", monitoring.NewMetrics())
	}})
}

func TestFileBackendLayout(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "s1", []byte("x")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	assert.FileExists(t, filepath.Join(dir, "s1.json"))
	ids, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}

	_, err = NewFileBackend(" ")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	b, closeFn, err := Open(DriverFile, filepath.Join(dir, "files"), "")
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)
	assert.NoError(t, closeFn())

	b, closeFn, err = Open(DriverSQLite, "", filepath.Join(dir, "s.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBackend{}, b)
	assert.NoError(t, closeFn())

	b, _, err = Open(DriverMemory, "", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	_, closeFn, err = Open("postgres", "", "")
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}

func TestInstrumentCounts(t *testing.T) {
	metrics := monitoring.NewMetrics()
	b := Instrument(NewMemoryBackend(), "memory", metrics)
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "s1", []byte("x")))
	_, _ = b.Read(ctx, "missing")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageCalls.WithLabelValues("memory", "write", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageCalls.WithLabelValues("memory", "read", "not_found")))

	assert.Same(t, b, Instrument(b, "x", nil))
}
