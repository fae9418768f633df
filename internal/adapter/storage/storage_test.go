package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"testing"
	"time"

	"github.com/colinmarc/hdfs/v2"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memFile struct {
	fs         *memFS
	name       string
	buf        bytes.Buffer
	closeErrs  []error
	closeCalls int
}

func (f *memFile) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *memFile) Close() error {
	f.closeCalls++
	if len(f.closeErrs) != 0 {
		err := f.closeErrs[0]
		f.closeErrs = f.closeErrs[1:]
		return err
	}
	f.fs.files[f.name] = append(f.fs.files[f.name], f.buf.Bytes()...)
	return nil
}

type memFS struct {
	files     map[string][]byte
	closeErrs []error
	last      *memFile
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string][]byte)}
}

func (m *memFS) open(name string) *memFile {
	f := &memFile{fs: m, name: name, closeErrs: m.closeErrs}
	m.last = f
	return f
}

func (m *memFS) Append(name string) (io.WriteCloser, error) {
	if _, ok := m.files[name]; !ok {
		return nil, &fs.PathError{Op: "append", Path: name, Err: fs.ErrNotExist}
	}
	return m.open(name), nil
}

func (m *memFS) Create(name string) (io.WriteCloser, error) {
	m.files[name] = nil
	return m.open(name), nil
}

func (m *memFS) lines(t *testing.T, name string) []string {
	t.Helper()
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(m.files[name]))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func event(id, session string) domain.Event {
	return domain.Event{
		MessageID:   id,
		Type:        domain.EventTrack,
		Name:        domain.EventCartOpened,
		AnonymousID: session,
		Properties:  domain.Properties{"cart_size": 1},
		Timestamp:   time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestHDFSEventsRepository(t *testing.T) {
	t.Run("FilePerSession", func(t *testing.T) {
		m := newMemFS()
		r := NewHDFSEventsRepository(m, "events")

		err := r.StoreEvents(t.Context(), []domain.Event{
			event("m1", "sid-a"), event("m2", "sid-b"), event("m3", "sid-a"),
		})
		require.NoError(t, err)

		a := m.lines(t, "/events/sid-a.jsonl")
		require.Len(t, a, 2)
		assert.Contains(t, a[0], `"message_id":"m1"`)
		assert.Contains(t, a[1], `"message_id":"m3"`)
		assert.Len(t, m.lines(t, "/events/sid-b.jsonl"), 1)
	})

	t.Run("AppendsExisting", func(t *testing.T) {
		m := newMemFS()
		r := NewHDFSEventsRepository(m, "/events")

		require.NoError(t, r.StoreEvents(t.Context(), []domain.Event{event("m1", "sid")}))
		require.NoError(t, r.StoreEvents(t.Context(), []domain.Event{event("m2", "sid")}))
		assert.Len(t, m.lines(t, "/events/sid.jsonl"), 2)
	})

	t.Run("SessionCannotEscapeRoot", func(t *testing.T) {
		m := newMemFS()
		r := NewHDFSEventsRepository(m, "/events")

		require.NoError(t, r.StoreEvents(t.Context(), []domain.Event{event("m1", "../etc/x")}))
		assert.Contains(t, m.files, "/events/x.jsonl")
	})

	t.Run("RetriesReplicatingClose", func(t *testing.T) {
		m := newMemFS()
		m.closeErrs = []error{hdfs.ErrReplicating, hdfs.ErrReplicating}
		r := NewHDFSEventsRepository(m, "/events")

		require.NoError(t, r.StoreEvents(t.Context(), []domain.Event{event("m1", "sid")}))
		assert.Equal(t, 3, m.last.closeCalls)
	})

	t.Run("OtherCloseErrorFails", func(t *testing.T) {
		m := newMemFS()
		errDisk := errors.New("disk quota exceeded")
		m.closeErrs = []error{errDisk}
		r := NewHDFSEventsRepository(m, "/events")

		err := r.StoreEvents(t.Context(), []domain.Event{event("m1", "sid")})
		assert.ErrorIs(t, err, errDisk)
		assert.Equal(t, 1, m.last.closeCalls)
	})
}

func TestIsTransientPgErr(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: pgerrcode.SerializationFailure}, true},
		{&pgconn.PgError{Code: pgerrcode.DeadlockDetected}, true},
		{&pgconn.PgError{Code: pgerrcode.ConnectionFailure}, true},
		{&pgconn.PgError{Code: pgerrcode.UniqueViolation}, false},
		{fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgerrcode.AdminShutdown}), false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isTransientPgErr(tt.err), "%v", tt.err)
	}
}

func TestMarshalProperties(t *testing.T) {
	s, err := marshalProperties(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", s)

	s, err = marshalProperties(domain.Properties{"depth": "50%"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"depth":"50%"}`, s)

	_, err = marshalProperties(domain.Properties{"bad": make(chan int)})
	assert.Error(t, err)
}
