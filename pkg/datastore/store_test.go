// pkg/datastore/store_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: filesystem
// PURPOSE: Test record storage, listing, ownership and per-package locks

package datastore_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/tapkit/pkg/datastore"
	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/filesystem"
	"github.com/arthur-debert/tapkit/pkg/paths"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*datastore.Store, paths.Paths) {
	t.Helper()
	p := paths.NewWithRoot(t.TempDir())
	return datastore.New(filesystem.NewOS(), p), p
}

func sampleRecord() *datastore.Record {
	return &datastore.Record{
		Name:        "maiass",
		Version:     "4.6.3",
		Prefix:      "/opt/px",
		Files:       []string{"bin/maiass", "lib/maiass/helper.sh"},
		Symlinks:    []string{"bin/myass", "bin/miass"},
		InstalledAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Source:      "https://example.com/maiass-4.6.3.tar.gz",
		SHA256:      "6208614759bff15f60e62f3fc617ff6133a6d62e53051bbc76891860e24b4fde",
	}
}

func TestStore_PutGet(t *testing.T) {
	store, p := newStore(t)

	rec := sampleRecord()
	require.NoError(t, store.Put(rec))

	got, err := store.Get("maiass")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	data, err := os.ReadFile(p.RecordPath("maiass"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"installed_at"`)

	// No temp files left next to the record
	entries, err := os.ReadDir(p.RecordsDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_PutEmptyListsAsArrays(t *testing.T) {
	store, p := newStore(t)

	rec := sampleRecord()
	rec.Symlinks = nil
	require.NoError(t, store.Put(rec))

	data, err := os.ReadFile(p.RecordPath("maiass"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"symlinks": []`)
}

func TestStore_GetErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode errors.ErrorCode
	}{
		{"missing", "", errors.ErrNotInstalled},
		{"not json", "{nope", errors.ErrStateCorrupt},
		{"wrong name", `{"name":"other","version":"1.0.0","prefix":"/p"}`, errors.ErrStateCorrupt},
		{"escaping path", `{"name":"maiass","version":"1.0.0","prefix":"/p","files":["../etc/passwd"]}`, errors.ErrStateCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, p := newStore(t)
			if tt.content != "" {
				require.NoError(t, os.MkdirAll(p.RecordsDir(), 0755))
				require.NoError(t, os.WriteFile(p.RecordPath("maiass"), []byte(tt.content), 0644))
			}

			_, err := store.Get("maiass")
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestStore_Lookup(t *testing.T) {
	store, _ := newStore(t)

	rec, err := store.Lookup("maiass")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, store.Put(sampleRecord()))
	rec, err = store.Lookup("maiass")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "4.6.3", rec.Version)
}

func TestStore_ListAndDelete(t *testing.T) {
	store, p := newStore(t)

	records, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, records)

	for _, name := range []string{"zsh-tools", "maiass"} {
		rec := sampleRecord()
		rec.Name = name
		require.NoError(t, store.Put(rec))
	}
	// A corrupt record is skipped, not fatal
	require.NoError(t, os.WriteFile(filepath.Join(p.RecordsDir(), "broken.json"), []byte("{"), 0644))

	records, err = store.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "maiass", records[0].Name)
	assert.Equal(t, "zsh-tools", records[1].Name)

	require.NoError(t, store.Delete("maiass"))
	require.NoError(t, store.Delete("maiass"), "deleting twice is fine")
	_, err = store.Get("maiass")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotInstalled))
}

func TestStore_PutRejectsInvalid(t *testing.T) {
	store, _ := newStore(t)

	rec := sampleRecord()
	rec.Files = []string{"/etc/passwd"}
	assert.Error(t, store.Put(rec))

	rec = sampleRecord()
	rec.Name = "../evil"
	assert.Error(t, store.Put(rec))
}

func TestRecord_Ownership(t *testing.T) {
	old := sampleRecord()
	next := sampleRecord()
	next.Files = []string{"bin/maiass"}
	next.Symlinks = []string{"bin/myass"}

	assert.True(t, old.Owns("bin/miass"))
	assert.True(t, old.Owns("lib/maiass/helper.sh"))
	assert.False(t, old.Owns("bin/other"))

	var none *datastore.Record
	assert.False(t, none.Owns("bin/maiass"))
	assert.Empty(t, none.Paths())

	assert.Equal(t, []string{"lib/maiass/helper.sh", "bin/miass"}, old.Stale(next))
	assert.Empty(t, next.Stale(old))
}

func TestStore_Lock(t *testing.T) {
	store, p := newStore(t)

	lock, err := store.Lock("maiass")
	require.NoError(t, err)
	assert.FileExists(t, p.LockPath("maiass"))

	// A second handle cannot take the same lock
	_, err = store.Lock("maiass")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInstallInProgress))

	// Other packages are independent
	other, err := store.Lock("zsh-tools")
	require.NoError(t, err)
	require.NoError(t, other.Unlock())

	require.NoError(t, lock.Unlock())
	require.NoError(t, lock.Unlock(), "unlock is idempotent")

	again, err := store.Lock("maiass")
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}

func TestStore_LogsLockAndWrites(t *testing.T) {
	var buf bytes.Buffer
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	store, _ := newStore(t)
	lock, err := store.Lock("maiass")
	require.NoError(t, err)
	require.NoError(t, store.Put(sampleRecord()))
	require.NoError(t, lock.Unlock())

	out := buf.String()
	for _, msg := range []string{"Lock acquired", "Record written", "Lock released"} {
		assert.Contains(t, out, msg)
	}
	assert.Contains(t, out, `"component":"datastore"`)
}
