package lsm

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"

	file_manager "stampdb/lsm/file_manager"
)

func TestRecordLookup(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Record(1234567890, 257))
	require.NoError(t, db.Record(1111111111, 1))

	got, err := db.Lookup(1234567890)
	require.NoError(t, err)
	assert.Equal(t, uint64(257), got)

	got, err = db.Lookup(1111111111)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)

	_, err = db.Lookup(2222222222)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReopenRecoversRecords(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Record(1234567890, 257))
	require.NoError(t, db.Record(1111111111, 1))
	require.NoError(t, db.Close())

	// Reopen replays the log and promotes it into a table.
	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.Lookup(1234567890)
	require.NoError(t, err)
	assert.Equal(t, uint64(257), got)

	got, err = db.Lookup(1111111111)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)

	_, err = db.Lookup(2222222222)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateKeyLastWriteWins(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Record(5, 50))
	require.NoError(t, db.Record(5, 60))

	got, err := db.Lookup(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), got)
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	got, err = db.Lookup(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), got)
}

func TestMultiBlockTableRecovery(t *testing.T) {
	// 2500 records overflow a single table block (2047 records each).
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	for k := uint64(1); k <= 2500; k++ {
		require.NoError(t, db.Record(k, k*2))
	}
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	for _, k := range []uint64{1, 1250, 2500} {
		got, err := db.Lookup(k)
		require.NoError(t, err, "key %d", k)
		assert.Equal(t, k*2, got)
	}

	_, err = db.Lookup(2501)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenOnRegularFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := Open(path)
	assert.ErrorIs(t, err, file_manager.ErrNotDirectory)
}

func TestNewestTableWinsAfterRepeatedPromotions(t *testing.T) {
	// Two open/write/close cycles leave two tables both holding key 5;
	// the read path must take the value from the newer one.
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Record(5, 50))
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Record(5, 60))
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.Lookup(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), got)
}

func TestPromotedTableVisibleInSameSession(t *testing.T) {
	// The table created during recovery must serve this session's
	// lookups, not just the next one's.
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Record(77, 770))
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	_, ok := db.memtable.Lookup(77)
	require.False(t, ok, "recovered record should live in a table, not the fresh memtable")

	got, err := db.Lookup(77)
	require.NoError(t, err)
	assert.Equal(t, uint64(770), got)
}

func TestEmptyLogIsNotPromoted(t *testing.T) {
	// An open/close cycle with no writes leaves an empty log; the next
	// open must not produce an empty table from it.
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.NoFileExists(t, filepath.Join(dir, "table_0"))
	assert.FileExists(t, filepath.Join(dir, "log_0"))
	assert.FileExists(t, filepath.Join(dir, "log_1"))
}

func TestDirectoryLayoutAfterRecovery(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Record(1, 2))
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, filepath.Join(dir, "log_0"))
	assert.FileExists(t, filepath.Join(dir, "table_0"))
	assert.FileExists(t, filepath.Join(dir, "log_1"))
}

func TestSurvivesManyReopens(t *testing.T) {
	dir := t.TempDir()

	for round := uint64(0); round < 5; round++ {
		db, err := Open(dir)
		require.NoError(t, err)
		require.NoError(t, db.Record(round, round*10))

		// Every earlier round's record is still reachable.
		for k := uint64(0); k <= round; k++ {
			got, err := db.Lookup(k)
			require.NoError(t, err, "round %d key %d", round, k)
			assert.Equal(t, k*10, got)
		}
		require.NoError(t, db.Close())
	}
}

func TestTableReadsPopulateReadCache(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Record(9, 90))
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	require.Equal(t, uint32(0), db.readCache.Size())

	_, err = db.Lookup(9)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), db.readCache.Size())

	// A second lookup is served from the cache.
	got, err := db.Lookup(9)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), got)
}

func TestRecordInvalidatesReadCache(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Record(4, 40))
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Lookup(4)
	require.NoError(t, err)

	require.NoError(t, db.Record(4, 41))

	got, err := db.Lookup(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(41), got)
}

func TestOpenWithLogger(t *testing.T) {
	db, err := OpenWithLogger(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Record(1, 2))
	got, err := db.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got)
}

func TestConcurrentLookupsDuringWrites(t *testing.T) {
	// Single writer, many readers. Run with -race.
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Record(100, 1000))
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got, err := db.Lookup(100)
				if err != nil {
					t.Errorf("Lookup failed: %v", err)
					return
				}
				if got != 1000 {
					t.Errorf("Lookup returned %d, want 1000", got)
					return
				}
			}
		}()
	}

	for k := uint64(200); k < 400; k++ {
		require.NoError(t, db.Record(k, k))
	}
	close(stop)
	wg.Wait()
}
