package file_manager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var (
	// ErrNotDirectory is returned when the store root exists but is not
	// a directory.
	ErrNotDirectory = errors.New("not a directory")
)

// Filename conventions. Numbers are decimal with no required width;
// leading zeros are accepted. Logs and tables count independently.
var (
	logFileRegex   = regexp.MustCompile(`^log_(\d+)$`)
	tableFileRegex = regexp.MustCompile(`^table_(\d+)$`)
)

// tableEntry pairs a table path with its parsed number so the read path
// can order tables newest-first without re-parsing names.
type tableEntry struct {
	number uint64
	path   string
}

// FileManager owns the store directory: it enumerates the log and table
// files already present and vends fresh numbered filenames. It holds no
// open file handles; creating the files is the callers' business.
type FileManager struct {
	root            string
	nextLogNumber   uint64
	nextTableNumber uint64
	latestLogPath   string
	hasLatestLog    bool
	tables          []tableEntry
}

// OpenOrCreate opens the directory at dir, creating it if missing. An
// existing non-directory fails with ErrNotDirectory. Direct children
// named log_<N> or table_<N> are indexed; everything else is ignored.
func OpenOrCreate(dir string) (*FileManager, error) {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat store directory %s: %w", dir, err)
	case !info.IsDir():
		return nil, fmt.Errorf("%s exists and is %s: %w", dir, info.Mode(), ErrNotDirectory)
	}

	fm := &FileManager{root: dir}
	if err := fm.scan(); err != nil {
		return nil, err
	}
	return fm, nil
}

// scan enumerates the directory once, recording the highest log and
// table numbers and every table path.
func (fm *FileManager) scan() error {
	entries, err := os.ReadDir(fm.root)
	if err != nil {
		return fmt.Errorf("failed to read store directory %s: %w", fm.root, err)
	}

	var maxLog, maxTable uint64
	var haveLog, haveTable bool

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		if m := logFileRegex.FindStringSubmatch(name); m != nil {
			n, err := strconv.ParseUint(m[1], 10, 64)
			if err != nil {
				continue
			}
			if !haveLog || n > maxLog {
				maxLog = n
				fm.latestLogPath = filepath.Join(fm.root, name)
				fm.hasLatestLog = true
			}
			haveLog = true
			continue
		}

		if m := tableFileRegex.FindStringSubmatch(name); m != nil {
			n, err := strconv.ParseUint(m[1], 10, 64)
			if err != nil {
				continue
			}
			fm.tables = append(fm.tables, tableEntry{
				number: n,
				path:   filepath.Join(fm.root, name),
			})
			if !haveTable || n > maxTable {
				maxTable = n
			}
			haveTable = true
		}
	}

	// Discovery order is ascending table number, deterministic across
	// platforms regardless of directory listing order.
	sort.Slice(fm.tables, func(i, j int) bool {
		return fm.tables[i].number < fm.tables[j].number
	})

	if haveLog {
		fm.nextLogNumber = maxLog + 1
	}
	if haveTable {
		fm.nextTableNumber = maxTable + 1
	}
	return nil
}

// NewLogFile returns the path for the next log file and records it as
// the latest log. The file itself is created by the log writer.
func (fm *FileManager) NewLogFile() string {
	path := filepath.Join(fm.root, fmt.Sprintf("log_%d", fm.nextLogNumber))
	fm.nextLogNumber++
	fm.latestLogPath = path
	fm.hasLatestLog = true
	return path
}

// NewTableFile returns the path for the next table file and appends it
// to the tracked table list. The file itself is created by the builder.
func (fm *FileManager) NewTableFile() string {
	path := filepath.Join(fm.root, fmt.Sprintf("table_%d", fm.nextTableNumber))
	fm.tables = append(fm.tables, tableEntry{
		number: fm.nextTableNumber,
		path:   path,
	})
	fm.nextTableNumber++
	return path
}

// LatestLog returns the path of the highest-numbered log file known and
// whether one exists.
func (fm *FileManager) LatestLog() (string, bool) {
	return fm.latestLogPath, fm.hasLatestLog
}

// TablePaths returns all known table paths in allocation/discovery order.
func (fm *FileManager) TablePaths() []string {
	paths := make([]string, len(fm.tables))
	for i, t := range fm.tables {
		paths[i] = t.path
	}
	return paths
}

// TablePathsNewestFirst returns all known table paths in descending
// numeric order. Later tables hold more recent data for a duplicated
// key, so the read path must consult them in this order.
func (fm *FileManager) TablePathsNewestFirst() []string {
	sorted := make([]tableEntry, len(fm.tables))
	copy(sorted, fm.tables)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].number > sorted[j].number
	})

	paths := make([]string, len(sorted))
	for i, t := range sorted {
		paths[i] = t.path
	}
	return paths
}

// Root returns the store directory.
func (fm *FileManager) Root() string {
	return fm.root
}
