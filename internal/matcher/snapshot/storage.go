package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fenrir-labs/matcher/internal/matcher"
)

// ErrCorrupted is returned by LoadLatestSnapshot when the newest file
// matching the configured prefix fails to decode.
var ErrCorrupted = errors.New("snapshot: corrupted file")

var _ matcher.SnapshotStore = (*FileStore)(nil)

const magicLen = 4 // length-prefix header before the gob payload

// FileStore is the default SnapshotStore: a directory of
// "{prefix}_{unix_ms}.bin" files, newest kept = Keep, one concurrent
// writer only (concurrent writers to the same directory are undefined
// behavior per spec).
type FileStore struct {
	dir      string
	prefix   string
	keep     int
	interval time.Duration

	mu       sync.Mutex
	lastSave time.Time
}

// NewFileStore builds a store writing into dir with the given prefix,
// retaining keep files and attempting a save no more often than interval.
func NewFileStore(dir, prefix string, keep int, interval time.Duration) *FileStore {
	if keep <= 0 {
		keep = 10
	}
	return &FileStore{dir: dir, prefix: prefix, keep: keep, interval: interval}
}

// Due reports whether enough time has elapsed since the last
// successful save to attempt another one.
func (s *FileStore) Due(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSave) >= s.interval
}

// SaveSnapshot writes book to a new timestamped file: serialize to
// "{filename}.tmp", flush+fsync, atomically rename into place, then
// prune all but the newest Keep files matching this store's prefix.
func (s *FileStore) SaveSnapshot(book *matcher.OrderBook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: mkdir: %w", err)
	}

	data, err := encode(book)
	if err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}

	name := fmt.Sprintf("%s_%d.bin", s.prefix, time.Now().UnixMilli())
	final := filepath.Join(s.dir, name)
	tmp := final + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("snapshot: open tmp: %w", err)
	}

	var hdr [magicLen]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(data)))
	if _, err := f.Write(hdr[:]); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: write header: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: write body: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("snapshot: close tmp: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}

	s.lastSave = time.Now()
	s.prune()
	return nil
}

// prune deletes all but the newest Keep files matching the prefix.
// Errors removing individual stale files are logged, not returned:
// a failed prune never blocks future saves.
func (s *FileStore) prune() {
	files, err := s.matchingFiles()
	if err != nil {
		log.Error().Err(err).Msg("snapshot: unable to list directory for pruning")
		return
	}
	if len(files) <= s.keep {
		return
	}
	for _, f := range files[s.keep:] {
		if err := os.Remove(filepath.Join(s.dir, f.name)); err != nil {
			log.Error().Err(err).Str("file", f.name).Msg("snapshot: unable to remove stale file")
		}
	}
}

// LoadLatestSnapshot loads the newest file matching this store's
// prefix into a freshly built OrderBook via newBook. Ok=false with a
// nil error means no snapshot exists yet.
func (s *FileStore) LoadLatestSnapshot(newBook func() *matcher.OrderBook) (*matcher.OrderBook, bool, error) {
	files, err := s.matchingFiles()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(files) == 0 {
		return nil, false, nil
	}

	path := filepath.Join(s.dir, files[0].name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	if len(raw) < magicLen {
		return nil, false, ErrCorrupted
	}
	n := binary.BigEndian.Uint32(raw[:magicLen])
	body := raw[magicLen:]
	if uint32(len(body)) != n {
		return nil, false, ErrCorrupted
	}

	p, err := decode(body)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	book := newBook()
	book.Restore(p.Orders, p.LastUpdateID)
	return book, true, nil
}

type snapFile struct {
	name string
	ts   int64
}

// matchingFiles lists files under dir matching "{prefix}_\d+\.bin",
// sorted descending by the embedded timestamp (newest first).
func (s *FileStore) matchingFiles() ([]snapFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(s.prefix) + `_(\d+)\.bin$`)

	var out []snapFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		ts, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		out = append(out, snapFile{name: e.Name(), ts: ts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ts > out[j].ts })
	return out, nil
}
