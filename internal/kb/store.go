package kb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"jobyaari-engine/internal/domain"
)

// Store keeps the KnowledgeBase in one JSON file mapping category to
// records. Writers and readers in other processes are serialized through
// a lock file next to it.
type Store struct {
	Path   string
	Backup bool
	Logger *zap.Logger

	// beforeCommit runs after the temp file is written and before the rename.
	beforeCommit func() error
}

func NewStore(path string, backup bool, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{Path: path, Backup: backup, Logger: log}
}

func (s *Store) tmpPath() string    { return s.Path + ".tmp" }
func (s *Store) backupPath() string { return s.Path + ".backup" }
func (s *Store) lockPath() string   { return s.Path + ".lock" }

// Save replaces the file atomically. The previous file is copied to
// .backup first when Backup is set. On any error the committed file is
// left as it was.
func (s *Store) Save(kb domain.KnowledgeBase) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return domain.PersistErr("mkdir", err)
	}

	fl := flock.New(s.lockPath())
	if err := fl.Lock(); err != nil {
		return domain.PersistErr("lock", err)
	}
	defer func() { _ = fl.Unlock() }()

	b, err := json.MarshalIndent(toFile(kb), "", "  ")
	if err != nil {
		return domain.PersistErr("encode", err)
	}

	tmp := s.tmpPath()
	if err := writeSynced(tmp, b); err != nil {
		_ = os.Remove(tmp)
		return domain.PersistErr("write", err)
	}

	if s.beforeCommit != nil {
		if err := s.beforeCommit(); err != nil {
			_ = os.Remove(tmp)
			return domain.PersistErr("commit", err)
		}
	}

	if s.Backup {
		if err := s.copyToBackup(); err != nil {
			// the new data is still committed below
			s.Logger.Warn("kb backup failed", zap.String("path", s.backupPath()), zap.Error(err))
		}
	}

	if err := os.Rename(tmp, s.Path); err != nil {
		_ = os.Remove(tmp)
		return domain.PersistErr("rename", err)
	}

	s.Logger.Info("kb saved", zap.String("path", s.Path), zap.Int("records", kb.Total()))
	return nil
}

func (s *Store) copyToBackup() error {
	old, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	tmp := s.backupPath() + ".tmp"
	if err := writeSynced(tmp, old); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.backupPath())
}

// Load reads the file. A missing file gives an empty KnowledgeBase and no
// error. An unreadable or corrupt file also gives an empty one, plus a
// persistence error the caller may log.
func (s *Store) Load() (domain.KnowledgeBase, error) {
	fl := flock.New(s.lockPath())
	if err := fl.RLock(); err != nil {
		return domain.NewKnowledgeBase(), domain.PersistErr("lock", err)
	}
	defer func() { _ = fl.Unlock() }()

	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewKnowledgeBase(), nil
	}
	if err != nil {
		return domain.NewKnowledgeBase(), domain.PersistErr("read", err)
	}

	var raw map[string][]domain.JobRecord
	if err := json.Unmarshal(b, &raw); err != nil {
		return domain.NewKnowledgeBase(), domain.PersistErr("decode", fmt.Errorf("%s: %w", s.Path, err))
	}

	kb := fromFile(raw, s.Logger)
	if st, err := os.Stat(s.Path); err == nil {
		kb.RefreshedAt = st.ModTime().UTC()
	}
	return kb, nil
}

func toFile(kb domain.KnowledgeBase) map[string][]domain.JobRecord {
	out := make(map[string][]domain.JobRecord, len(kb.Categories)+len(domain.NamedCategories))
	for _, c := range domain.NamedCategories {
		out[string(c)] = []domain.JobRecord{}
	}
	for c, recs := range kb.Categories {
		if recs == nil {
			recs = []domain.JobRecord{}
		}
		out[string(c)] = recs
	}
	return out
}

func fromFile(raw map[string][]domain.JobRecord, log *zap.Logger) domain.KnowledgeBase {
	kb := domain.NewKnowledgeBase()
	for name, recs := range raw {
		c, err := domain.ParseCategory(name)
		if err != nil {
			log.Warn("kb: unknown category in file", zap.String("category", name))
			continue
		}
		if recs == nil {
			recs = []domain.JobRecord{}
		}
		kb.Categories[c] = recs
	}
	return kb
}

func writeSynced(path string, b []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
