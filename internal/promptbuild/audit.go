package promptbuild

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultAuditPrefix = "promptbuild"
	auditDateLayout    = "2006-01-02"
	auditExt           = ".jsonl"
)

// auditEntry is one line of the daily audit file.
type auditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role"`
	Scope     string    `json:"scope,omitempty"`
	Digest    string    `json:"digest"`
	Providers []string  `json:"providers"`
	Failed    []string  `json:"failed,omitempty"`
	Output    string    `json:"output"`
}

// auditLog appends render results to one JSONL file per day and prunes
// files older than the retention window.
type auditLog struct {
	dir       string
	prefix    string
	retention int // days; 0 keeps everything
	now       func() time.Time

	mu sync.Mutex
}

func newAuditLog(dir, prefix string, retentionDays int) *auditLog {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultAuditPrefix
	}
	return &auditLog{dir: dir, prefix: prefix, retention: retentionDays, now: time.Now}
}

func (l *auditLog) path(day time.Time) string {
	return filepath.Join(l.dir, l.prefix+"-"+day.Format(auditDateLayout)+auditExt)
}

func (l *auditLog) record(role Role, scope, output string, sections []section, failed []string) error {
	now := l.now()
	entry := auditEntry{
		Timestamp: now,
		Role:      role,
		Scope:     scope,
		Digest:    renderDigest(role, scope, sections, failed),
		Providers: sectionLabels(sections),
		Failed:    failed,
		Output:    output,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(l.path(now), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	_, werr := f.Write(append(line, '\n'))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("write audit file: %w", werr)
	}
	return l.pruneLocked(now)
}

func (l *auditLog) prune() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pruneLocked(l.now())
}

func (l *auditLog) pruneLocked(now time.Time) error {
	if l.retention <= 0 {
		return nil
	}
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("list audit dir: %w", err)
	}

	cutoff := now.AddDate(0, 0, -l.retention)
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !l.owns(entry.Name()) {
			continue
		}
		if !l.expired(entry, cutoff) {
			continue
		}
		p := filepath.Join(l.dir, entry.Name())
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove audit file %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func (l *auditLog) owns(name string) bool {
	return strings.HasPrefix(name, l.prefix+"-") && strings.HasSuffix(name, auditExt)
}

// expired dates a file by the day in its name. Files whose name carries no
// date fall back to their modification time.
func (l *auditLog) expired(entry fs.DirEntry, cutoff time.Time) bool {
	stamp := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), l.prefix+"-"), auditExt)
	if day, err := time.ParseInLocation(auditDateLayout, stamp, cutoff.Location()); err == nil {
		y, m, d := cutoff.Date()
		return day.Before(time.Date(y, m, d, 0, 0, 0, 0, cutoff.Location()))
	}
	info, err := entry.Info()
	if err != nil {
		return false
	}
	return info.ModTime().Before(cutoff)
}

// CleanupOldAuditFiles removes audit files past the retention window. It is a
// no-op when auditing is disabled.
func (b *Builder) CleanupOldAuditFiles() error {
	if b.audit == nil {
		return nil
	}
	return b.audit.prune()
}

// sectionLabels lists rendered sections by title, falling back to the key.
func sectionLabels(sections []section) []string {
	labels := make([]string, 0, len(sections))
	for _, s := range sections {
		if label := strings.TrimSpace(s.title); label != "" {
			labels = append(labels, label)
			continue
		}
		labels = append(labels, s.key)
	}
	return labels
}

// renderDigest fingerprints which providers contributed to a render, so
// renders built from the same providers share a digest whatever they produced.
func renderDigest(role Role, scope string, sections []section, failed []string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", role, scope)
	for _, s := range sections {
		fmt.Fprintf(h, "+%s\x00", s.key)
	}
	for _, key := range failed {
		fmt.Fprintf(h, "-%s\x00", key)
	}
	return hex.EncodeToString(h.Sum(nil))
}
