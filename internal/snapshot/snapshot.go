// internal/snapshot/snapshot.go
//
// Point-in-time copies of a site's published artifact.
//
// Context
// -------
// Every destructive write is preceded by CaptureIfExists, so once a site
// has had one successful write there is always a way back one step: the
// live file and the newest backup are never both absent.  Restore itself
// takes a `pre-restore-` tagged safety copy first, making restores
// reversible too.
//
// Backups live under `<site>/backups/<file>.<timestamp>.bak`, the
// timestamp an ISO instant with filesystem-unsafe characters normalized
// (`2026-08-29T10-22-33-123Z`).
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/webforja/forja/internal/site"
)

// ErrNotFound is returned by Restore for an unknown backup name.
var ErrNotFound = errors.New("backup not found")

// Snapshot describes one captured copy.
type Snapshot struct {
	Name       string
	Path       string
	CapturedAt time.Time
}

// Entry is one row of List: a backup visible in the site's backup tree.
type Entry struct {
	Name       string
	CapturedAt time.Time
	Size       int64
}

// CaptureIfExists copies the live file into the backup tree.  A missing
// live file is a no-op, not an error (first publish has nothing to
// snapshot).  Any capture failure must abort the enclosing write.
func CaptureIfExists(st site.Storage, filename string) (*Snapshot, error) {
	return capture(st, filename, "")
}

// capture backs up the live file under an optional name tag
// ("pre-restore-" for restore safety copies).
func capture(st site.Storage, filename, tag string) (*Snapshot, error) {
	live := st.LiveFile(filename)
	if _, err := os.Stat(live); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat live artifact: %w", err)
	}

	if err := os.MkdirAll(st.BackupsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("ensure backup tree: %w", err)
	}

	now := time.Now().UTC()
	name := backupName(filename, tag, now)
	dst := filepath.Join(st.BackupsDir(), name)

	// Two captures inside one timestamp tick must not clobber each other.
	for n := 1; ; n++ {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			break
		}
		name = backupName(filename, tag+fmt.Sprintf("%d-", n), now)
		dst = filepath.Join(st.BackupsDir(), name)
	}

	if err := copyFile(live, dst); err != nil {
		return nil, fmt.Errorf("capture snapshot: %w", err)
	}
	return &Snapshot{Name: name, Path: dst, CapturedAt: now}, nil
}

// Write overwrites (or creates) the live artifact.  Callers must have run
// CaptureIfExists first; Write itself takes no backup.
func Write(st site.Storage, filename string, content []byte) error {
	if err := os.MkdirAll(st.PublicDir(), 0o755); err != nil {
		return fmt.Errorf("ensure public tree: %w", err)
	}
	if err := os.WriteFile(st.LiveFile(filename), content, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// List returns the site's backups, newest first.
func List(st site.Storage) ([]Entry, error) {
	dirents, err := os.ReadDir(st.BackupsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup tree: %w", err)
	}

	var out []Entry
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".bak") {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Name:       d.Name(),
			CapturedAt: info.ModTime(),
			Size:       info.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].CapturedAt.After(out[j].CapturedAt)
		}
		return out[i].Name > out[j].Name
	})
	return out, nil
}

// Restore copies a chosen backup over the live file, after taking one more
// safety snapshot of the current live file so the restore is reversible.
// An unknown backup name returns ErrNotFound with no filesystem mutation.
func Restore(st site.Storage, filename, backupName string) (*Snapshot, error) {
	src := filepath.Join(st.BackupsDir(), filepath.Base(backupName))
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	safety, err := capture(st, filename, "pre-restore-")
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(st.PublicDir(), 0o755); err != nil {
		return nil, fmt.Errorf("ensure public tree: %w", err)
	}
	if err := copyFile(src, st.LiveFile(filename)); err != nil {
		return nil, fmt.Errorf("restore backup: %w", err)
	}
	return safety, nil
}

// backupName embeds the original filename, an optional tag, and a
// normalized ISO timestamp: index.html.pre-restore-2026-08-29T10-22-33-123Z.bak
func backupName(filename, tag string, at time.Time) string {
	ts := strings.NewReplacer(":", "-", ".", "-").
		Replace(at.Format("2006-01-02T15:04:05.000Z"))
	return filename + "." + tag + ts + ".bak"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
