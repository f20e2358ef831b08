package synth

import (
	"fmt"
	"os"
	"path/filepath"

	"compartmentalize/internal/logging"
)

type stagedFile struct {
	path    string
	content string
	tmp     string
}

// OutputTx writes a group of generated files. Commit first writes every file
// to a temporary sibling and only then renames them into place, so a failed
// write leaves every destination untouched.
type OutputTx struct {
	files []*stagedFile
	audit *logging.AuditLogger
}

// NewOutputTx creates an empty transaction; audit may be nil.
func NewOutputTx(audit *logging.AuditLogger) *OutputTx {
	return &OutputTx{audit: audit}
}

// Stage queues content for path.
func (tx *OutputTx) Stage(path, content string) {
	tx.files = append(tx.files, &stagedFile{path: path, content: content})
}

// Paths returns the staged destinations in staging order.
func (tx *OutputTx) Paths() []string {
	paths := make([]string, 0, len(tx.files))
	for _, f := range tx.files {
		paths = append(paths, f.path)
	}
	return paths
}

// Commit writes all staged files.
func (tx *OutputTx) Commit() error {
	for _, f := range tx.files {
		if err := f.writeTemp(); err != nil {
			tx.record(f.path, err)
			tx.cleanup()
			return err
		}
	}

	for i, f := range tx.files {
		if err := os.Rename(f.tmp, f.path); err != nil {
			err = fmt.Errorf("failed to move %s into place: %w", f.path, err)
			logging.BuildError("%v", err)
			tx.record(f.path, err)
			tx.cleanupFrom(i)
			return err
		}
		f.tmp = ""
		tx.record(f.path, nil)
		logging.BuildDebug("wrote %s (%d bytes)", f.path, len(f.content))
	}
	logging.Build("committed %d files", len(tx.files))
	return nil
}

func (f *stagedFile) writeTemp() error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", f.path, err)
	}
	f.tmp = tmp.Name()

	if _, err := tmp.WriteString(f.content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file for %s: %w", f.path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file for %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", f.path, err)
	}
	return nil
}

func (tx *OutputTx) cleanup() {
	tx.cleanupFrom(0)
}

func (tx *OutputTx) cleanupFrom(i int) {
	for _, f := range tx.files[i:] {
		if f.tmp != "" {
			_ = os.Remove(f.tmp)
			f.tmp = ""
		}
	}
}

func (tx *OutputTx) record(path string, err error) {
	if tx.audit != nil {
		tx.audit.FileWrite(path, err)
	}
}
