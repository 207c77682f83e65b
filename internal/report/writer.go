package report

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	consts "github.com/khanhnv2901/gh-recon/internal/shared/constants"
	"github.com/khanhnv2901/gh-recon/internal/shared/security"
)

// Reporter persists report documents. Write may be called many times per run;
// each call replaces the previous content.
type Reporter interface {
	Write(doc Document) error
	Path() string
}

// FileReporter writes <dir>/<name>_recon.txt atomically. Complete documents
// also get a .sha256 companion.
type FileReporter struct {
	path string
}

// NewFileReporter resolves the report path under dir. name must be a single
// path element.
func NewFileReporter(dir, name string) (*FileReporter, error) {
	if err := security.CheckSegment(name); err != nil {
		return nil, fmt.Errorf("report name: %w", err)
	}
	if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}
	path, err := security.ResolveWithin(dir, name+"_recon.txt")
	if err != nil {
		return nil, err
	}
	return &FileReporter{path: path}, nil
}

// Path is the absolute report path.
func (r *FileReporter) Path() string {
	return r.path
}

// Write renders doc into a temp file in the same directory and renames it
// over the report, so readers never see a torn file.
func (r *FileReporter) Write(doc Document) error {
	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := writeAtomic(r.path, buf.Bytes()); err != nil {
		return err
	}
	if doc.Partial {
		// a stale checksum would describe an older file
		_ = os.Remove(r.path + ".sha256")
		return nil
	}
	if _, err := HashFileSHA256(r.path); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp report: %w", err)
	}
	if err := os.Chmod(tmpName, consts.DefaultFilePerm); err != nil {
		return fmt.Errorf("chmod temp report: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

// HashFileSHA256 computes the digest of path and writes a "<hex>  <basename>"
// companion next to it.
func HashFileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	sum := hex.EncodeToString(h.Sum(nil))
	content := fmt.Sprintf("%s  %s\n", sum, filepath.Base(path))
	if err := os.WriteFile(path+".sha256", []byte(content), consts.DefaultFilePerm); err != nil {
		return "", err
	}
	return sum, nil
}
