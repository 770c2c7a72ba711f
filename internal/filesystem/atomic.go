// Package filesystem writes output files so readers never observe a
// partial write.
package filesystem

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic streams the output of write into target. The data goes to a
// temp file in the target directory which is synced and renamed over
// target; a previous file is kept as <target>.bak until the rename succeeds.
// If write fails, target is left untouched.
func WriteAtomic(target string, perm os.FileMode, write func(io.Writer) error) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: output directories are user-facing
		return fmt.Errorf("creating parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}

	bakPath := target + ".bak"
	hadOld := false
	if _, err := os.Stat(target); err == nil {
		if err := renameSafe(target, bakPath); err != nil {
			return fmt.Errorf("backing up existing file: %w", err)
		}
		hadOld = true
	}

	if err := renameSafe(tmpPath, target); err != nil {
		if hadOld {
			_ = renameSafe(bakPath, target)
		}
		return fmt.Errorf("renaming temp to target: %w", err)
	}
	committed = true
	if hadOld {
		_ = os.Remove(bakPath)
	}
	return nil
}

// WriteFileAtomic writes data to target through WriteAtomic.
func WriteFileAtomic(target string, data []byte, perm os.FileMode) error {
	return WriteAtomic(target, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// renameSafe attempts os.Rename first, then falls back to copy+delete for
// cross-device moves.
func renameSafe(oldPath, newPath string) error {
	err := os.Rename(oldPath, newPath)
	if err == nil {
		return nil
	}
	if copyErr := copyFile(oldPath, newPath); copyErr != nil {
		return errors.Join(err, fmt.Errorf("copy fallback: %w", copyErr))
	}
	_ = os.Remove(oldPath)
	return nil
}

// copyFile copies src to dst and fsyncs the result.
func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: paths come from WriteAtomic
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dst) //nolint:gosec // G304: paths come from WriteAtomic
	if err != nil {
		return err
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}
