package iox

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Write the contents of src to dstFilename.
// If the copy fails, the partially written file is removed.
func WriteStreamToFile(dstFilename string, src io.Reader) error {
	dstFile, err := os.Create(dstFilename)
	if err != nil {
		return err
	}
	_, err = io.Copy(dstFile, src)
	if err == nil {
		err = dstFile.Close()
	} else {
		dstFile.Close()
	}
	if err != nil {
		os.Remove(dstFilename)
		return err
	}
	return nil
}

// Copy a single file, overwriting dst if it exists
func CopyFile(dst, src string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()
	return WriteStreamToFile(dst, srcFile)
}

// Copy the directory tree at src into dst.
// dst must not already exist.
func CopyDir(dst, src string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("Destination directory %v already exists", dst)
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return CopyFile(target, path)
	})
}
