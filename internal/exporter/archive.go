package exporter

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ZipFiles writes an archive at zipPath holding each file under its base name.
func ZipFiles(zipPath string, files ...string) error {
	return WriteFileAtomic(zipPath, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		for _, file := range files {
			if err := addToZip(zw, file); err != nil {
				zw.Close()
				return err
			}
		}
		return zw.Close()
	})
}

func addToZip(zw *zip.Writer, file string) error {
	src, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(file), err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(file)
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", header.Name, err)
	}
	_, err = io.Copy(dst, src)
	return err
}
