package collector

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	apperrors "claimsledger/internal/errors"
)

// RegistryFileName is the registry file published by the regulator.
const RegistryFileName = "relatorio_cadop.csv"

// chooseRegistryFile picks the registry among directory links: the exact
// file name first, then any CSV, then any archive. Among several
// candidates names mentioning "cadop" win, then shorter names.
func chooseRegistryFile(links []string) (string, bool, error) {
	var csvs, zips []string
	for _, l := range links {
		if strings.HasPrefix(l, "/") || strings.HasSuffix(l, "/") {
			continue
		}
		lower := strings.ToLower(path.Base(l))
		switch {
		case lower == RegistryFileName:
			return l, false, nil
		case strings.HasSuffix(lower, ".csv"):
			csvs = append(csvs, l)
		case strings.HasSuffix(lower, ".zip"):
			zips = append(zips, l)
		}
	}
	if len(csvs) > 0 {
		return preferCadop(csvs), false, nil
	}
	if len(zips) > 0 {
		return preferCadop(zips), true, nil
	}
	return "", false, apperrors.NewNotFoundError("registry file")
}

func preferCadop(names []string) string {
	sorted := append([]string(nil), names...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ci := strings.Contains(strings.ToLower(sorted[i]), "cadop")
		cj := strings.Contains(strings.ToLower(sorted[j]), "cadop")
		if ci != cj {
			return ci
		}
		return len(sorted[i]) < len(sorted[j])
	})
	return sorted[0]
}

// FetchRegistry downloads the registry CSV listed under dirURL to dest.
// When only an archive is published, its CSV is extracted to dest. An
// existing non-empty dest is kept.
func (c *Client) FetchRegistry(ctx context.Context, dirURL, dest string) error {
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return nil
	}

	base, err := url.Parse(dirURL)
	if err != nil {
		return fmt.Errorf("invalid registry url %q: %w", dirURL, err)
	}
	listing, err := c.List(ctx, base.String())
	if err != nil {
		return err
	}
	name, archived, err := chooseRegistryFile(append(listing.Files, listing.Zips...))
	if err != nil {
		return err
	}
	ref, err := url.Parse(name)
	if err != nil {
		return fmt.Errorf("invalid registry link %q: %w", name, err)
	}
	fileURL := base.ResolveReference(ref).String()

	if !archived {
		_, err := c.Fetch(ctx, fileURL, dest)
		return err
	}

	zipPath := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".zip"
	if _, err := c.Fetch(ctx, fileURL, zipPath); err != nil {
		return err
	}
	defer os.Remove(zipPath)
	return extractRegistryCSV(zipPath, dest)
}

func extractRegistryCSV(zipPath, dest string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open registry archive: %w", err)
	}
	defer zr.Close()

	var names []string
	entries := make(map[string]*zip.File)
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			names = append(names, f.Name)
			entries[f.Name] = f
		}
	}
	if len(names) == 0 {
		return apperrors.NewNotFoundError("CSV inside registry archive").WithContext("archive", filepath.Base(zipPath))
	}

	src, err := entries[preferCadop(names)].Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(part)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(part)
		return err
	}
	return os.Rename(part, dest)
}
