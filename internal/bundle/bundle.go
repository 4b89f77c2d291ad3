/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package bundle packs a project into a single shareable .zip archive and
// unpacks such archives into a fresh project directory. Media referenced by
// absolute path is not embedded; only files living under the project root
// travel with the bundle.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "github.com/longweekendlabs/speech-bubble-editor/internal/log"
	"github.com/longweekendlabs/speech-bubble-editor/internal/storage"
	"github.com/longweekendlabs/speech-bubble-editor/internal/version"
)

// ManifestName is the human-readable note placed at the archive root.
const ManifestName = "bundle.manifest.txt"

// skipDirs are project subdirectories that never travel with a bundle.
var skipDirs = map[string]bool{
	storage.BackupsDirName: true,
	"exports":              true,
}

// Export zips the project at projectRoot into destZipPath. The archive
// preserves the directory structure relative to the root and adds a small
// manifest file for quick human inspection. Backups and exports are left out.
func Export(projectRoot string, destZipPath string) error {
	l := applog.WithOperation(applog.WithComponent("bundle"), "export").With(slog.String("project", projectRoot))
	if strings.TrimSpace(projectRoot) == "" {
		return errors.New("projectRoot is required")
	}
	if strings.TrimSpace(destZipPath) == "" {
		return errors.New("destZipPath is required")
	}
	if _, err := os.Stat(filepath.Join(projectRoot, storage.ManifestFileName)); err != nil {
		return fmt.Errorf("not a project directory: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)

	zf, err := os.Create(destZipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)
	defer func() { _ = zw.Close() }()

	manifest := fmt.Sprintf("%s Project Bundle\nCreated: %s\nProject: %s\n\nContents mirror the project directory (without backups and exports).\n",
		version.AppName, time.Now().Format(time.RFC3339), projectRoot)
	w, err := zw.Create(ManifestName)
	if err != nil {
		return fmt.Errorf("add manifest: %w", err)
	}
	if _, err := w.Write([]byte(manifest)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	added := 0
	err = filepath.Walk(projectRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(projectRoot, path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if rel != "." && skipDirs[filepath.ToSlash(rel)] {
				return filepath.SkipDir
			}
			return nil
		}
		// Normalize to forward slashes inside the zip
		zipName := filepath.ToSlash(rel)
		fw, err := zw.Create(zipName)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		if _, err := io.Copy(fw, f); err != nil {
			return err
		}
		added++
		return nil
	})
	if err != nil {
		l.Error("zip build failed", slog.Any("err", err))
		return fmt.Errorf("build zip: %w", err)
	}
	l.Info("project bundle exported", slog.Int("files", added), slog.String("zip", destZipPath))
	return nil
}

// Import extracts the given bundle into destRoot. Existing files are not
// overwritten; if a file already exists, it is skipped. Returns the count of
// files written (skipped files are not counted). The extracted directory is a
// regular project that storage.Open can load.
func Import(bundleZipPath string, destRoot string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "import").With(slog.String("dest", destRoot))
	if strings.TrimSpace(bundleZipPath) == "" {
		return 0, errors.New("bundleZipPath is required")
	}
	if strings.TrimSpace(destRoot) == "" {
		return 0, errors.New("destRoot is required")
	}
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return 0, fmt.Errorf("ensure dest dir: %w", err)
	}

	r, err := zip.OpenReader(bundleZipPath)
	if err != nil {
		return 0, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	written := 0
	for _, f := range r.File {
		name := f.Name
		if name == ManifestName {
			continue
		}
		// Reject entries that would escape the destination directory.
		clean := filepath.Clean(filepath.FromSlash(name))
		if clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) || filepath.IsAbs(clean) {
			l.Warn("skip unsafe entry", slog.String("name", name))
			continue
		}
		targetPath := filepath.Join(destRoot, clean)
		if _, err := os.Stat(targetPath); err == nil {
			l.Warn("skip existing file", slog.String("path", targetPath))
			continue
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return written, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return written, err
		}
		rc, err := f.Open()
		if err != nil {
			return written, err
		}
		out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			_ = rc.Close()
			return written, err
		}
		if _, err := io.Copy(out, rc); err != nil {
			_ = out.Close()
			_ = rc.Close()
			return written, err
		}
		_ = out.Close()
		_ = rc.Close()
		written++
	}
	l.Info("project bundle imported", slog.Int("files", written))
	return written, nil
}
