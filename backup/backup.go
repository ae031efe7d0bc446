// Package backup produces and restores snapshot archives of file-backed tdb
// databases. A backup is a tar.gz of the closed database directory plus a
// JSON sidecar carrying a sha256 checksum; Verify checks both the checksum
// and the archive structure.
//
// Back up a closed (or at least synced and quiescent) database; archiving a
// directory mid-write yields an archive of torn state.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.tcp.direct/tcp.direct/tdb/metadata"
)

// FormatTarGz is the only archive format produced.
const FormatTarGz = "tar.gz"

// ArchiveComment is embedded in the gzip header of every backup.
const ArchiveComment = "git.tcp.direct/tcp.direct/tdb backup archive"

type Checksum struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Metadata describes one backup archive. It is returned by New and written
// alongside the archive as <archive>.json.
type Metadata struct {
	Date       time.Time `json:"timestamp"`
	FileFormat string    `json:"format"`
	FilePath   string    `json:"path"`
	Engine     string    `json:"engine,omitempty"`
	Checksum   Checksum  `json:"checksum"`
	Size       int64     `json:"size,omitempty"`
}

func (m Metadata) Format() string { return m.FileFormat }

func (m Metadata) Path() string { return m.FilePath }

func (m Metadata) Timestamp() time.Time { return m.Date }

// New archives the database directory at dbPath into outPath. When outPath
// is an existing directory the archive is named after the database inside
// it. The metadata sidecar is written next to the archive.
func New(dbPath, outPath string) (Metadata, error) {
	var nilBackup Metadata
	stat, err := os.Stat(dbPath)
	if err != nil {
		return nilBackup, fmt.Errorf("error collecting files to backup: %w", err)
	}
	if !stat.IsDir() {
		return nilBackup, fmt.Errorf("error collecting files to backup, not a directory: %s", dbPath)
	}

	engine := ""
	if meta, merr := metadata.Open(dbPath); merr == nil {
		engine = meta.Engine
	}

	stat, err = os.Stat(outPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nilBackup, fmt.Errorf("error checking backup path: %w", err)
	}
	if stat != nil && stat.IsDir() {
		outPath = filepath.Join(outPath, filepath.Base(dbPath)+".tar.gz")
	}

	f, err := os.Create(outPath)
	if err != nil {
		return nilBackup, fmt.Errorf("error creating backup file: %w", err)
	}
	gz := gzip.NewWriter(f)
	gz.Comment = ArchiveComment
	tf := tar.NewWriter(gz)

	err = filepath.WalkDir(dbPath, func(path string, d os.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		rel, rerr := filepath.Rel(dbPath, path)
		if rerr != nil {
			return rerr
		}
		if rel == "." {
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil {
			return ierr
		}
		hdr, herr := tar.FileInfoHeader(info, "")
		if herr != nil {
			return herr
		}
		hdr.Name = filepath.ToSlash(rel)
		if werr = tf.WriteHeader(hdr); werr != nil {
			return werr
		}
		if d.IsDir() {
			return nil
		}
		src, serr := os.Open(path)
		if serr != nil {
			return serr
		}
		_, cerr := io.Copy(tf, src)
		_ = src.Close()
		return cerr
	})
	if err == nil {
		err = tf.Close()
	}
	if err == nil {
		err = gz.Close()
	}
	if err == nil {
		err = f.Close()
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)
		return nilBackup, fmt.Errorf("error writing backup archive: %w", err)
	}

	sum, size, err := hashFile(outPath)
	if err != nil {
		return nilBackup, fmt.Errorf("error calculating checksum: %w", err)
	}

	bm := Metadata{
		Date:       time.Now(),
		FileFormat: FormatTarGz,
		FilePath:   outPath,
		Engine:     engine,
		Checksum:   Checksum{Type: "sha256", Value: sum},
		Size:       size,
	}
	if err = writeMetadata(bm); err != nil {
		return nilBackup, err
	}
	return bm, nil
}

// Restore extracts a backup archive into outPath, which must not already
// contain a database.
func Restore(inPath, outPath string) error {
	if _, err := os.Stat(filepath.Join(outPath, metadata.FileName)); err == nil {
		return fmt.Errorf("refusing to restore over existing database at %s", outPath)
	}
	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("error opening backup file: %w", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("error reading backup file: %w", err)
	}
	tf := tar.NewReader(gz)
	for {
		hdr, herr := tf.Next()
		if errors.Is(herr, io.EOF) {
			break
		}
		if herr != nil {
			return fmt.Errorf("error reading backup archive: %w", herr)
		}
		name := filepath.Clean(hdr.Name)
		if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return fmt.Errorf("refusing to extract entry outside target: %s", hdr.Name)
		}
		target := filepath.Join(outPath, name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeReg:
			if err = os.MkdirAll(filepath.Dir(target), 0700); err != nil {
				return err
			}
			dst, derr := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, hdr.FileInfo().Mode().Perm())
			if derr != nil {
				return derr
			}
			if _, err = io.Copy(dst, tf); err != nil {
				_ = dst.Close()
				return err
			}
			if err = dst.Close(); err != nil {
				return err
			}
		default:
			// symlinks and specials have no business in a database dir
			return fmt.Errorf("unexpected entry type in backup archive: %s", hdr.Name)
		}
	}
	return nil
}

// LoadMetadata reads the metadata sidecar written next to an archive.
func LoadMetadata(archivePath string) (Metadata, error) {
	var bm Metadata
	data, err := os.ReadFile(archivePath + ".json")
	if err != nil {
		return bm, err
	}
	if err = json.Unmarshal(data, &bm); err != nil {
		return bm, fmt.Errorf("malformed backup metadata: %w", err)
	}
	return bm, nil
}

func writeMetadata(bm Metadata) error {
	data, err := json.Marshal(bm)
	if err != nil {
		return err
	}
	return os.WriteFile(bm.FilePath+".json", data, 0600)
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), n, nil
}
