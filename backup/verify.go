package backup

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
)

// Verify checks an archive against its metadata: the checksum must match
// and the archive must read end to end as a well-formed tar.gz.
func Verify(bm Metadata, path string) error {
	if bm.Format() != FormatTarGz {
		return errors.New("unsupported backup format")
	}
	if bm.Checksum.Type != "sha256" {
		return fmt.Errorf("unsupported checksum type: %s", bm.Checksum.Type)
	}
	sum, _, err := hashFile(path)
	if err != nil {
		return fmt.Errorf("error hashing backup file: %w", err)
	}
	if sum != bm.Checksum.Value {
		return errors.New("checksums do not match")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening backup file: %w", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("error reading backup file: %w", err)
	}
	tf := tar.NewReader(gz)
	entries := 0
	for {
		_, herr := tf.Next()
		if errors.Is(herr, io.EOF) {
			break
		}
		if herr != nil {
			return fmt.Errorf("error verifying backup archive: %w", herr)
		}
		if _, cerr := io.Copy(io.Discard, tf); cerr != nil {
			return fmt.Errorf("error verifying backup archive: %w", cerr)
		}
		entries++
	}
	if entries == 0 {
		return errors.New("backup archive is empty")
	}
	return nil
}
