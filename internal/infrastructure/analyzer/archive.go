package analyzer

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// archiveContents lists up to maxArchiveEntries member names of a zip or tar
// archive. Non-archives yield nil without error.
func archiveContents(path, ext string) ([]string, error) {
	names, err := zipEntries(path)
	if err == nil {
		return names, nil
	}
	if !errors.Is(err, zip.ErrFormat) {
		return nil, err
	}

	lower := strings.ToLower(filepath.Base(path))
	switch {
	case ext == ".tar":
		return tarEntries(path, false)
	case ext == ".tgz" || strings.HasSuffix(lower, ".tar.gz"):
		return tarEntries(path, true)
	default:
		return nil, nil
	}
}

func zipEntries(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	names := make([]string, 0, min(len(r.File), maxArchiveEntries))
	for _, f := range r.File {
		if len(names) == maxArchiveEntries {
			break
		}
		names = append(names, f.Name)
	}
	return names, nil
}

func tarEntries(path string, gzipped bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		src = gz
	}

	tr := tar.NewReader(src)
	var names []string
	for len(names) < maxArchiveEntries {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, hdr.Name)
	}
	return names, nil
}
