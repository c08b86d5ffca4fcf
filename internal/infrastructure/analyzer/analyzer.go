package analyzer

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

const (
	maxArchiveEntries = 50
	maxSnippetChars   = 2000
	maxSnippetPages   = 3
	maxSentences      = 3
)

var windowsExecutableExts = map[string]bool{
	".exe": true,
	".bat": true,
	".cmd": true,
	".com": true,
	".ps1": true,
}

var textExts = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".log":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
}

// fallbackMimeTypes is used when content sniffing fails.
var fallbackMimeTypes = map[string]string{
	".txt":  "text/plain",
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var (
	magicELF     = []byte{0x7f, 'E', 'L', 'F'}
	magicMachO   = [][]byte{{0xfe, 0xed, 0xfa, 0xce}, {0xfe, 0xed, 0xfa, 0xcf}, {0xca, 0xfe, 0xba, 0xbe}, {0xcf, 0xfa, 0xed, 0xfe}}
	magicShebang = []byte("#!")
	magicMZ      = []byte("MZ")
)

// Analyzer implements ports.FileAnalyzer for local files.
type Analyzer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger}
}

// Analyze collects the attributes of one regular file. Only failing to stat or
// read the file is an error; every optional extractor degrades to "absent".
func (a *Analyzer) Analyze(ctx context.Context, path string) (domain.FileAttributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrCancelled, "analyze", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	ext := FileType(path)
	attrs := domain.FileAttributes{
		domain.AttrFilename: filepath.Base(path),
		domain.AttrFilePath: path,
		domain.AttrFileSize: info.Size(),
		domain.AttrFileType: ext,
		domain.AttrMimeType: a.mimeType(path, ext),
		domain.AttrMetadata: fileMetadata(info),
	}

	head, err := readHead(path, 4)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	executable := isExecutable(ext, head, info.Mode())
	attrs[domain.AttrIsExecutable] = executable

	hashes, err := fileHashes(path)
	if err != nil {
		return nil, fmt.Errorf("hash file: %w", err)
	}
	attrs["hashes"] = hashes

	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrCancelled, "analyze", err)
	}
	a.enrich(attrs, path, ext, executable)
	return attrs, nil
}

func (a *Analyzer) enrich(attrs domain.FileAttributes, path, ext string, executable bool) {
	mime := attrs.MimeType()

	if entries, err := archiveContents(path, ext); err != nil {
		a.logger.Warn("archive_listing_failed", "file", path, "error", err)
	} else if len(entries) > 0 {
		attrs["archive_contents"] = strings.Join(entries, "\n")
	}

	if executable {
		if meta, err := peMetadata(path); err == nil && len(meta) > 0 {
			attrs["executable_metadata"] = meta
		}
	}

	if ext == ".pdf" {
		meta, content, err := pdfDetails(path)
		if err != nil {
			a.logger.Debug("pdf_extract_failed", "file", path, "error", err)
		}
		if len(meta) > 0 {
			attrs["pdf_metadata"] = meta
		}
		if content != "" {
			attrs["pdf_content"] = content
		}
	}

	if ext == ".xlsx" || ext == ".xlsm" {
		if meta, err := spreadsheetMetadata(path); err != nil {
			a.logger.Debug("spreadsheet_extract_failed", "file", path, "error", err)
		} else {
			attrs["spreadsheet_metadata"] = meta
		}
	}

	if textExts[ext] || strings.HasPrefix(mime, "text/") {
		if content, err := textSnippet(path); err != nil {
			a.logger.Debug("text_extract_failed", "file", path, "error", err)
		} else if content != "" {
			attrs["text_content"] = content
		}
	}

	if strings.HasPrefix(mime, "image/") {
		if meta, err := imageMetadata(path); err == nil {
			attrs["image_metadata"] = meta
		}
	}
}

// FileType is the lower-cased extension including the dot, or "no_extension".
func FileType(path string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(path)))
	if ext == "" || ext == strings.ToLower(filepath.Base(path)) {
		return "no_extension"
	}
	return ext
}

func (a *Analyzer) mimeType(path, ext string) string {
	detected, err := mimetype.DetectFile(path)
	if err == nil && detected != nil {
		mime, _, _ := strings.Cut(detected.String(), ";")
		return strings.TrimSpace(mime)
	}
	a.logger.Debug("mime_detect_failed", "file", path, "error", err)
	if mime, ok := fallbackMimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

func isExecutable(ext string, head []byte, mode os.FileMode) bool {
	if windowsExecutableExts[ext] {
		return true
	}
	if bytes.HasPrefix(head, magicShebang) || bytes.HasPrefix(head, magicMZ) || bytes.Equal(head, magicELF) {
		return true
	}
	for _, magic := range magicMachO {
		if bytes.Equal(head, magic) {
			return true
		}
	}
	return mode.Perm()&0o100 != 0
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:read], nil
}

func fileHashes(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	md5sum, sha1sum, sha256sum := md5.New(), sha1.New(), sha256.New()
	if _, err := io.Copy(io.MultiWriter(md5sum, sha1sum, sha256sum), f); err != nil {
		return nil, err
	}
	return map[string]string{
		"md5":    hex.EncodeToString(md5sum.Sum(nil)),
		"sha1":   hex.EncodeToString(sha1sum.Sum(nil)),
		"sha256": hex.EncodeToString(sha256sum.Sum(nil)),
	}, nil
}

func fileMetadata(info os.FileInfo) map[string]any {
	meta := map[string]any{
		"modified": unixSeconds(info.ModTime()),
		"mode":     fmt.Sprintf("0o%o", uint32(info.Mode().Perm())|regularFileBits(info.Mode())),
	}
	if accessed, changed, ok := statTimes(info); ok {
		meta["accessed"] = unixSeconds(accessed)
		meta["created"] = unixSeconds(changed)
	}
	return meta
}

// regularFileBits restores the S_IFREG type bits so the mode reads like a
// POSIX st_mode.
func regularFileBits(mode os.FileMode) uint32 {
	if mode.IsRegular() {
		return 0o100000
	}
	return 0
}
