// internal/upload/upload.go
//
// FormPlant – Upload subsystem: file storage.
//
// Context
//   Uploads land in a per-form directory shared by every submission to that
//   form, so stored names carry a random suffix to keep concurrent uploads
//   from colliding.  The client-declared MIME type is never trusted: the
//   real content is sniffed server side, dangerous and double extensions
//   are rejected outright, and the extension must still pass the field's
//   allow-list in the validator.
//
//------------------------------------------------------------------------------

package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yanizio/formplant/internal/form"
)

// ErrRejected marks an upload refused on security grounds.  The HTTP layer
// maps it to a 403.
var ErrRejected = errors.New("upload: rejected")

// dangerousExts can execute on a misconfigured server and are never stored,
// regardless of any field allow-list.
var dangerousExts = map[string]struct{}{
	"php": {}, "php3": {}, "php4": {}, "php5": {}, "phtml": {},
	"exe": {}, "bat": {}, "cmd": {}, "com": {}, "sh": {}, "cgi": {},
	"pl": {}, "py": {}, "js": {}, "jar": {}, "msi": {}, "scr": {},
	"htaccess": {}, "asp": {}, "aspx": {}, "jsp": {},
}

// sniffAllowed maps a stored extension to the content prefixes
// http.DetectContentType may legitimately report for it.
var sniffAllowed = map[string][]string{
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
	"png":  {"image/png"},
	"gif":  {"image/gif"},
	"pdf":  {"application/pdf"},
}

// Storage writes uploads under Root/<formID>/ and addresses them under
// BaseURL/<formID>/.
type Storage struct {
	Root    string
	BaseURL string
}

// Store validates and persists one upload, returning the descriptor the
// submission payload carries.
func (s *Storage) Store(formID int64, filename string, r io.Reader) (form.FileValue, error) {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "" || base == "." || strings.ContainsRune(base, 0) {
		return form.FileValue{}, fmt.Errorf("%w: bad filename", ErrRejected)
	}

	parts := strings.Split(base, ".")
	if len(parts) < 2 {
		return form.FileValue{}, fmt.Errorf("%w: missing extension", ErrRejected)
	}
	// Every extension segment is checked, so shell.php.pdf cannot slip
	// through as a pdf.
	for _, seg := range parts[1:] {
		if _, bad := dangerousExts[strings.ToLower(seg)]; bad {
			return form.FileValue{}, fmt.Errorf("%w: dangerous extension", ErrRejected)
		}
	}
	if len(parts) > 2 {
		return form.FileValue{}, fmt.Errorf("%w: double extension", ErrRejected)
	}
	ext := strings.ToLower(parts[len(parts)-1])

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return form.FileValue{}, fmt.Errorf("upload: read: %w", err)
	}
	head = head[:n]
	if !sniffMatches(ext, http.DetectContentType(head)) {
		return form.FileValue{}, fmt.Errorf("%w: content does not match extension", ErrRejected)
	}

	dir := filepath.Join(s.Root, fmt.Sprintf("%d", formID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return form.FileValue{}, fmt.Errorf("upload: mkdir: %w", err)
	}

	stem := strings.TrimSuffix(base, "."+parts[len(parts)-1])
	stored := fmt.Sprintf("%s-%s.%s", sanitizeStem(stem), uuid.NewString()[:8], ext)
	dest := filepath.Join(dir, stored)

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return form.FileValue{}, fmt.Errorf("upload: create: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(head); err != nil {
		os.Remove(dest)
		return form.FileValue{}, fmt.Errorf("upload: write: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dest)
		return form.FileValue{}, fmt.Errorf("upload: write: %w", err)
	}

	return form.FileValue{
		URL:      fmt.Sprintf("%s/%d/%s", strings.TrimRight(s.BaseURL, "/"), formID, stored),
		Path:     dest,
		Type:     http.DetectContentType(head),
		Filename: base,
	}, nil
}

// sniffMatches accepts when the sniffed content agrees with the extension.
// Extensions without a sniffing rule (plain text formats and the like) pass
// on the extension checks alone.
func sniffMatches(ext, contentType string) bool {
	allowed, known := sniffAllowed[ext]
	if !known {
		return true
	}
	for _, a := range allowed {
		if strings.HasPrefix(contentType, a) {
			return true
		}
	}
	return false
}

// sanitizeStem keeps stored names shell and URL safe.
func sanitizeStem(stem string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, stem)
	out = strings.Trim(out, "-")
	if out == "" {
		out = "upload"
	}
	if len(out) > 64 {
		out = out[:64]
	}
	return out
}
