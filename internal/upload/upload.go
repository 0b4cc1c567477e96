// Package upload accepts font uploads from multipart requests and stores
// them under unique names in the upload directory.
package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"msdf-gateway/internal/fontinfo"
)

// FieldName is the multipart field carrying the font.
const FieldName = "file"

const maxNameAttempts = 5

var (
	ErrNoFile          = errors.New("No font file uploaded")
	ErrInvalidFileType = errors.New("Invalid file type. Only TTF and OTF files are allowed.")
	ErrInvalidFont     = errors.New("Uploaded file is not a valid TTF or OTF font")
)

var fontContentTypes = map[string]bool{
	"font/ttf": true,
	"font/otf": true,
}

var fontExtensions = map[string]bool{
	".ttf": true,
	".otf": true,
}

// File is an accepted upload stored on disk.
type File struct {
	OriginalName string
	ContentType  string
	Path         string
	Size         int64
	Font         *fontinfo.Info
}

// Remove deletes the stored upload. Removing a file that is already gone
// is not an error.
func (f *File) Remove() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove upload %s: %w", f.Path, err)
	}
	return nil
}

// Acceptor validates and stores uploads in Dir. Dir must already exist.
type Acceptor struct {
	Dir string

	now  func() time.Time
	intn func(int) int
}

// NewAcceptor creates an Acceptor writing into dir.
func NewAcceptor(dir string) *Acceptor {
	return &Acceptor{
		Dir:  dir,
		now:  time.Now,
		intn: rand.Intn,
	}
}

// IsFont reports whether an upload looks like a TTF/OTF font, either by
// its declared content type or by its file extension.
func IsFont(filename, contentType string) bool {
	if fontContentTypes[strings.ToLower(contentType)] {
		return true
	}
	return fontExtensions[strings.ToLower(filepath.Ext(filename))]
}

// StorageName returns "<unix millis>-<random>-<base name>" for original.
func (a *Acceptor) StorageName(original string) string {
	return fmt.Sprintf("%d-%d-%s", a.now().UnixMilli(), a.intn(1e9), filepath.Base(original))
}

// Accept reads the font field from r, validates it and stores it.
// Errors wrapping ErrNoFile, ErrInvalidFileType or ErrInvalidFont are the
// caller's fault; a *http.MaxBytesError means the body was too large.
func (a *Acceptor) Accept(r *http.Request) (*File, error) {
	part, header, err := r.FormFile(FieldName)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, ErrNoFile
		}
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	defer part.Close()

	contentType := header.Header.Get("Content-Type")
	if !IsFont(header.Filename, contentType) {
		return nil, ErrInvalidFileType
	}

	out, path, err := a.create(header.Filename)
	if err != nil {
		return nil, err
	}

	size, err := io.Copy(out, part)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	file := &File{
		OriginalName: header.Filename,
		ContentType:  contentType,
		Path:         path,
		Size:         size,
	}

	file.Font, err = fontinfo.ParseFile(path)
	if err != nil {
		file.Remove()
		return nil, fmt.Errorf("%w: %v", ErrInvalidFont, err)
	}

	return file, nil
}

// create opens a new file with a fresh storage name, retrying when a name
// is already taken so two uploads never share a path.
func (a *Acceptor) create(original string) (*os.File, string, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		path := filepath.Join(a.Dir, a.StorageName(original))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("failed to create upload file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("failed to allocate a unique name for %q", original)
}
