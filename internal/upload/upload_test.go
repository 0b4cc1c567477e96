package upload

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func newUploadRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FieldName, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestIsFont(t *testing.T) {
	cases := []struct {
		name, contentType string
		want              bool
	}{
		{"Roboto.ttf", "application/octet-stream", true},
		{"Roboto.OTF", "", true},
		{"font.bin", "font/ttf", true},
		{"font.bin", "font/otf", true},
		{"font.woff", "font/woff", false},
		{"notes.txt", "text/plain", false},
		{"ttf", "", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, IsFont(tc.name, tc.contentType), "%s (%s)", tc.name, tc.contentType)
	}
}

func TestStorageName_UniqueWithinSameInstant(t *testing.T) {
	a := NewAcceptor(t.TempDir())
	fixed := time.UnixMilli(1700000000000)
	a.now = func() time.Time { return fixed }

	first := a.StorageName("Roboto.ttf")
	second := a.StorageName("Roboto.ttf")

	require.True(t, strings.HasPrefix(first, "1700000000000-"))
	require.True(t, strings.HasSuffix(first, "-Roboto.ttf"))
	require.NotEqual(t, first, second)
}

func TestStorageName_StripsDirectories(t *testing.T) {
	a := NewAcceptor(t.TempDir())
	require.True(t, strings.HasSuffix(a.StorageName("../../etc/Roboto.ttf"), "-Roboto.ttf"))
}

func TestAccept_StoresValidFont(t *testing.T) {
	dir := t.TempDir()
	a := NewAcceptor(dir)

	file, err := a.Accept(newUploadRequest(t, "Go Regular.ttf", "font/ttf", goregular.TTF))
	require.NoError(t, err)

	require.Equal(t, "Go Regular.ttf", file.OriginalName)
	require.Equal(t, dir, filepath.Dir(file.Path))
	require.Equal(t, int64(len(goregular.TTF)), file.Size)
	require.NotNil(t, file.Font)

	stored, err := os.ReadFile(file.Path)
	require.NoError(t, err)
	require.Equal(t, goregular.TTF, stored)

	require.NoError(t, file.Remove())
	require.NoFileExists(t, file.Path)
	require.NoError(t, file.Remove())
}

func TestAccept_SameNameGetsDistinctPaths(t *testing.T) {
	a := NewAcceptor(t.TempDir())
	fixed := time.UnixMilli(1700000000000)
	a.now = func() time.Time { return fixed }
	a.intn = func(int) int { return 7 }

	first, err := a.Accept(newUploadRequest(t, "Go.ttf", "", goregular.TTF))
	require.NoError(t, err)
	_, err = a.Accept(newUploadRequest(t, "Go.ttf", "", goregular.TTF))
	require.Error(t, err, "a colliding name must not overwrite an earlier upload")

	calls := 0
	a.intn = func(int) int { calls++; return calls }
	second, err := a.Accept(newUploadRequest(t, "Go.ttf", "", goregular.TTF))
	require.NoError(t, err)
	require.NotEqual(t, first.Path, second.Path)
}

func TestAccept_RejectsWrongType(t *testing.T) {
	dir := t.TempDir()
	a := NewAcceptor(dir)

	_, err := a.Accept(newUploadRequest(t, "evil.sh", "text/x-shellscript", []byte("#!/bin/sh")))
	require.ErrorIs(t, err, ErrInvalidFileType)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestAccept_RejectsUnparseableFont(t *testing.T) {
	dir := t.TempDir()
	a := NewAcceptor(dir)

	_, err := a.Accept(newUploadRequest(t, "fake.ttf", "font/ttf", []byte("not a font")))
	require.ErrorIs(t, err, ErrInvalidFont)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestAccept_MissingFile(t *testing.T) {
	a := NewAcceptor(t.TempDir())

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("glyphsOption", "allGlyphs"))
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	_, err := a.Accept(req)
	require.ErrorIs(t, err, ErrNoFile)

	_, err = a.Accept(httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader("{}")))
	require.ErrorIs(t, err, ErrNoFile)
}

func TestAccept_BodyTooLarge(t *testing.T) {
	a := NewAcceptor(t.TempDir())
	req := newUploadRequest(t, "Go.ttf", "font/ttf", goregular.TTF)
	req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, 1024)

	_, err := a.Accept(req)
	var maxBytesErr *http.MaxBytesError
	require.True(t, errors.As(err, &maxBytesErr), "got %v", err)
}

func TestAccept_MissingDirectory(t *testing.T) {
	a := NewAcceptor(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := a.Accept(newUploadRequest(t, "Go.ttf", "font/ttf", goregular.TTF))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidFileType)
}
