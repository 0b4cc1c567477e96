package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/term"

	"msdf-gateway/internal/atlas"
	"msdf-gateway/internal/ui"
	"msdf-gateway/web/handler"
)

type options struct {
	server  string
	font    string
	glyphs  string
	chars   string
	size    int
	pxRange int
	outDir  string
}

func main() {
	opts := options{}
	flag.StringVar(&opts.server, "server", "http://localhost:9090", "Gateway base URL")
	flag.StringVar(&opts.font, "font", "", "TTF or OTF font to upload")
	flag.StringVar(&opts.glyphs, "glyphs", "", "Glyph selection: 'all' or 'chars' (default: generator default)")
	flag.StringVar(&opts.chars, "chars", "", "Characters to include with -glyphs chars")
	flag.IntVar(&opts.size, "size", atlas.DefaultSize, "Glyph size in pixels")
	flag.IntVar(&opts.pxRange, "pxrange", atlas.DefaultPxRange, "Distance field range in pixels")
	flag.StringVar(&opts.outDir, "out", ".", "Directory to save the generated files in")
	flag.Parse()

	if opts.font == "" {
		fmt.Println("Usage: client -font [file.ttf] [-glyphs all|chars] [-chars ABC] [-size 32] [-pxrange 2] [-out dir]")
		return
	}

	fields, err := opts.formFields()
	if err != nil {
		log.Fatal(err)
	}

	var progress io.Writer
	if term.IsTerminal(int(os.Stdout.Fd())) {
		progress = os.Stdout
	}

	client := &http.Client{Timeout: 10 * time.Minute}

	resp, err := uploadFont(client, opts.server, opts.font, fields, progress)
	if err != nil {
		log.Fatalf("Error generating atlas: %v", err)
	}
	fmt.Println(resp.Message)

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		log.Fatalf("Error creating %s: %v", opts.outDir, err)
	}
	for _, u := range []string{resp.Output.Font, resp.Output.Image, resp.Output.JSON} {
		saved, err := download(client, u, opts.outDir, progress)
		if err != nil {
			log.Fatalf("Error downloading %s: %v", u, err)
		}
		fmt.Printf("Saved %s\n", saved)
	}
}

func (o options) formFields() (map[string]string, error) {
	fields := map[string]string{
		"size":    strconv.Itoa(o.size),
		"pxRange": strconv.Itoa(o.pxRange),
	}
	switch o.glyphs {
	case "":
	case "all":
		fields["glyphsOption"] = atlas.AllGlyphs
	case "chars":
		if o.chars == "" {
			return nil, errors.New("-glyphs chars needs -chars")
		}
		fields["glyphsOption"] = atlas.SelectedGlyphs
		fields["selectedGlyphs"] = o.chars
	default:
		return nil, fmt.Errorf("unknown -glyphs value %q", o.glyphs)
	}
	return fields, nil
}

// uploadFont streams fontPath and fields to POST /api/generate.
func uploadFont(client *http.Client, server, fontPath string, fields map[string]string, progress io.Writer) (*handler.GenerateResponse, error) {
	file, err := os.Open(fontPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, file, filepath.Base(fontPath), info.Size(), fields, progress))
	}()

	req, err := http.NewRequest(http.MethodPost, server+"/api/generate", pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var body handler.ErrorResponse
		if err := json.NewDecoder(res.Body).Decode(&body); err != nil || body.Error == "" {
			return nil, fmt.Errorf("server returned %s", res.Status)
		}
		return nil, fmt.Errorf("server returned %s: %s", res.Status, body.Error)
	}

	var body handler.GenerateResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &body, nil
}

func writeForm(mw *multipart.Writer, font io.Reader, name string, size int64, fields map[string]string, progress io.Writer) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, ui.NewProgressReader("⬆️  Uploading...  ", size, font, progress)); err != nil {
		return err
	}
	return mw.Close()
}

// download saves rawURL into dir under the last path element of the URL.
func download(client *http.Client, rawURL, dir string, progress io.Writer) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return "", fmt.Errorf("no file name in %s", rawURL)
	}

	res, err := client.Get(rawURL)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned %s", res.Status)
	}

	dst := filepath.Join(dir, name)
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := ui.NewProgressWriter("⬇️  Downloading...", res.ContentLength, out, progress)
	if _, err := io.Copy(w, res.Body); err != nil {
		return "", err
	}
	return dst, out.Close()
}
