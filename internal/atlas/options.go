// Package atlas turns a generation request into an msdf-atlas-gen command
// line and runs it.
package atlas

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// Glyph selection modes accepted in the glyphsOption form field.
const (
	AllGlyphs      = "allGlyphs"
	SelectedGlyphs = "selectedGlyphs"
)

const (
	DefaultSize    = 32
	DefaultPxRange = 2

	atlasSuffix = "-atlas"
)

// ErrInvalidOptions marks request options the caller must fix.
var ErrInvalidOptions = errors.New("invalid generation options")

// Options is the per-request generation config.
type Options struct {
	// GlyphMode is AllGlyphs, SelectedGlyphs or empty. Empty leaves glyph
	// selection to the generator's own default.
	GlyphMode string
	Chars     string
	// Size and PxRange are passed to the generator as given; it rejects
	// values it cannot use.
	Size    string
	PxRange string
}

// ParseOptions reads glyphsOption, selectedGlyphs, size and pxRange from
// form values. Unknown glyph modes are treated as unset, and an empty or
// zero size or pxRange falls back to its default.
func ParseOptions(form url.Values) (Options, error) {
	opts := Options{
		Size:    orDefault(form.Get("size"), DefaultSize),
		PxRange: orDefault(form.Get("pxRange"), DefaultPxRange),
	}

	switch mode := form.Get("glyphsOption"); mode {
	case AllGlyphs:
		opts.GlyphMode = AllGlyphs
	case SelectedGlyphs:
		opts.GlyphMode = SelectedGlyphs
		opts.Chars = form.Get("selectedGlyphs")
		if opts.Chars == "" {
			return Options{}, fmt.Errorf("%w: selectedGlyphs is required when glyphsOption is %s", ErrInvalidOptions, SelectedGlyphs)
		}
	}
	return opts, nil
}

func orDefault(raw string, def int) string {
	if raw == "" {
		return strconv.Itoa(def)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n == 0 {
		return strconv.Itoa(def)
	}
	return raw
}

// Outputs names the three artifacts one generation writes into Dir.
type Outputs struct {
	Dir      string
	BaseName string
}

// NewOutputs derives "<name without extension>-atlas" from the uploaded
// font's original file name.
func NewOutputs(dir, originalName string) Outputs {
	base := filepath.Base(originalName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return Outputs{Dir: dir, BaseName: base + atlasSuffix}
}

// Font is the .arfont descriptor path.
func (o Outputs) Font() string { return o.path(".arfont") }

// Image is the PNG atlas path.
func (o Outputs) Image() string { return o.path(".png") }

// JSON is the metadata path.
func (o Outputs) JSON() string { return o.path(".json") }

// Names returns the artifact file names, in font, image, json order.
func (o Outputs) Names() []string {
	return []string{
		o.BaseName + ".arfont",
		o.BaseName + ".png",
		o.BaseName + ".json",
	}
}

func (o Outputs) path(ext string) string {
	return filepath.Join(o.Dir, o.BaseName+ext)
}
