// Package fontinfo parses uploaded fonts to make sure they are real TTF/OTF
// files and exposes a few properties used for logging and glyph checks.
package fontinfo

import (
	"fmt"
	"os"

	"golang.org/x/image/font/sfnt"
)

// Info describes a parsed font.
type Info struct {
	Name      string
	Family    string
	NumGlyphs int

	font *sfnt.Font
}

// Parse parses font bytes. The bytes must not be modified afterwards.
func Parse(data []byte) (*Info, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	var buf sfnt.Buffer
	info := &Info{
		Name:      property(f, &buf, sfnt.NameIDFull),
		Family:    property(f, &buf, sfnt.NameIDFamily),
		NumGlyphs: f.NumGlyphs(),
		font:      f,
	}
	return info, nil
}

// ParseFile reads and parses the font at path.
func ParseFile(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	return Parse(data)
}

// MissingRunes returns the runes of chars the font has no glyph for.
// Repeated runes are reported once.
func (i *Info) MissingRunes(chars string) []rune {
	var buf sfnt.Buffer
	var missing []rune
	seen := make(map[rune]bool)
	for _, r := range chars {
		if seen[r] {
			continue
		}
		seen[r] = true

		idx, err := i.font.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			missing = append(missing, r)
		}
	}
	return missing
}

// property returns an empty string when the name table lacks the entry
// or cannot be decoded. Names are informational only.
func property(f *sfnt.Font, buf *sfnt.Buffer, id sfnt.NameID) string {
	s, err := f.Name(buf, id)
	if err != nil {
		return ""
	}
	return s
}
