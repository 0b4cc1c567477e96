package atlas

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseOptions_Defaults(t *testing.T) {
	opts, err := ParseOptions(url.Values{})
	require.NoError(t, err)
	require.Equal(t, Options{Size: "32", PxRange: "2"}, opts)
}

func TestParseOptions(t *testing.T) {
	cases := []struct {
		name string
		form url.Values
		want Options
	}{
		{
			name: "all glyphs",
			form: url.Values{"glyphsOption": {"allGlyphs"}, "size": {"48"}, "pxRange": {"4"}},
			want: Options{GlyphMode: AllGlyphs, Size: "48", PxRange: "4"},
		},
		{
			name: "selected glyphs",
			form: url.Values{"glyphsOption": {"selectedGlyphs"}, "selectedGlyphs": {"AB"}},
			want: Options{GlyphMode: SelectedGlyphs, Chars: "AB", Size: "32", PxRange: "2"},
		},
		{
			name: "chars ignored without selected mode",
			form: url.Values{"selectedGlyphs": {"AB"}},
			want: Options{Size: "32", PxRange: "2"},
		},
		{
			name: "unknown mode is unset",
			form: url.Values{"glyphsOption": {"someGlyphs"}},
			want: Options{Size: "32", PxRange: "2"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseOptions(tc.form)
			require.NoError(t, err)
			if d := cmp.Diff(tc.want, got); d != "" {
				t.Errorf("options mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestParseOptions_SizeAndRange(t *testing.T) {
	cases := []struct {
		form          url.Values
		size, pxRange string
	}{
		{url.Values{"size": {""}, "pxRange": {""}}, "32", "2"},
		{url.Values{"size": {"0"}, "pxRange": {"0"}}, "32", "2"},
		{url.Values{"size": {"00"}}, "32", "2"},
		{url.Values{"size": {"big"}, "pxRange": {"-2"}}, "big", "-2"},
		{url.Values{"size": {"1.5"}}, "1.5", "2"},
	}
	for _, tc := range cases {
		opts, err := ParseOptions(tc.form)
		require.NoError(t, err, "%v", tc.form)
		require.Equal(t, tc.size, opts.Size, "%v", tc.form)
		require.Equal(t, tc.pxRange, opts.PxRange, "%v", tc.form)
	}
}

func TestParseOptions_SelectedGlyphsNeedsChars(t *testing.T) {
	_, err := ParseOptions(url.Values{"glyphsOption": {"selectedGlyphs"}})
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestNewOutputs(t *testing.T) {
	out := NewOutputs("/srv/output/job", "My Font.Bold.ttf")
	require.Equal(t, "My Font.Bold-atlas", out.BaseName)
	require.Equal(t, filepath.Join("/srv/output/job", "My Font.Bold-atlas.arfont"), out.Font())
	require.Equal(t, filepath.Join("/srv/output/job", "My Font.Bold-atlas.png"), out.Image())
	require.Equal(t, filepath.Join("/srv/output/job", "My Font.Bold-atlas.json"), out.JSON())
	require.Equal(t, []string{"My Font.Bold-atlas.arfont", "My Font.Bold-atlas.png", "My Font.Bold-atlas.json"}, out.Names())

	require.Equal(t, "Roboto-atlas", NewOutputs("out", "../../Roboto.otf").BaseName)
}

func TestBuildArgs(t *testing.T) {
	out := Outputs{Dir: "out", BaseName: "Roboto-atlas"}
	tail := []string{
		"-arfont", filepath.Join("out", "Roboto-atlas.arfont"),
		"-imageout", filepath.Join("out", "Roboto-atlas.png"),
		"-json", filepath.Join("out", "Roboto-atlas.json"),
	}
	head := func(size, pxRange string) []string {
		return []string{"-font", "up/1-2-Roboto.ttf", "-type", "mtsdf", "-format", "png", "-size", size, "-pxrange", pxRange}
	}

	cases := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "defaults without glyph mode",
			opts: Options{Size: "32", PxRange: "2"},
			want: append(head("32", "2"), tail...),
		},
		{
			name: "all glyphs",
			opts: Options{GlyphMode: AllGlyphs, Size: "64", PxRange: "8"},
			want: append(append(head("64", "8"), "-allglyphs"), tail...),
		},
		{
			name: "selected glyphs",
			opts: Options{GlyphMode: SelectedGlyphs, Chars: "AB", Size: "32", PxRange: "2"},
			want: append(append(head("32", "2"), "-chars", "AB"), tail...),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildArgs("up/1-2-Roboto.ttf", tc.opts, out)
			if d := cmp.Diff(tc.want, got); d != "" {
				t.Errorf("args mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestBuildArgs_AllGlyphsHasNoChars(t *testing.T) {
	args := BuildArgs("f.ttf", Options{GlyphMode: AllGlyphs, Chars: "AB", Size: "32", PxRange: "2"}, Outputs{Dir: "o", BaseName: "f-atlas"})
	require.Contains(t, args, "-allglyphs")
	require.NotContains(t, args, "-chars")
}

func TestBinaryName(t *testing.T) {
	require.Equal(t, "msdf-atlas-gen-macos", BinaryName("darwin"))
	require.Equal(t, "msdf-atlas-gen-linux", BinaryName("linux"))
	require.Equal(t, "msdf-atlas-gen-linux", BinaryName("freebsd"))
	require.Equal(t, "msdf-atlas-gen-windows.exe", BinaryName("windows"))

	g := NewGenerator("/opt/msdf", "darwin", time.Minute)
	require.Equal(t, filepath.Join("/opt/msdf", "msdf-atlas-gen-macos"), g.Binary)
	require.Equal(t, time.Minute, g.Timeout)
}

// writeScript writes a non-executable shell script so Run has to fix the
// permissions itself.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("generator scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "msdf-atlas-gen-linux")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o644))
	return path
}

func TestGeneratorRun_PassesArgsVerbatim(t *testing.T) {
	record := filepath.Join(t.TempDir(), "args.txt")
	bin := writeScript(t, `for a in "$@"; do printf '%s\n' "$a"; done > '`+record+`'`)

	hostile := `"; touch pwned; echo "$HOME`
	args := []string{"-chars", hostile, "-font", "a font with spaces.ttf"}

	g := &Generator{Binary: bin}
	require.NoError(t, g.Run(context.Background(), args))

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	require.Equal(t, args, strings.Split(strings.TrimSuffix(string(data), "\n"), "\n"))

	info, err := os.Stat(bin)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestGeneratorRun_NonZeroExit(t *testing.T) {
	bin := writeScript(t, `echo "cannot load font" >&2; exit 3`)

	err := (&Generator{Binary: bin}).Run(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exit status 3")
	require.Contains(t, err.Error(), "cannot load font")
}

func TestGeneratorRun_MissingBinary(t *testing.T) {
	g := &Generator{Binary: filepath.Join(t.TempDir(), "missing")}

	err := g.Run(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to stat generator")
}

func TestGeneratorRun_ChmodFailure(t *testing.T) {
	ran := filepath.Join(t.TempDir(), "ran")
	bin := writeScript(t, `touch '`+ran+`'`)

	chmod = func(string, os.FileMode) error { return os.ErrPermission }
	t.Cleanup(func() { chmod = os.Chmod })

	err := (&Generator{Binary: bin}).Run(context.Background(), nil)
	require.ErrorIs(t, err, os.ErrPermission)
	require.Contains(t, err.Error(), "failed to make generator executable")
	require.NoFileExists(t, ran)
}

func TestGeneratorRun_Timeout(t *testing.T) {
	bin := writeScript(t, `exec sleep 5`)

	g := &Generator{Binary: bin, Timeout: 100 * time.Millisecond}
	start := time.Now()
	err := g.Run(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "timed out")
	require.Less(t, time.Since(start), 4*time.Second)
}
