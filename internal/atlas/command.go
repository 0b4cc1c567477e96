package atlas

// BuildArgs returns the generator argv (without the binary) for fontPath.
// Every value is its own argv element; nothing is quoted or shell-escaped,
// so user supplied characters reach the generator verbatim.
func BuildArgs(fontPath string, opts Options, out Outputs) []string {
	args := []string{
		"-font", fontPath,
		"-type", "mtsdf",
		"-format", "png",
		"-size", opts.Size,
		"-pxrange", opts.PxRange,
	}

	switch opts.GlyphMode {
	case AllGlyphs:
		args = append(args, "-allglyphs")
	case SelectedGlyphs:
		args = append(args, "-chars", opts.Chars)
	}

	return append(args,
		"-arfont", out.Font(),
		"-imageout", out.Image(),
		"-json", out.JSON(),
	)
}
