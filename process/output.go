package process

import (
	"path/filepath"
	"strings"

	"svgmin/config"
	"svgmin/state"
)

// stdout is the destination name selecting standard output.
const stdout = "-"

// buildOutputPath returns output file name for the source. "src" is source
// path relative to the processed location (always including file name), "dst"
// is the destination directory. Source directory structure is kept unless
// requested otherwise, suffix is inserted before extension when set.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	if dst == stdout {
		return stdout
	}
	outDir := dst
	if !env.NoDirs {
		outDir = filepath.Join(dst, filepath.Dir(src))
	}
	ext := filepath.Ext(src)
	base := strings.TrimSuffix(filepath.Base(src), ext)
	return filepath.Join(outDir, config.CleanFileName(base+env.Suffix+ext))
}
