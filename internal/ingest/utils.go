package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/contract-extractor/constants"
)

// AllowedExt checks if a file extension is in constants.AllowedExtensions.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// contentKey places blobs under tenant/hash so identical uploads share one object.
func contentKey(tenantID, hashHex, filename string) string {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if ext == "" {
		ext = "bin"
	}
	tenant := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '.' {
			return '_'
		}
		return r
	}, tenantID)
	return tenant + "/" + hashHex + "." + ext
}

func titleFromFilename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
}
