package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

// Asset is one entry of an export bundle.
type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets bundles assets into an in-memory zip. Duplicate filenames are
// disambiguated with a numeric suffix so no entry silently overwrites another.
func ArchiveAssets(assets []Asset) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]int, len(assets))
	for _, asset := range assets {
		name := uniqueName(seen, asset.Filename)
		w, err := zw.Create(name)
		if err != nil {
			continue
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}

func uniqueName(seen map[string]int, name string) string {
	if name == "" {
		name = "asset"
	}
	count := seen[name]
	seen[name] = count + 1
	if count == 0 {
		return name
	}
	ext := ""
	base := name
	if idx := strings.LastIndex(name, "."); idx > 0 {
		base, ext = name[:idx], name[idx:]
	}
	return fmt.Sprintf("%s-%d%s", base, count+1, ext)
}
