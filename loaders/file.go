// Package loaders provides reference asset.Loader implementations (local
// files, HTTP) and the JSON bundle manifest format.
package loaders

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gamebyte-ai/gamebyte-assets/asset"
)

// DefaultTypes are the type tags the reference loaders register by default.
var DefaultTypes = []string{"texture", "audio", "json"}

// File loads assets from a directory tree. Descriptor sources are paths
// relative to Root; paths escaping the root are rejected.
type File struct {
	root  string
	types []string
}

// NewFile constructs a file loader rooted at root. With no explicit types
// it handles DefaultTypes.
func NewFile(root string, types ...string) *File {
	if len(types) == 0 {
		types = DefaultTypes
	}
	return &File{root: root, types: types}
}

func (f *File) Types() []string { return f.types }

func (f *File) Load(ctx context.Context, d asset.Descriptor) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel := filepath.Clean(d.Source)
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return nil, fmt.Errorf("loaders: source %q escapes root", d.Source)
	}
	data, err := os.ReadFile(filepath.Join(f.root, rel))
	if err != nil {
		return nil, fmt.Errorf("loaders: read %q: %w", d.Source, err)
	}
	return data, nil
}
