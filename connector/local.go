package connector

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bonehead-labs/fmf/errs"
)

// Local lists and reads files from a directory on the local
// filesystem, generalising the teacher's LoadDir/LoadFile loader into
// the Connector contract.
type Local struct {
	Root string
	name string
}

// NewLocal constructs a Local connector rooted at dir.
func NewLocal(name, dir string) *Local {
	return &Local{Root: dir, name: name}
}

func (l *Local) Name() string { return l.name }

func (l *Local) List(ctx context.Context, selectors []string) ([]ResourceRef, error) {
	var refs []ResourceRef
	err := filepath.WalkDir(l.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.Root, path)
		if err != nil {
			return err
		}
		if len(selectors) > 0 && !matchesAny(selectors, rel) {
			return nil
		}
		refs = append(refs, ResourceRef{
			ID:   rel,
			URI:  "file://" + path,
			Name: d.Name(),
		})
		return nil
	})
	if err != nil {
		return nil, errs.ConnectorErrorf(err, "listing local connector %s", l.name)
	}
	return refs, nil
}

func matchesAny(selectors []string, rel string) bool {
	for _, sel := range selectors {
		if ok, _ := filepath.Match(sel, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(sel, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

func (l *Local) Open(ctx context.Context, ref ResourceRef) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(l.Root, ref.ID))
	if err != nil {
		return nil, errs.ConnectorErrorf(err, "opening %s", ref.URI)
	}
	return f, nil
}

func (l *Local) Info(ctx context.Context, ref ResourceRef) (ResourceInfo, error) {
	st, err := os.Stat(filepath.Join(l.Root, ref.ID))
	if err != nil {
		return ResourceInfo{}, errs.ConnectorErrorf(err, "stat %s", ref.URI)
	}
	return ResourceInfo{
		SourceURI:  ref.URI,
		ModifiedAt: st.ModTime().UTC(),
		Size:       st.Size(),
		Extra:      map[string]string{},
	}, nil
}

var _ Connector = (*Local)(nil)
