// Package prompt implements a local, YAML-backed prompt registry:
// templates are registered from disk by "path#version", content-hashed
// for change detection, optionally self-tested via inline
// assertion-style tests, and tracked in a single index.yaml.
package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bonehead-labs/fmf/errs"
)

// Version is one resolved, content-hashed prompt template.
type Version struct {
	ID          string
	Version     string
	Template    string
	ContentHash string
	Path        string
}

type promptFile struct {
	ID       string            `yaml:"id"`
	Version  string            `yaml:"version"`
	Template string            `yaml:"template"`
	Versions []versionEntry    `yaml:"versions"`
}

type versionEntry struct {
	Version  string       `yaml:"version"`
	Template string       `yaml:"template"`
	Tests    []versionTest `yaml:"tests"`
}

type versionTest struct {
	Inputs     map[string]interface{} `yaml:"inputs"`
	Assertions struct {
		Contains []string `yaml:"contains"`
	} `yaml:"assertions"`
}

type indexFile struct {
	Prompts []indexPrompt `yaml:"prompts"`
}

type indexPrompt struct {
	ID       string              `yaml:"id"`
	Path     string              `yaml:"path"`
	Versions []indexPromptVersion `yaml:"versions"`
}

type indexPromptVersion struct {
	Version     string `yaml:"version"`
	ContentHash string `yaml:"content_hash"`
}

func contentHash(template string) string {
	sum := sha256.Sum256([]byte(template))
	return hex.EncodeToString(sum[:])
}

// Registry is a local-filesystem, YAML-backed prompt store rooted at
// Root, with a single index file tracking every registered id/version
// pair's content hash.
type Registry struct {
	Root      string
	IndexPath string
}

// NewRegistry builds a Registry rooted at root, tracking registrations
// in indexFile (relative paths resolve under root).
func NewRegistry(root, indexFile string) *Registry {
	if !filepath.IsAbs(indexFile) {
		indexFile = filepath.Join(root, indexFile)
	}
	return &Registry{Root: root, IndexPath: indexFile}
}

func (r *Registry) loadIndex() (indexFile, error) {
	data, err := os.ReadFile(r.IndexPath)
	if os.IsNotExist(err) {
		return indexFile{}, nil
	}
	if err != nil {
		return indexFile{}, err
	}
	var idx indexFile
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return indexFile{}, err
	}
	return idx, nil
}

func (r *Registry) saveIndex(idx indexFile) error {
	if err := os.MkdirAll(filepath.Dir(r.IndexPath), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(idx)
	if err != nil {
		return err
	}
	return os.WriteFile(r.IndexPath, data, 0o644)
}

// Register loads a prompt from ref ("relative/path.yaml" or
// "relative/path.yaml#v2"), validates it, runs any inline tests,
// updates the index and returns the resolved Version.
func (r *Registry) Register(ref string) (Version, error) {
	path, wantVersion, hasVersion := strings.Cut(ref, "#")
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Version{}, errs.ConfigErrorf(err, "prompt file not found: %s", path)
	}
	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return Version{}, errs.ConfigErrorf(err, "parsing prompt yaml %s", path)
	}

	id := pf.ID
	if id == "" {
		base := filepath.Base(path)
		id = strings.TrimSuffix(base, filepath.Ext(base))
	}

	var version, template string
	if len(pf.Versions) == 0 {
		if pf.Template == "" {
			return Version{}, errs.ConfigErrorf(nil, "prompt yaml %s must contain 'template' or 'versions'", path)
		}
		version = pf.Version
		if hasVersion {
			version = wantVersion
		}
		if version == "" {
			version = "v0"
		}
		template = pf.Template
	} else {
		if !hasVersion {
			return Version{}, errs.ConfigErrorf(nil, "version must be provided for multi-version prompt %s (use file#version)", path)
		}
		var match *versionEntry
		for i := range pf.Versions {
			if pf.Versions[i].Version == wantVersion {
				match = &pf.Versions[i]
				break
			}
		}
		if match == nil {
			return Version{}, errs.ConfigErrorf(nil, "version %q not found in %s", wantVersion, path)
		}
		if match.Template == "" {
			return Version{}, errs.ConfigErrorf(nil, "version %q missing template in %s", wantVersion, path)
		}
		version = wantVersion
		template = match.Template

		for _, test := range match.Tests {
			rendered := renderSimple(template, test.Inputs)
			for _, needle := range test.Assertions.Contains {
				if !strings.Contains(rendered, needle) {
					return Version{}, errs.ConfigErrorf(nil, "prompt test failed for %s#%s: %q not in rendered output", id, version, needle)
				}
			}
		}
	}

	pv := Version{ID: id, Version: version, Template: template, ContentHash: contentHash(template), Path: path}

	idx, err := r.loadIndex()
	if err != nil {
		return Version{}, err
	}
	rel, err := filepath.Rel(r.Root, path)
	if err != nil {
		rel = path
	}
	var found *indexPrompt
	for i := range idx.Prompts {
		if idx.Prompts[i].ID == pv.ID {
			found = &idx.Prompts[i]
			break
		}
	}
	if found == nil {
		idx.Prompts = append(idx.Prompts, indexPrompt{ID: pv.ID, Path: rel})
		found = &idx.Prompts[len(idx.Prompts)-1]
	}
	upserted := false
	for i := range found.Versions {
		if found.Versions[i].Version == pv.Version {
			found.Versions[i].ContentHash = pv.ContentHash
			upserted = true
			break
		}
	}
	if !upserted {
		found.Versions = append(found.Versions, indexPromptVersion{Version: pv.Version, ContentHash: pv.ContentHash})
	}
	if err := r.saveIndex(idx); err != nil {
		return Version{}, err
	}
	return pv, nil
}

// Get resolves "id#version" against the index, re-reading the backing
// file for the current template text.
func (r *Registry) Get(idVersion string) (Version, error) {
	id, version, ok := strings.Cut(idVersion, "#")
	if !ok {
		return Version{}, errs.ConfigErrorf(nil, "prompt reference %q must be id#version", idVersion)
	}
	idx, err := r.loadIndex()
	if err != nil {
		return Version{}, err
	}
	for _, p := range idx.Prompts {
		if p.ID != id {
			continue
		}
		path := p.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.Root, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Version{}, errs.ConfigErrorf(err, "reading prompt file %s", path)
		}
		var pf promptFile
		if err := yaml.Unmarshal(data, &pf); err != nil {
			return Version{}, errs.ConfigErrorf(err, "parsing prompt yaml %s", path)
		}
		for _, v := range pf.Versions {
			if v.Version == version {
				return Version{ID: id, Version: version, Template: v.Template, ContentHash: contentHash(v.Template), Path: path}, nil
			}
		}
		if pf.Version == version && pf.Template != "" {
			return Version{ID: id, Version: version, Template: pf.Template, ContentHash: contentHash(pf.Template), Path: path}, nil
		}
	}
	return Version{}, errs.ConfigErrorf(nil, "prompt %q not found", idVersion)
}

func renderSimple(template string, inputs map[string]interface{}) string {
	out := template
	for k, v := range inputs {
		out = strings.ReplaceAll(out, fmt.Sprintf("{{ %s }}", k), fmt.Sprintf("%v", v))
	}
	return out
}
