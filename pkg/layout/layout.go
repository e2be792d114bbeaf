// Package layout reads per-type layout files. Layout files override the UI hints a
// type declares in code (names, descriptions, member order, grouping, visibility)
// without recompiling.
//
// A layout file is named "<package>.<Type>.layout.yaml", e.g. "petclinic.Owner.layout.yaml":
//
//	named: Pet owner
//	cssClass: owner
//	members:
//	  LastName:
//	    sequence: "1"
//	    group: General
//	  Telephone:
//	    hidden: tables
package layout

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sync"

	"gopkg.in/yaml.v3"
)

// Layout is the layout of one type
type Layout struct {
	Named       string                  `yaml:"named"`
	DescribedAs string                  `yaml:"describedAs"`
	CssClass    string                  `yaml:"cssClass"`
	Members     map[string]MemberLayout `yaml:"members"`
}

// MemberLayout is the layout of one property, collection or action
type MemberLayout struct {
	Named       string `yaml:"named"`
	DescribedAs string `yaml:"describedAs"`
	CssClass    string `yaml:"cssClass"`
	Sequence    string `yaml:"sequence"`
	Group       string `yaml:"group"`
	Hidden      string `yaml:"hidden"`
	MultiLine   int    `yaml:"multiLine"`
}

// Suffix is the file name suffix of layout files
const Suffix = ".layout.yaml"

// Reader loads layouts from a file system and caches them
type Reader struct {
	fsys  fs.FS
	mu    sync.Mutex
	cache map[string]*Layout
}

// NewReader creates a reader over fsys. A nil fsys reads no layouts.
func NewReader(fsys fs.FS) *Reader {
	return &Reader{
		fsys:  fsys,
		cache: make(map[string]*Layout),
	}
}

// FileName returns the layout file name for a package path and type name
func FileName(pkgPath, typeName string) string {
	return path.Base(pkgPath) + "." + typeName + Suffix
}

// Read returns the layout for the type, or nil when no layout file exists
func (r *Reader) Read(pkgPath, typeName string) (*Layout, error) {
	if r == nil || r.fsys == nil {
		return nil, nil
	}
	name := FileName(pkgPath, typeName)

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.cache[name]; ok {
		return l, nil
	}

	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.cache[name] = nil
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read layout %s: %w", name, err)
	}

	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout %s: %w", name, err)
	}
	r.cache[name] = l
	return l, nil
}

// Files lists the layout files available to the reader
func (r *Reader) Files() ([]string, error) {
	if r == nil || r.fsys == nil {
		return nil, nil
	}
	matches, err := fs.Glob(r.fsys, "*"+Suffix)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Parse decodes a layout document. Unknown keys are rejected.
func Parse(data []byte) (*Layout, error) {
	var l Layout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		if errors.Is(err, io.EOF) {
			return &Layout{}, nil
		}
		return nil, err
	}
	return &l, nil
}
