// Package classdecl loads class declarations from YAML and TOML files into
// a vm.Runtime. Each file is checked against an embedded CUE schema before
// any class is built.
package classdecl

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a declaration file.
type Format int

const (
	YAML Format = iota
	TOML
)

func (f Format) String() string {
	if f == TOML {
		return "toml"
	}
	return "yaml"
}

// FormatFor picks the format from a file extension. ok is false for files
// that are not declaration files.
func FormatFor(path string) (f Format, ok bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, true
	case ".toml":
		return TOML, true
	}
	return 0, false
}

// File is a parsed declaration file.
type File struct {
	Path    string      `yaml:"-" toml:"-"`
	Classes []ClassDecl `yaml:"classes" toml:"classes"`
}

// ClassDecl declares one class.
type ClassDecl struct {
	Name        string      `yaml:"name" toml:"name"`
	Namespace   string      `yaml:"namespace" toml:"namespace"`
	Dynamic     bool        `yaml:"dynamic" toml:"dynamic"`
	Extends     string      `yaml:"extends" toml:"extends"`
	Constructor *NativeRef  `yaml:"constructor" toml:"constructor"`
	Traits      []TraitDecl `yaml:"traits" toml:"traits"`
	Statics     []TraitDecl `yaml:"statics" toml:"statics"`
}

// FullName returns the name the class is registered under, given the
// namespace used when the declaration names none.
func (d *ClassDecl) FullName(defaultNS string) string {
	ns := d.Namespace
	if ns == "" {
		ns = defaultNS
	}
	if ns == "" {
		return d.Name
	}
	return ns + "::" + d.Name
}

// NativeRef names a registered native and its accepted argument range.
// Max defaults to Min; -1 accepts rest arguments.
type NativeRef struct {
	Native string `yaml:"native" toml:"native"`
	Min    int    `yaml:"min" toml:"min"`
	Max    *int   `yaml:"max" toml:"max"`
}

// TraitDecl declares one member.
//
//	kind     slot, const, method, getter, setter or class
//	ns       public (default), internal, protected or private
//	type     declared type name; builtin or a class name
//	default  initial value for slot and const
//	native   function for method, getter and setter
//	class    target class name for class traits
type TraitDecl struct {
	Kind    string `yaml:"kind" toml:"kind"`
	Name    string `yaml:"name" toml:"name"`
	NS      string `yaml:"ns" toml:"ns"`
	Type    string `yaml:"type" toml:"type"`
	Default any    `yaml:"default" toml:"default"`
	Native  string `yaml:"native" toml:"native"`
	Min     int    `yaml:"min" toml:"min"`
	Max     *int   `yaml:"max" toml:"max"`
	Class   string `yaml:"class" toml:"class"`
}

// Parse decodes and validates declaration text.
func Parse(data []byte, format Format) (*File, error) {
	var raw any
	switch format {
	case TOML:
		var m map[string]any
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		if len(m) > 0 {
			raw = m
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("empty declaration file")
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	var f File
	switch format {
	case TOML:
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, err
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

// ParseFile reads and parses a declaration file, choosing the format from
// its extension.
func ParseFile(path string) (*File, error) {
	format, ok := FormatFor(path)
	if !ok {
		return nil, fmt.Errorf("classdecl: %s: not a .yaml, .yml or .toml file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("classdecl: %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}
