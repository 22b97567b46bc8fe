package archive

import (
	"slices"

	"github.com/containerd/platforms"
	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/recipe"
	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"
)

const (

	// Name of the metadata entry, always first in the archive.
	MetadataName = ".PAXINFO"

	// Version of the metadata document layout.
	FormatVersion = 1

	// Upper bound on the metadata document size accepted by readers.
	maxMetadataSize = 16 << 20
)

// Package metadata embedded as the first archive entry.
//
// Files and ContentDigest are filled in by the assembler from the staged
// tree; the remaining fields come from the recipe.
type Metadata struct {
	Format              int                 `yaml:"format"`
	Name                string              `yaml:"name"`
	Version             string              `yaml:"version"`
	Architecture        recipe.Architecture `yaml:"arch"`
	Platform            string              `yaml:"platform"`
	Description         string              `yaml:"description,omitempty"`
	Dependencies        []string            `yaml:"dependencies,omitempty"`
	RuntimeDependencies []string            `yaml:"runtime_dependencies,omitempty"`
	Provides            []string            `yaml:"provides,omitempty"`
	Conflicts           []string            `yaml:"conflicts,omitempty"`
	Install             string              `yaml:"install,omitempty"`
	Uninstall           string              `yaml:"uninstall,omitempty"`
	Files               []string            `yaml:"files"`
	ContentDigest       digest.Digest       `yaml:"content_digest"`
}

// Creates metadata for building r on architecture a.
//
// Provides defaults to the package name when the recipe declares none.
func NewMetadata(r *recipe.Recipe, a recipe.Architecture) Metadata {
	return Metadata{
		Format:              FormatVersion,
		Name:                r.Name,
		Version:             r.Version,
		Architecture:        a,
		Platform:            platforms.Format(a.Platform()),
		Description:         r.Description,
		Dependencies:        slices.Clone(r.Dependencies),
		RuntimeDependencies: slices.Clone(r.RuntimeDependencies),
		Provides:            r.ProvidedNames(),
		Conflicts:           slices.Clone(r.Conflicts),
		Install:             r.Install,
		Uninstall:           r.Uninstall,
	}
}

// Returns the canonical filename of the package described by m.
func (m *Metadata) CanonicalFilename() string {
	return recipe.CanonicalFilename(m.Name, m.Version, m.Architecture)
}

// Serializes the metadata document.
func (m *Metadata) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fault.Wrap(ErrSerialization, err)
	}
	return data, nil
}

// Parses a metadata document.
//
// Identity fields must be present and the architecture must be supported;
// anything else is reported as [ErrCorruptMetadata].
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fault.Wrap(ErrCorruptMetadata, err)
	}

	switch {
	case m.Format != FormatVersion:
		return nil, fault.Wrapf(ErrCorruptMetadata, "unsupported format version %d", m.Format)
	case m.Name == "" || m.Version == "":
		return nil, fault.Wrapf(ErrCorruptMetadata, "missing package identity")
	case !m.Architecture.Valid():
		return nil, fault.Wrapf(ErrCorruptMetadata, "unsupported architecture %q", m.Architecture)
	}

	if m.ContentDigest != "" {
		if err := m.ContentDigest.Validate(); err != nil {
			return nil, fault.Wrap(ErrCorruptMetadata, err)
		}
	}

	return &m, nil
}
