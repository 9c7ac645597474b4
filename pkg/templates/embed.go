package templates

import (
	"embed"
	"io/fs"
)

//go:embed defaults/*
var embeddedDefaults embed.FS

// EmbeddedFS returns the bundled category templates.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedDefaults, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}

// LoadDefaults parses the bundled category templates.
func LoadDefaults(options ...Option) (*Store, error) {
	return LoadFS(EmbeddedFS(), options...)
}
