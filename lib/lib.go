// Package lib provides the archive builder and reader for embedding in other
// programs. It re-exports the functionality from the core package.
package lib

import (
	"unified/pkg/config"
	"unified/pkg/core"
	"unified/pkg/huffman"
)

// Constants for archive format re-exported from core
const (
	Magic     = core.Magic
	Revision  = core.Revision
	Extension = core.Extension
)

// EntryType re-exported from core
type EntryType = core.EntryType

// Re-export entry types
const (
	TypeDirectory = core.TypeDirectory
	TypeFile      = core.TypeFile
	TypeUnknown   = core.TypeUnknown
)

type (
	Header          = core.Header
	DeletionEntry   = core.DeletionEntry
	DictionaryEntry = core.DictionaryEntry
	Options         = core.Options
	Result          = core.Result
	Archive         = core.Archive
	VerifyReport    = core.VerifyReport
	Config          = config.Config
)

// Re-exported error classes, for use with errors.Is.
var (
	ErrConfig = core.ErrConfig
	ErrPath   = core.ErrPath
	ErrIO     = core.ErrIO
	ErrFormat = core.ErrFormat
)

// Build is a wrapper around core.Build
func Build(opts Options) (*Result, error) {
	return core.Build(opts)
}

// BuildConfig validates cfg and builds the archive it describes.
func BuildConfig(cfg *Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return core.Build(cfg.Options())
}

// Open is a wrapper around core.Open
func Open(path string) (*Archive, error) {
	return core.Open(path)
}

// Verify is a wrapper around core.Verify
func Verify(path, root string) (*VerifyReport, error) {
	return core.Verify(path, root)
}

// Encode Huffman-encodes data in the archive's content format.
func Encode(data []byte) ([]byte, error) {
	return huffman.Encode(data)
}

// Decode reverses Encode.
func Decode(data []byte) ([]byte, error) {
	return huffman.Decode(data)
}
