package assets

import "errors"

// Lookup errors. Callers in the converter wrap these in ErrStyleLoad.
var (
	ErrStyleNotFound    = errors.New("style not found")
	ErrTemplateNotFound = errors.New("template not found")
)

// Errors from names and directories supplied through --asset-path or
// limits.assetsPath.
var (
	// ErrInvalidAssetName rejects names that are not a bare identifier,
	// such as "../print" or "print.css".
	ErrInvalidAssetName = errors.New("invalid asset name")

	// ErrInvalidBasePath means the asset directory is missing or not a directory.
	ErrInvalidBasePath = errors.New("invalid asset directory")

	ErrAssetRead = errors.New("failed to read asset")

	// ErrPathTraversal means a symlink under the asset directory points outside it.
	ErrPathTraversal = errors.New("path traversal detected")
)
