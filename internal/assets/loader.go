package assets

// AssetLoader supplies the print stylesheets injected by the html backends
// and the upload form of the HTTP server. EmbeddedLoader serves the bundled
// copies; FilesystemLoader and AssetResolver read overrides from disk.
type AssetLoader interface {
	// LoadStyle returns the stylesheet called name, without its .css
	// extension. Unknown names give ErrStyleNotFound and malformed ones
	// ErrInvalidAssetName.
	LoadStyle(name string) (string, error)

	// LoadTemplate returns the HTML template called name, without its
	// .html extension. Unknown names give ErrTemplateNotFound.
	LoadTemplate(name string) (string, error)
}
