package assets

// DefaultStyleName is the print stylesheet injected by the CSS-aware backends.
const DefaultStyleName = "print"

// UploadTemplateName is the HTML form served by the upload front end.
const UploadTemplateName = "upload"

// defaultLoader is the package-level embedded loader.
var defaultLoader = NewEmbeddedLoader()

// LoadStyle loads a CSS file by name using the default embedded loader.
// The name should not include the .css extension or path components.
// Returns ErrStyleNotFound if the style does not exist.
// Returns ErrInvalidAssetName if the name contains path separators or traversal.
func LoadStyle(name string) (string, error) {
	return defaultLoader.LoadStyle(name)
}

// LoadTemplate loads an HTML template by name using the default embedded loader.
func LoadTemplate(name string) (string, error) {
	return defaultLoader.LoadTemplate(name)
}

// StyleNames lists the bundled style names, sorted.
func StyleNames() []string {
	return defaultLoader.Styles()
}
