// Package pipeline implements the HTML stages shared by the rendering backends.
//
// It works on the intermediate HTML produced by structural conversion:
//   - plain-text projection for the text flows (ExtractText)
//   - print stylesheet injection and image stripping for the CSS-aware flow
//   - image source rewriting to absolute file:// URLs inside the job workspace
//   - CSS declaration collection, used to report unsupported style rules
//
// PDF generation itself lives in the root epub2pdf package.
package pipeline
