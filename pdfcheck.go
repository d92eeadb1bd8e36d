package epub2pdf

import (
	"fmt"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfcpu writes a config directory under the user's home unless disabled.
var disablePDFConfigDir = sync.OnceFunc(api.DisableConfigDir)

// verifyPDF parses the file at path and returns its page count.
// A file that does not parse or has no pages is ErrInvalidPDF.
func verifyPDF(path string) (int, error) {
	disablePDFConfigDir()

	f, err := os.Open(path) // #nosec G304 -- path inside the job workspace
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	defer func() { _ = f.Close() }()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.PageCount(f, conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if pages < 1 {
		return 0, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}
	return pages, nil
}
