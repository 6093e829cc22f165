package pdf

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// DefaultDPI is the render resolution when the caller does not choose one.
// 300 keeps handwriting legible for both recognizers and vision models.
const DefaultDPI = 300

// PageCount returns the number of pages in the PDF.
func PageCount(pdfPath string) (int, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return count, nil
}

// RenderPage renders one page (1-based) to a PNG under outDir using pdftoppm
// (poppler-utils) and returns the image path.
func RenderPage(pdfPath, outDir string, pageNum, dpi int) (string, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	outputPrefix := filepath.Join(outDir, fmt.Sprintf("page_%04d", pageNum))

	// -f/-l select the page, -singlefile drops the page number suffix
	pageStr := fmt.Sprintf("%d", pageNum)
	cmd := exec.Command("pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	imagePath := outputPrefix + ".png"
	if _, err := os.Stat(imagePath); err != nil {
		return "", fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}

	return imagePath, nil
}
