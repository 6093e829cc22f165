package hocr

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/pagelift/pagelift/pkg/align"
)

// FromPlan renders one page's text layer plan as an hOCR ocr_page div.
// Anchored entries become ocrx_line spans at their region boxes; a whole-page
// entry becomes a single span covering its fallback box. Box coordinates are
// rounded to integers as hOCR requires.
func FromPlan(plan *align.TextLayerPlan, pageIndex, width, height int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<div class='ocr_page' id='page_%d' title='bbox 0 0 %d %d; ppageno %d'>\n",
		pageIndex+1, width, height, pageIndex)

	for i, entry := range plan.Entries {
		fmt.Fprintf(&b, "<span class='ocrx_line' id='page_%d_line_%d' title='bbox %d %d %d %d; x_placement %s'>%s</span>\n",
			pageIndex+1, i+1,
			round(entry.Box.X0), round(entry.Box.Y0), round(entry.Box.X1), round(entry.Box.Y1),
			entry.Mode,
			html.EscapeString(entry.Text))
	}

	b.WriteString("</div>")
	return b.String()
}

// WrapInDocument wraps rendered pages in a complete hOCR HTML document
func WrapInDocument(pages ...string) string {
	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
<head>
<title></title>
<meta http-equiv="Content-Type" content="text/html;charset=utf-8" />
<meta name='ocr-system' content='pagelift' />
<meta name='ocr-capabilities' content='ocr_page ocrx_line' />
</head>
<body>
%s
</body>
</html>`, strings.Join(pages, "\n"))
}

func round(v float64) int {
	return int(math.Round(v))
}
