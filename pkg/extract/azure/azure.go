package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pagelift/pagelift/pkg/align"
	"github.com/pagelift/pagelift/pkg/extract"
)

// Extractor implements the Azure Computer Vision Read geometry extractor.
// The Read API returns per-line bounding boxes alongside its recognized
// text, which is exactly the region shape alignment needs.
type Extractor struct {
	// pollInterval spaces out result polling. Defaults to one second.
	pollInterval time.Duration
}

// readResponse is the Read API 3.2 analyze result
type readResponse struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		ReadResults []readResult `json:"readResults"`
	} `json:"analyzeResult"`
}

type readResult struct {
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Unit   string     `json:"unit"`
	Lines  []readLine `json:"lines"`
}

type readLine struct {
	// BoundingBox holds the four corners as x1,y1,...,x4,y4
	BoundingBox []float64 `json:"boundingBox"`
	Text        string    `json:"text"`
}

// New creates a new Azure Read extractor
func New() *Extractor {
	return &Extractor{pollInterval: time.Second}
}

// Name returns the extractor name
func (e *Extractor) Name() string {
	return "azure"
}

// ValidateConfig validates the Azure configuration
func (e *Extractor) ValidateConfig(config extract.Config) error {
	endpoint := os.Getenv("AZURE_OCR_ENDPOINT")
	apiKey := os.Getenv("AZURE_OCR_API_KEY")

	if endpoint == "" || apiKey == "" {
		return fmt.Errorf("AZURE_OCR_ENDPOINT and AZURE_OCR_API_KEY environment variables must be set")
	}
	return nil
}

// Extract submits the page image to the Read API and polls for line geometry.
func (e *Extractor) Extract(ctx context.Context, config extract.Config, imagePath string) (align.Page, error) {
	endpoint := os.Getenv("AZURE_OCR_ENDPOINT")
	apiKey := os.Getenv("AZURE_OCR_API_KEY")

	if endpoint == "" || apiKey == "" {
		return align.Page{}, fmt.Errorf("AZURE_OCR_ENDPOINT and AZURE_OCR_API_KEY environment variables must be set")
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return align.Page{}, err
	}

	// Read API 3.2 is more widely supported than 4.0
	readURL := fmt.Sprintf("%s/vision/v3.2/read/analyze", strings.TrimSuffix(endpoint, "/"))

	req, err := http.NewRequestWithContext(ctx, "POST", readURL, bytes.NewReader(imageData))
	if err != nil {
		return align.Page{}, err
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return align.Page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return align.Page{}, fmt.Errorf("azure OCR API error: %d - %s", resp.StatusCode, string(body))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return align.Page{}, fmt.Errorf("no operation location returned from Azure OCR")
	}

	return e.pollResult(ctx, client, operationURL, apiKey)
}

func (e *Extractor) pollResult(ctx context.Context, client *http.Client, operationURL, apiKey string) (align.Page, error) {
	for attempts := 0; attempts < 30; attempts++ {
		select {
		case <-ctx.Done():
			return align.Page{}, ctx.Err()
		case <-time.After(e.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, "GET", operationURL, nil)
		if err != nil {
			return align.Page{}, err
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return align.Page{}, err
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			continue
		}

		var result readResponse
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return align.Page{}, err
		}

		switch result.Status {
		case "succeeded":
			return pageFromResult(result)
		case "failed":
			return align.Page{}, fmt.Errorf("azure OCR analysis failed")
		}
		// Keep polling while "running" or "notStarted"
	}

	return align.Page{}, fmt.Errorf("azure OCR operation timed out")
}

// pageFromResult converts the first read result into a page of line regions.
// Coordinates stay in the API's reported unit; alignment only needs them to
// be mutually consistent.
func pageFromResult(result readResponse) (align.Page, error) {
	if len(result.AnalyzeResult.ReadResults) == 0 {
		return align.Page{}, fmt.Errorf("no read results from Azure OCR")
	}

	rr := result.AnalyzeResult.ReadResults[0]
	page := align.Page{
		Width:  int(math.Ceil(rr.Width)),
		Height: int(math.Ceil(rr.Height)),
	}

	for _, line := range rr.Lines {
		box, ok := boundsFromCorners(line.BoundingBox, rr.Width, rr.Height)
		if !ok || strings.TrimSpace(line.Text) == "" {
			continue
		}
		page.Regions = append(page.Regions, align.DetectedRegion{
			Box:     box,
			RawText: line.Text,
			Order:   len(page.Regions),
		})
	}

	return page, nil
}

// boundsFromCorners reduces the Read API's four-corner quad to its
// axis-aligned envelope, clamped to the page.
func boundsFromCorners(corners []float64, width, height float64) (align.Rect, bool) {
	if len(corners) != 8 {
		return align.Rect{}, false
	}

	r := align.Rect{X0: corners[0], Y0: corners[1], X1: corners[0], Y1: corners[1]}
	for i := 2; i < 8; i += 2 {
		r.X0 = min(r.X0, corners[i])
		r.Y0 = min(r.Y0, corners[i+1])
		r.X1 = max(r.X1, corners[i])
		r.Y1 = max(r.Y1, corners[i+1])
	}

	r.X0 = max(r.X0, 0)
	r.Y0 = max(r.Y0, 0)
	r.X1 = min(r.X1, width)
	r.Y1 = min(r.Y1, height)
	if r.X0 >= r.X1 || r.Y0 >= r.Y1 {
		return align.Rect{}, false
	}
	return r, true
}
