package bookmeta

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	pdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/klausbr/readium-api/internal/metadata"
)

// extractPDF derives page count, author and a cover image from a PDF.
// Every field degrades independently: a PDF with an unreadable info
// dictionary still gets its page count, and a failed cover render never
// fails the extraction.
func (e *DocumentExtractor) extractPDF(ctx context.Context, localPath string) (*metadata.Info, error) {
	info := &metadata.Info{}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open staged PDF: %w", err)
	}
	pageCount, err := api.PageCount(f, nil)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF page count: %w", err)
	}
	info.Pages = pageCount

	if author, err := pdfAuthor(localPath); err != nil {
		e.logger.Debug("could not read PDF author", slog.String("error", err.Error()))
	} else {
		info.Author = author
	}

	coverPath, err := e.renderCover(ctx, localPath)
	if err != nil {
		e.logger.Warn("could not render PDF cover", slog.String("error", err.Error()))
		return info, nil
	}
	info.CoverPath = coverPath
	info.HasCover = true

	return info, nil
}

// pdfAuthor reads the Author entry of the PDF info dictionary. The parser
// panics on some malformed documents, so the lookup is fenced.
func pdfAuthor(localPath string) (author string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF info dictionary: %v", r)
		}
	}()

	f, reader, err := pdf.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() { _ = f.Close() }()

	value := reader.Trailer().Key("Info").Key("Author")
	if value.Kind() != pdf.String {
		return "", nil
	}
	return value.RawString(), nil
}

// renderCover rasterizes the first page with pdftoppm (poppler-utils) and
// stores the result as a derived artifact. Rendering the page beats
// extracting embedded image objects, whose internal numbering may not
// match page order.
func (e *DocumentExtractor) renderCover(ctx context.Context, localPath string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "readium-cover-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	outputPrefix := filepath.Join(tmpDir, "cover")

	// -png: output PNG format
	// -f/-l 1: render only the first page
	// -r 150: resolution in DPI, enough for a thumbnail-quality cover
	// -singlefile: no page number suffix on the output name
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", "1",
		"-l", "1",
		"-r", "150",
		"-singlefile",
		localPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return "", fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}

	storedPath, err := e.blobs.SaveDerived(ctx, data, ".png")
	if err != nil {
		return "", fmt.Errorf("failed to store cover: %w", err)
	}
	return storedPath, nil
}
