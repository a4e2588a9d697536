package ocrengine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// runOcrmypdf invokes the external ocrmypdf binary on the staged PDF and
// returns the path of the processed local file. Any failure mode (missing
// binary, timeout, non-zero exit, no output file) is returned as an error
// for the caller to treat as a soft failure.
func (e *DocumentEngine) runOcrmypdf(ctx context.Context, localPath string) (string, error) {
	command := e.cfg.OcrmypdfCommand
	if command == "" {
		command = "ocrmypdf"
	}
	languages := e.cfg.OcrmypdfLanguages
	if languages == "" {
		languages = "eng"
	}

	out, err := os.CreateTemp("", "readium-ocr-out-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	outPath := out.Name()
	_ = out.Close()
	// ocrmypdf wants to create the output itself.
	_ = os.Remove(outPath)

	runCtx, cancel := context.WithTimeout(ctx, e.ocrmypdfTimeout())
	defer cancel()

	// --skip-text leaves pages that already carry text untouched.
	cmd := exec.CommandContext(runCtx, command,
		"--skip-text",
		"--rotate-pages",
		"--deskew",
		"--optimize", "1",
		"-l", languages,
		localPath,
		outPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(outPath)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("ocrmypdf timed out after %s", e.ocrmypdfTimeout())
		}
		return "", fmt.Errorf("ocrmypdf failed: %w (output: %s)", err, string(output))
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("ocrmypdf did not create expected output: %w", err)
	}
	return outPath, nil
}
