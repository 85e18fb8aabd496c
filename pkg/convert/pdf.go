package convert

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFService wraps pdfcpu file operations. It holds no state; every call
// works on caller-provided paths in the scratch directory.
type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

// Merge combines the input PDFs into a single output document, in order.
func (s *PDFService) Merge(ctx context.Context, inputs []string, output string) error {
	if len(inputs) < 2 {
		return fmt.Errorf("merge requires at least 2 files, got %d", len(inputs))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := api.MergeCreateFile(inputs, output, false, nil); err != nil {
		return fmt.Errorf("pdf merge failed: %w", err)
	}
	return nil
}

// Split extracts the selected pages into the output document. An empty
// selection keeps every page, which is useful for re-writing a damaged
// cross-reference table.
func (s *PDFService) Split(ctx context.Context, input, output string, pages []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := api.TrimFile(input, output, pages, nil); err != nil {
		return fmt.Errorf("pdf split failed: %w", err)
	}
	return nil
}

// Compress rewrites the document with pdfcpu's optimizer (deduplicated
// resources, compacted streams).
func (s *PDFService) Compress(ctx context.Context, input, output string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := api.OptimizeFile(input, output, nil); err != nil {
		return fmt.Errorf("pdf compress failed: %w", err)
	}
	return nil
}

// ParsePageSelection parses a page spec like "1,3,5-10" into the
// selection tokens pdfcpu understands. Pages are 1-based.
func ParsePageSelection(spec string) ([]string, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}

	var pages []string
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if start, end, ok := strings.Cut(part, "-"); ok {
			lo, err := parsePageNumber(start)
			if err != nil {
				return nil, err
			}
			hi, err := parsePageNumber(end)
			if err != nil {
				return nil, err
			}
			if lo > hi {
				return nil, fmt.Errorf("invalid page range %q", part)
			}
			pages = append(pages, fmt.Sprintf("%d-%d", lo, hi))
			continue
		}

		n, err := parsePageNumber(part)
		if err != nil {
			return nil, err
		}
		pages = append(pages, strconv.Itoa(n))
	}

	return pages, nil
}

func parsePageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page number %q", s)
	}
	return n, nil
}
