// Package upload prepares user files before they are posted to the
// equipment API, which only accepts plain CSV.
package upload

import (
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/chemvis/dashboard/internal/models"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrTooLarge        = errors.New("file exceeds upload limit")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// DefaultAllowedTypes lists the extensions accepted when none are configured.
const DefaultAllowedTypes = ".csv,.gz,.xlsx"

// Preparer validates uploads and converts them to CSV.
type Preparer struct {
	allowed map[string]bool
	maxSize int64
}

// NewPreparer creates a preparer for a comma separated extension list.
// A maxSize of zero disables the size check.
func NewPreparer(allowedTypes string, maxSize int64) *Preparer {
	if strings.TrimSpace(allowedTypes) == "" {
		allowedTypes = DefaultAllowedTypes
	}
	allowed := make(map[string]bool)
	for _, ext := range strings.Split(allowedTypes, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}
	return &Preparer{allowed: allowed, maxSize: maxSize}
}

// Prepare reads the file and returns it in the form the backend accepts.
// Gzip files are inflated and xlsx workbooks converted (first sheet) to CSV.
func (p *Preparer) Prepare(name string, r io.Reader) (*models.UploadFile, error) {
	name = filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(name))
	if !p.allowed[ext] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	data, err := p.readLimited(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	if ext == ".gz" || isGzip(data) {
		data, err = p.inflate(data)
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(strings.ToLower(name), ".gz") {
			name = name[:len(name)-len(".gz")]
		}
		ext = strings.ToLower(filepath.Ext(name))
	}

	switch ext {
	case ".xlsx":
		data, err = workbookToCSV(data)
		if err != nil {
			return nil, err
		}
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".csv"
	case ".csv":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	return &models.UploadFile{Name: name, Data: data}, nil
}

func (p *Preparer) readLimited(r io.Reader) ([]byte, error) {
	if p.maxSize <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, p.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > p.maxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

// isGzip checks the gzip magic bytes.
func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

func (p *Preparer) inflate(data []byte) ([]byte, error) {
	if !isGzip(data) {
		return nil, fmt.Errorf("not a gzip file")
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening gzip: %w", err)
	}
	defer zr.Close()

	out, err := p.readLimited(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyFile
	}
	return out, nil
}

// workbookToCSV writes the first sheet of an xlsx workbook as CSV.
func workbookToCSV(data []byte) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	width := len(rows[0])
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		// GetRows trims trailing empty cells; pad to the header width.
		for len(row) < width {
			row = append(row, "")
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
