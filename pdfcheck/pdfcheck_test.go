package pdfcheck

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaguanLabs/pdftl"
)

// minimalPDF builds a structurally valid PDF with blank pages and a correct
// cross-reference table.
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] /Resources << >> >>", kids, pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func requireUploadError(t *testing.T, err error, msg string) {
	t.Helper()
	var uploadErr *pdftl.UploadError
	require.True(t, errors.As(err, &uploadErr), "expected *pdftl.UploadError, got %v", err)
	assert.Equal(t, msg, uploadErr.Message)
}

func TestInspect_ValidPDF(t *testing.T) {
	path := writeFile(t, "paper.pdf", minimalPDF(3))

	info, err := Inspect(path)
	require.NoError(t, err)

	assert.Equal(t, "paper.pdf", info.Name)
	assert.Equal(t, path, info.Path)
	assert.Equal(t, 3, info.Pages)
	assert.Positive(t, info.Size)
}

func TestInspect_UppercaseExtension(t *testing.T) {
	path := writeFile(t, "SCAN.PDF", minimalPDF(1))

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Pages)
}

func TestInspect_Rejects(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.pdf"), 0o700))

	tests := []struct {
		name string
		path string
		msg  string
	}{
		{"wrong extension", writeFile(t, "notes.txt", []byte("%PDF-1.4")), "invalid file type: only PDF files are accepted"},
		{"missing", filepath.Join(dir, "missing.pdf"), "file not found"},
		{"directory", filepath.Join(dir, "folder.pdf"), "path is a directory"},
		{"empty", writeFile(t, "empty.pdf", nil), "file is empty"},
		{"no header", writeFile(t, "fake.pdf", []byte("PK\x03\x04 this is a zip")), "not a PDF file"},
		{"truncated", writeFile(t, "broken.pdf", []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog")), "PDF is damaged or unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Inspect(tt.path)
			assert.Nil(t, info)
			requireUploadError(t, err, tt.msg)
		})
	}
}

func TestInspect_ErrorNamesFile(t *testing.T) {
	_, err := Inspect(writeFile(t, "report.docx", []byte("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report.docx")
}

func TestCheckHeader_OffsetMarker(t *testing.T) {
	// Some producers prepend junk before the marker.
	data := append(bytes.Repeat([]byte{' '}, 100), minimalPDF(1)...)
	path := writeFile(t, "offset.pdf", data)

	assert.NoError(t, checkHeader(path))
}
