// Package pdfcheck validates a file before it is uploaded, so that obviously
// unusable input is rejected locally instead of by the backend.
package pdfcheck

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ZaguanLabs/pdftl"
)

// MaxSize is the largest file Inspect accepts.
const MaxSize = 100 << 20

// headerWindow is how far into the file the %PDF- marker may appear.
const headerWindow = 1024

var pdfMagic = []byte("%PDF-")

// Info describes a file that passed inspection.
type Info struct {
	Path  string
	Name  string
	Size  int64
	Pages int
}

var disableConfigDir sync.Once

// Inspect checks that path names a readable, well-formed PDF and returns its
// size and page count. Every failure is a *pdftl.UploadError.
func Inspect(path string) (*Info, error) {
	name := filepath.Base(path)
	fail := func(msg string, cause error) (*Info, error) {
		return nil, &pdftl.UploadError{Filename: name, Message: msg, Cause: cause}
	}

	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return fail("invalid file type: only PDF files are accepted", nil)
	}

	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fail("file not found", err)
	}
	if err != nil {
		return fail("cannot access file", err)
	}
	if fi.IsDir() {
		return fail("path is a directory", nil)
	}
	if fi.Size() == 0 {
		return fail("file is empty", nil)
	}
	if fi.Size() > MaxSize {
		return fail("file is too large", nil)
	}

	if err := checkHeader(path); err != nil {
		return fail("not a PDF file", err)
	}

	// pdfcpu would otherwise create its config directory under the user's home.
	disableConfigDir.Do(func() { model.ConfigPath = "disable" })

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return fail("PDF is damaged or unsupported", err)
	}

	pages, err := pageCount(path)
	if err != nil {
		return fail("cannot read page count", err)
	}
	if pages < 1 {
		return fail("PDF has no pages", nil)
	}

	return &Info{
		Path:  path,
		Name:  name,
		Size:  fi.Size(),
		Pages: pages,
	}, nil
}

func checkHeader(path string) error {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, headerWindow)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	if !bytes.Contains(head[:n], pdfMagic) {
		return errors.New("missing %PDF- header")
	}
	return nil
}

// pageCount reads the page count with ledongthuc/pdf, falling back to pdfcpu
// for files the former cannot parse.
func pageCount(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err == nil {
		defer f.Close()
		return r.NumPage(), nil
	}

	n, cpuErr := api.PageCountFile(path)
	if cpuErr != nil {
		return 0, errors.Join(err, cpuErr)
	}
	return n, nil
}
