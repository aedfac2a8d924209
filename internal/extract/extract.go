// Package extract turns uploaded documents into the plain text the analyzer
// works on. DOCX and PDF are supported; paragraphs are joined with "\n".
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

const (
	FormatDOCX = ".docx"
	FormatPDF  = ".pdf"
)

var signatures = map[string][]byte{
	FormatDOCX: []byte("PK\x03\x04"),
	FormatPDF:  []byte("%PDF"),
}

// Supported reports whether name has an extension this package can read.
func Supported(name string) bool {
	_, ok := signatures[strings.ToLower(filepath.Ext(name))]
	return ok
}

func FromFile(path string) (string, error) {
	if !Supported(path) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return FromBytes(filepath.Base(path), raw)
}

// FromBytes extracts text from raw, choosing the reader from name's
// extension. The container signature is checked before any parsing.
func FromBytes(name string, raw []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	sig, ok := signatures[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if !bytes.HasPrefix(raw, sig) {
		return "", fmt.Errorf("%w: %s is not a %s container", ErrUnsupportedFormat, name, ext)
	}

	var (
		paragraphs []string
		err        error
	)
	switch ext {
	case FormatDOCX:
		paragraphs, err = docxParagraphs(raw)
	case FormatPDF:
		paragraphs, err = pdfParagraphs(raw)
	}
	if err != nil {
		return "", err
	}

	kept := paragraphs[:0]
	for _, p := range paragraphs {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, norm.NFC.String(p))
		}
	}
	return strings.Join(kept, "\n"), nil
}

func docxParagraphs(raw []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: open docx zip: %v", ErrUnsupportedFormat, err)
	}

	var xmlData []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open document.xml: %w", err)
		}
		xmlData, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read document.xml: %w", err)
		}
		break
	}
	if xmlData == nil {
		return nil, fmt.Errorf("%w: word/document.xml not found", ErrUnsupportedFormat)
	}

	decoder := xml.NewDecoder(bytes.NewReader(xmlData))
	var (
		paragraphs []string
		current    strings.Builder
		inPara     bool
		inProps    bool
		inText     bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				current.Reset()
			case "pPr":
				inProps = true
			case "t":
				inText = true
			case "tab":
				if inPara && !inProps {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if inPara {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				paragraphs = append(paragraphs, current.String())
				inPara = false
			case "pPr":
				inProps = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}

// pdfParagraphs returns one entry per page.
func pdfParagraphs(raw []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", ErrUnsupportedFormat, err)
	}

	return collectPages(r.NumPage(), func(i int) (string, error) {
		p := r.Page(i)
		if p.V.IsNull() {
			return "", nil
		}
		return p.GetPlainText(nil)
	})
}

// collectPages reads pages 1..total. A page that fails to extract fails the
// whole document rather than silently dropping its text.
func collectPages(total int, pageText func(i int) (string, error)) ([]string, error) {
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		content, err := pageText(i)
		if err != nil {
			return nil, fmt.Errorf("extract text from pdf page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(content))
	}
	return pages, nil
}
