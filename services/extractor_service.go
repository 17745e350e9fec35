package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"docchat/models"
)

func init() {
	// Load .env file from the current directory
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	if key := os.Getenv("UNIDOC_LICENSE_KEY"); key != "" {
		if err := license.SetMeteredKey(key); err != nil {
			fmt.Printf("ERROR: Failed to set Unidoc license key: %v. PDF processing will fail.\n", err)
		}
	}
}

// ExtractText turns an uploaded document into a single text blob based on its
// declared extension. Unknown extensions fail with ErrUnsupportedFormat and
// nothing is ingested.
func ExtractText(doc models.Document) (models.Extraction, error) {
	ext := strings.ToLower(filepath.Ext(doc.Filename))

	switch ext {
	case ".txt":
		if !utf8.Valid(doc.Data) {
			return models.Extraction{}, fmt.Errorf("%w: %s is not valid UTF-8", ErrExtraction, doc.Filename)
		}
		return models.Extraction{Text: string(doc.Data)}, nil
	case ".pdf":
		return extractPDF(doc.Data)
	case ".docx":
		return extractDOCX(doc.Data)
	default:
		return models.Extraction{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// extractPDF concatenates per-page text in page order, one newline between
// pages. Pages with no printable text are skipped but counted so the caller
// can report them.
func extractPDF(data []byte) (models.Extraction, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return models.Extraction{}, fmt.Errorf("%w: opening pdf: %v", ErrExtraction, err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return models.Extraction{}, fmt.Errorf("%w: reading pdf page count: %v", ErrExtraction, err)
	}

	var sb strings.Builder
	empty := 0
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return models.Extraction{}, fmt.Errorf("%w: reading pdf page %d: %v", ErrExtraction, i, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return models.Extraction{}, fmt.Errorf("%w: pdf page %d: %v", ErrExtraction, i, err)
		}

		text, err := ex.ExtractText()
		if err != nil {
			return models.Extraction{}, fmt.Errorf("%w: pdf page %d: %v", ErrExtraction, i, err)
		}
		if strings.TrimSpace(text) == "" {
			empty++
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}

	return models.Extraction{Text: sb.String(), Pages: numPages, EmptyPages: empty}, nil
}

// wordDocument mirrors the parts of word/document.xml that carry visible
// text: paragraphs, their runs, and the text elements inside each run.
type wordDocument struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []struct {
					Content string `xml:",chardata"`
				} `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

// extractDOCX concatenates paragraph text in document order. A DOCX file is a
// ZIP archive whose main part is word/document.xml.
func extractDOCX(data []byte) (models.Extraction, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return models.Extraction{}, fmt.Errorf("%w: opening docx archive: %v", ErrExtraction, err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return models.Extraction{}, fmt.Errorf("%w: opening docx document part: %v", ErrExtraction, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return models.Extraction{}, fmt.Errorf("%w: reading docx document part: %v", ErrExtraction, err)
		}

		var wordDoc wordDocument
		if err := xml.Unmarshal(content, &wordDoc); err != nil {
			return models.Extraction{}, fmt.Errorf("%w: parsing docx document part: %v", ErrExtraction, err)
		}

		var sb strings.Builder
		for i, para := range wordDoc.Body.Paragraphs {
			if i > 0 {
				sb.WriteString("\n")
			}
			for _, run := range para.Runs {
				for _, t := range run.Text {
					sb.WriteString(t.Content)
				}
			}
		}
		return models.Extraction{Text: sb.String()}, nil
	}

	return models.Extraction{}, fmt.Errorf("%w: docx archive has no word/document.xml", ErrExtraction)
}
