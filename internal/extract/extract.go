// Package extract turns an uploaded file into the plain text quizzes are
// generated from. PDFs go through a text extractor; anything else is treated
// as UTF-8 text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// ErrNoText indicates the file produced no usable text.
var ErrNoText = errors.New("file contains no extractable text")

// Text extracts plain text from an uploaded file. Failure aborts quiz
// creation, so errors here are user-facing.
func Text(file []byte) (string, error) {
	if len(file) == 0 {
		return "", ErrNoText
	}
	if bytes.HasPrefix(file, pdfMagic) {
		return pdfText(file)
	}
	if !utf8.Valid(file) {
		return "", errors.New("file is neither a PDF nor readable text")
	}
	text := strings.TrimSpace(string(file))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func pdfText(file []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(file), int64(len(file)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
