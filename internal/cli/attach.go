// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// attach.go - Reading files from disk into message attachments.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/util"
)

const (
	// MaxImageSize keeps base64-encoded images under provider request limits.
	MaxImageSize = 3 * 1024 * 1024

	// MaxDocumentSize bounds PDFs and text documents.
	MaxDocumentSize = 5 * 1024 * 1024
)

var allowedImages = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// LoadAttachment reads path and builds an attachment from its sniffed type.
// Images are carried as data URLs, text documents carry their contents as
// extracted text and PDFs are attached as metadata only.
func LoadAttachment(path string) (model.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Attachment{}, fmt.Errorf("file not found: %s", path)
		}
		return model.Attachment{}, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return model.Attachment{}, &ValidationError{Field: "file", Value: path, Reason: "is a directory"}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("failed to read file: %w", err)
	}
	return NewAttachment(filepath.Base(path), data)
}

// NewAttachment builds an attachment named name from its raw bytes.
func NewAttachment(name string, data []byte) (model.Attachment, error) {
	if len(data) == 0 {
		return model.Attachment{}, &ValidationError{Field: "file", Value: name, Reason: "file is empty"}
	}

	mime := mimetype.Detect(data)
	mimeType := baseType(mime.String())
	size := int64(len(data))

	att := model.Attachment{
		Name: name,
		Type: mimeType,
		Size: size,
	}

	switch {
	case allowedImages[mimeType]:
		if size > MaxImageSize {
			return model.Attachment{}, tooLarge(name, size, MaxImageSize, "images")
		}
		att.Data = util.DataURL(mimeType, data)

	case mime.Is("application/pdf"):
		if size > MaxDocumentSize {
			return model.Attachment{}, tooLarge(name, size, MaxDocumentSize, "documents")
		}
		// No text extractor
		att.Type = "application/pdf"

	case isText(mime) && utf8.Valid(data):
		if size > MaxDocumentSize {
			return model.Attachment{}, tooLarge(name, size, MaxDocumentSize, "documents")
		}
		att.ExtractedText = string(data)

	default:
		return model.Attachment{}, &ValidationError{
			Field:   "file",
			Value:   name,
			Reason:  "unsupported type " + mimeType,
			Example: "images (JPEG, PNG, GIF, WebP), PDF and text files are supported",
		}
	}
	return att, nil
}

// isText reports whether m is text/plain or derives from it (JSON, CSV,
// source code and similar).
func isText(m *mimetype.MIME) bool {
	for p := m; p != nil; p = p.Parent() {
		if p.Is("text/plain") {
			return true
		}
	}
	return false
}

func baseType(mimeType string) string {
	t, _, _ := strings.Cut(mimeType, ";")
	return strings.TrimSpace(t)
}

func tooLarge(name string, size, limit int64, kind string) error {
	return &ValidationError{
		Field:  "file",
		Value:  name,
		Reason: fmt.Sprintf("%s is larger than the %s limit for %s", util.FormatFileSize(size), util.FormatFileSize(limit), kind),
	}
}

// describeAttachment is the one-line listing of an attachment.
func describeAttachment(a model.Attachment) string {
	kind := "file"
	switch {
	case a.IsImage():
		kind = "image"
	case a.IsPDF():
		kind = "pdf"
	case a.ExtractedText != "":
		kind = "text"
	}
	return fmt.Sprintf("%s (%s, %s)", a.Name, kind, util.FormatFileSize(a.Size))
}
