package utils

import (
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AllowedAttachmentTypes defines the allowed quote attachment extensions
var AllowedAttachmentTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".hwp":  true,
	".txt":  true,
}

// ValidateAttachment checks size and extension of an uploaded quote attachment
func ValidateAttachment(file *multipart.FileHeader) error {
	if file.Size > MaxAttachmentSize {
		return fmt.Errorf("%s exceeds the 10MB limit", file.Filename)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !AllowedAttachmentTypes[ext] {
		return fmt.Errorf("%s has an unsupported file type", file.Filename)
	}
	return nil
}

// AttachmentPath returns the storage path quotes/<quoteID>/<uuid><ext>
func AttachmentPath(quoteID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return "quotes/" + quoteID + "/" + uuid.New().String() + ext
}

// AttachmentContentType prefers the client's header, then the extension
func AttachmentContentType(file *multipart.FileHeader) string {
	if ct := file.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(file.Filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
