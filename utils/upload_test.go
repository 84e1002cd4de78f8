package utils

import (
	"mime/multipart"
	"net/textproto"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAttachment(t *testing.T) {
	assert.NoError(t, ValidateAttachment(&multipart.FileHeader{Filename: "passport.PDF", Size: 1024}))
	assert.NoError(t, ValidateAttachment(&multipart.FileHeader{Filename: "itinerary.hwp", Size: MaxAttachmentSize}))
	assert.Error(t, ValidateAttachment(&multipart.FileHeader{Filename: "run.exe", Size: 10}))
	assert.Error(t, ValidateAttachment(&multipart.FileHeader{Filename: "huge.jpg", Size: MaxAttachmentSize + 1}))
}

func TestAttachmentPath(t *testing.T) {
	path := AttachmentPath("quote-1", "Photo.JPG")
	assert.Regexp(t, regexp.MustCompile(`^quotes/quote-1/[0-9a-f-]{36}\.jpg$`), path)
	assert.NotEqual(t, path, AttachmentPath("quote-1", "Photo.JPG"))
}

func TestAttachmentContentType(t *testing.T) {
	withHeader := &multipart.FileHeader{Filename: "a.bin", Header: textproto.MIMEHeader{"Content-Type": {"image/png"}}}
	assert.Equal(t, "image/png", AttachmentContentType(withHeader))

	assert.Equal(t, "application/pdf", AttachmentContentType(&multipart.FileHeader{Filename: "a.pdf", Header: textproto.MIMEHeader{}}))
	assert.Equal(t, "application/octet-stream", AttachmentContentType(&multipart.FileHeader{Filename: "a.tgdata", Header: textproto.MIMEHeader{}}))
}
