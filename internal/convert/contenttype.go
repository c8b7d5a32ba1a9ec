package convert

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const octetStream = "application/octet-stream"

// DetectContentType returns the content type to store a passthrough file
// with. The client-declared type wins when it is present and specific;
// otherwise the bytes are sniffed.
func DetectContentType(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "" && !strings.EqualFold(mt, octetStream) {
		return declared
	}
	return mimetype.Detect(data).String()
}
