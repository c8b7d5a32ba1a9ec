// Package upload implements the convert-and-store pipeline behind
// POST /convert-heic.
package upload

import (
	"strings"
)

// IncomingFile is one uploaded file part. Its bytes live in the request's
// scratch area at Path.
type IncomingFile struct {
	Name      string
	MimeType  string
	SizeBytes int64
	FieldKey  string
	Path      string
}

// Destination is the parsed form of a field key "<prefix>/<bucket>".
type Destination struct {
	Prefix string
	Bucket string
}

// Payload is what gets written to storage for one file.
type Payload struct {
	Data        []byte
	ContentType string
	Converted   bool
}

// StoredObject identifies an object written during a request.
type StoredObject struct {
	Bucket string
	Key    string
	URL    string
}

// ParseFieldKey splits a field key into its prefix and bucket. Both parts
// must be non-empty and the bucket may not contain a further slash.
func ParseFieldKey(key string) (Destination, error) {
	prefix, bucket, ok := strings.Cut(key, "/")
	if !ok || prefix == "" || bucket == "" || strings.Contains(bucket, "/") {
		return Destination{}, ErrMissingIdentifier
	}
	return Destination{Prefix: prefix, Bucket: bucket}, nil
}
