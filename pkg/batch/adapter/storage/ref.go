package storage

import (
	"strings"
)

// Reference schemes.
const (
	SchemeFile = "file"
	SchemeGCS  = "gs"
)

// Ref is a parsed storage reference.
type Ref struct {
	Scheme string
	Bucket string
	Object string
}

// ParseRef splits "gs://bucket/path/to/object" into its parts. Anything without a
// scheme, or with "file://", is a local path with an empty bucket.
func ParseRef(raw string) Ref {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Ref{Scheme: SchemeFile, Object: raw}
	}
	if scheme == SchemeFile {
		return Ref{Scheme: SchemeFile, Object: rest}
	}
	bucket, object, _ := strings.Cut(rest, "/")
	return Ref{Scheme: scheme, Bucket: bucket, Object: object}
}

// String formats r back into a reference.
func (r Ref) String() string {
	if r.Scheme == SchemeFile {
		return r.Object
	}
	return r.Scheme + "://" + r.Bucket + "/" + r.Object
}
