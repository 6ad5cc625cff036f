package storage

import (
	"errors"
	"io"
	"path"
	"strings"
)

var ErrNotFound = errors.New("blob not found")

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	SignedURL(key string) (string, error) // fs returns "file://..." for dev
}

// CleanKey normalizes key to a relative slash path that cannot climb out of
// the store root. It returns "" for keys that name the root itself.
func CleanKey(key string) string {
	k := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(key, "\\", "/")), "/")
	if k == "." {
		return ""
	}
	return k
}

// CourseMediaKey is where uploaded media for a course lives.
func CourseMediaKey(courseID, filename string) string {
	return CleanKey("courses/" + CleanKey(courseID) + "/" + path.Base(CleanKey(filename)))
}
