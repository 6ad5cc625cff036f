package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-french/internal/storage"
)

// maxMediaBytes caps a single course media upload.
const maxMediaBytes = 32 << 20

// GET /media/*  -> the blob at whatever follows /media/
func MediaHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := storage.CleanKey(chi.URLParam(r, "*"))
		rc, err := bs.Get(key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Media not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "Failed to read media")
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	}
}

// POST /admin/media/courses/{courseID}  (multipart "file")
func UploadCourseMediaHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxMediaBytes)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "file required")
			return
		}
		defer f.Close()

		key := storage.CourseMediaKey(chi.URLParam(r, "courseID"), hdr.Filename)
		if path.Base(key) == "." || path.Dir(key) == "courses" {
			respondError(w, http.StatusBadRequest, "invalid file name")
			return
		}
		key, err = bs.Put(key, f)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "store error: "+err.Error())
			return
		}
		respondJSON(w, http.StatusCreated, map[string]string{"key": key, "url": "/media/" + key})
	}
}
