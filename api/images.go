package api

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tappio/backend/errors"
	"github.com/tappio/backend/objectstorage"
	"go.vocdoni.io/dvote/log"
)

// isObjectNameRgx matches object names, a hex object ID with an image
// extension.
var isObjectNameRgx = regexp.MustCompile(`^([a-zA-Z0-9]+)\.(jpg|jpeg|png)$`)

// uploadImageHandler uploads images through a multipart form. It expects the
// request to contain a "file" field with one or more files and returns the
// URLs of the stored objects.
func (a *API) uploadImageHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	// 32 MB is the default used by FormFile() function
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		errors.ErrStorageInvalidObject.Withf("could not parse form: %v", err).Write(w)
		return
	}
	var returnURLs []string
	for _, fileHeaders := range r.MultipartForm.File {
		for _, fileHeader := range fileHeaders {
			file, err := fileHeader.Open()
			if err != nil {
				errors.ErrStorageInvalidObject.Withf("cannot open file %s: %v", fileHeader.Filename, err).Write(w)
				return
			}
			objectName, err := a.objectStorage.Put(file, fileHeader.Size, user.Email)
			if closeErr := file.Close(); closeErr != nil {
				log.Warnw("cannot close uploaded file", "file", fileHeader.Filename, "error", closeErr)
			}
			if err != nil {
				if err == objectstorage.ErrFileTypeNotSupported {
					errors.ErrStorageInvalidObject.Withf("%s: %v", fileHeader.Filename, err).Write(w)
					return
				}
				errors.ErrInternalStorageError.Withf("%s: %v", fileHeader.Filename, err).Write(w)
				return
			}
			returnURLs = append(returnURLs, objectURL(a.serverURL, objectName))
		}
	}
	if len(returnURLs) == 0 {
		errors.ErrStorageInvalidObject.With("no files found").Write(w)
		return
	}
	httpWriteJSON(w, ImageUploadResponse{URLs: returnURLs})
}

// downloadImageHandler retrieves an object from storage and serves it inline.
func (a *API) downloadImageHandler(w http.ResponseWriter, r *http.Request) {
	objectName := chi.URLParam(r, "objectName")
	if objectName == "" {
		errors.ErrMalformedURLParam.With("objectName is required").Write(w)
		return
	}
	objectID, ok := objectIDFromName(objectName)
	if !ok {
		errors.ErrStorageInvalidObject.With("invalid objectName").Write(w)
		return
	}
	object, err := a.objectStorage.Get(objectID)
	if err != nil {
		if err == objectstorage.ErrObjectNotFound {
			errors.ErrStorageInvalidObject.With("object not found").Write(w)
			return
		}
		errors.ErrInternalStorageError.Withf("cannot get object: %v", err).Write(w)
		return
	}
	w.Header().Set("Content-Type", object.ContentType)
	w.Header().Set("Content-Disposition", "inline")
	if _, err := w.Write(object.Data); err != nil {
		log.Warnw("cannot write object to response", "error", err)
	}
}

// objectURL returns the download URL for the object with the given name.
func objectURL(baseURL, objectName string) string {
	return fmt.Sprintf("%s/storage/%s", strings.TrimRight(baseURL, "/"), objectName)
}

// objectIDFromName extracts the object ID from an object name. It returns an
// empty string and false if the name is not a valid object name.
func objectIDFromName(name string) (string, bool) {
	match := isObjectNameRgx.FindStringSubmatch(name)
	if len(match) != 3 {
		return "", false
	}
	return match[1], true
}
