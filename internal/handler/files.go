package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"plateserver/internal/apperror"
	"plateserver/internal/logger"
	"plateserver/internal/service/storage"
)

var notFound = apperror.NotFound("Not found")

// ArtifactHandler serves GET /artifacts/{request}/{name} from the artifact
// directory.
func ArtifactHandler(store *storage.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		request, name := r.PathValue("request"), r.PathValue("name")
		if !safeSegment(request) || !safeSegment(name) {
			writeError(w, r, logger, notFound)
			return
		}
		serveImage(w, r, logger, store.ArtifactPath(request, name))
	}
}

// ReceivedHandler serves GET /received/{name} from the upload directory.
func ReceivedHandler(store *storage.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if !safeSegment(name) {
			writeError(w, r, logger, notFound)
			return
		}
		serveImage(w, r, logger, store.ReceivedPath(name))
	}
}

// serveImage sends a regular file. Directories and missing files are 404.
func serveImage(w http.ResponseWriter, r *http.Request, logger *logger.Logger, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		writeError(w, r, logger, notFound)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}

func safeSegment(s string) bool {
	return s != "" && !strings.HasPrefix(s, ".") && !strings.ContainsAny(s, `/\`) && filepath.Base(s) == s
}
