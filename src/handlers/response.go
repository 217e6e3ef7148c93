package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/salesetl/src/logger"
	"github.com/username/salesetl/src/utils"
)

// writeJSONWithETag answers 304 when the client already holds this exact payload.
func writeJSONWithETag(w http.ResponseWriter, r *http.Request, data any) {
	log := logger.FromContext(r.Context())

	currentETag, etagErr := utils.GenerateETag(data)
	if etagErr != nil {
		log.Error("Failed to generate ETag", "path", r.URL.Path, "error", etagErr)
	}

	w.Header().Set("Cache-Control", "no-cache")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, cETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				log.Debug("ETag match", "path", r.URL.Path, "etag", currentETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("Error generating JSON response", "path", r.URL.Path, "error", err)
	}
}
