package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ParsePathID extracts a required identifier from the request path.
// Returns the trimmed value and true on success, or "" and false after
// writing a 400 response.
func ParsePathID(w http.ResponseWriter, r *http.Request, pathParam string, logger *zap.Logger) (string, bool) {
	id := strings.TrimSpace(r.PathValue(pathParam))
	if id == "" {
		writeErrorResponse(w, logger, http.StatusBadRequest, "invalid_"+pathParam, "Missing "+pathParam)
		return "", false
	}
	return id, true
}

// ParseVersionNumber extracts a positive version number from the request path.
// Expects path parameter: n
func ParseVersionNumber(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int, bool) {
	return parsePositiveInt(w, r.PathValue("n"), "invalid_version", "Version must be a positive integer", logger)
}

func parsePositiveInt(w http.ResponseWriter, raw, errorCode, errorMessage string, logger *zap.Logger) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		writeErrorResponse(w, logger, http.StatusBadRequest, errorCode, errorMessage)
		return 0, false
	}
	return n, true
}

// queryList returns a query parameter given either repeated
// (?tag=a&tag=b) or comma separated (?tag=a,b).
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// queryBool treats "1", "true" and "yes" as true.
func queryBool(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
