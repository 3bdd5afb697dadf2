package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
)

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(key))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", domain.ErrInvalidInput, key)
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body", domain.ErrInvalidInput)
	}
	return nil
}

func parseIntParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func parseBoolParam(r *http.Request, key string) bool {
	val := r.URL.Query().Get(key)
	return val == "true" || val == "1"
}

// parseListParam collects a repeated query parameter, also splitting
// comma-separated values.
func parseListParam(r *http.Request, key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func parseUUIDParam(r *http.Request, key string) (*uuid.UUID, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", domain.ErrInvalidInput, key)
	}
	return &id, nil
}

func parseDayParam(r *http.Request, key string) (*domain.Day, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}
	day, err := domain.ParseDay(val)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", domain.ErrInvalidInput, key)
	}
	return &day, nil
}
