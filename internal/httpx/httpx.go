package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

func DecodeJSON(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// DecodeOptionalJSON behaves like DecodeJSON but accepts an empty body.
func DecodeOptionalJSON(body io.Reader, v interface{}) error {
	err := DecodeJSON(body, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func ValidationDetails(errs validator.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	details := make(map[string]string, len(errs))
	for _, err := range errs {
		details[err.Field()] = err.Tag()
	}
	return details
}

// QueryInt returns fallback when key is absent.
func QueryInt(values url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

// QueryFloat returns nil when key is absent.
func QueryFloat(values url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	return &v, nil
}

// ParsePage reads 1-based page and limit params. limit is capped at maxLimit.
func ParsePage(values url.Values, defaultLimit, maxLimit int64) (page, limit, offset int64, err error) {
	p, err := QueryInt(values, "page", 1)
	if err != nil || p <= 0 {
		return 0, 0, 0, errors.New("invalid page")
	}
	l, err := QueryInt(values, "limit", int(defaultLimit))
	if err != nil || l <= 0 {
		return 0, 0, 0, errors.New("invalid limit")
	}
	page, limit = int64(p), int64(l)
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, (page - 1) * limit, nil
}
