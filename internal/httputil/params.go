package httputil

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg} with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// ParamError reports a malformed query parameter.
type ParamError struct {
	Name  string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Name, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// QueryTime parses an RFC 3339 timestamp, returning def when absent.
func QueryTime(q url.Values, name string, def time.Time) (time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, &ParamError{Name: name, Value: v, Err: err}
	}
	return t.UTC(), nil
}

// QueryFloat parses a finite float in [lo, hi], returning def when absent.
func QueryFloat(q url.Values, name string, def, lo, hi float64) (float64, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &ParamError{Name: name, Value: v, Err: err}
	}
	if math.IsNaN(f) || f < lo || f > hi {
		return 0, &ParamError{Name: name, Value: v, Err: fmt.Errorf("must be within [%g, %g]", lo, hi)}
	}
	return f, nil
}

// QueryInt parses an integer in [lo, hi], returning def when absent.
func QueryInt(q url.Values, name string, def, lo, hi int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ParamError{Name: name, Value: v, Err: err}
	}
	if n < lo || n > hi {
		return 0, &ParamError{Name: name, Value: v, Err: fmt.Errorf("must be within [%d, %d]", lo, hi)}
	}
	return n, nil
}

// QueryBool parses a boolean, returning def when absent.
func QueryBool(q url.Values, name string, def bool) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &ParamError{Name: name, Value: v, Err: err}
	}
	return b, nil
}
