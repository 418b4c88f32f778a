package rest

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Reserved query parameters. Every other parameter is a column filter.
const (
	ParamOrder     = "_order"
	ParamDirection = "_dir"
	ParamLimit     = "_limit"
	ParamOffset    = "_offset"
	ParamColumns   = "_columns"
	ParamForce     = "_force"
)

// RequestIDHeader carries the per-request id the client generates.
const RequestIDHeader = "X-Request-Id"

// MetaPrefix is the path prefix of the schema routes.
const MetaPrefix = "/_meta"

// RowsResponse is the body of a collection read.
type RowsResponse struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// AffectedResponse is the body of a collection update or delete.
type AffectedResponse struct {
	RowsAffected int64 `json:"rows_affected"`
}

// PrimaryKeyResponse is the body of the primary key route.
type PrimaryKeyResponse struct {
	PrimaryKey string `json:"primary_key"`
}

// ErrorResponse is the body of any failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

var operatorSuffix = map[string]string{
	"=":  "",
	">":  "__gt",
	"<":  "__lt",
	">=": "__gte",
	"<=": "__lte",
}

// FilterKey returns the query parameter for a column and operator, such as
// "year__gte" for year >= v. The second result is false for operators the
// protocol cannot carry.
func FilterKey(column, operator string) (string, bool) {
	suffix, ok := operatorSuffix[operator]
	if !ok {
		return "", false
	}
	return column + suffix, true
}

// ParseFilterKey splits a query parameter into column and operator.
func ParseFilterKey(key string) (column, operator string) {
	for op, suffix := range operatorSuffix {
		if suffix != "" && strings.HasSuffix(key, suffix) {
			return strings.TrimSuffix(key, suffix), op
		}
	}
	return key, "="
}

// ParseValue interprets a path or query string value: integers become
// int64, everything else stays a string.
func ParseValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// ParseValueAs interprets a path or query string value for a column of the
// declared sqlType. Only integer, floating point and boolean columns get a
// converted value; a value that does not parse stays a string. An empty type
// falls back to ParseValue.
func ParseValueAs(s, sqlType string) any {
	t := strings.ToUpper(sqlType)
	switch {
	case t == "":
		return ParseValue(s)
	case isIntegerType(t):
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"),
		strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case strings.Contains(t, "BOOL"):
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return s
}

func isIntegerType(t string) bool {
	if strings.Contains(t, "SERIAL") {
		return true
	}
	return strings.Contains(t, "INT") && !strings.Contains(t, "INTERVAL") && !strings.Contains(t, "POINT")
}

// FormatValue renders a value for a path or query string.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.Trim(string(b), `"`)
}

// Normalize replaces json.Number values decoded with UseNumber by int64 or
// float64.
func Normalize(m map[string]any) map[string]any {
	for k, v := range m {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				m[k] = i
			} else if f, err := n.Float64(); err == nil {
				m[k] = f
			}
		}
	}
	return m
}
