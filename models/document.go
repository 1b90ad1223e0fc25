package models

import (
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is a raw record as returned by the record store.
type Document map[string]interface{}

// Number returns the numeric value of field. Missing, non-numeric and
// non-finite values read as 0.
func (d Document) Number(field string) float64 {
	v, ok := d[field]
	if !ok || v == nil {
		return 0
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case primitive.Decimal128:
		parsed, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// String returns the string form of field, empty when missing.
func (d Document) String(field string) string {
	switch v := d[field].(type) {
	case string:
		return v
	case nil:
		return ""
	case primitive.ObjectID:
		return v.Hex()
	default:
		return toString(v)
	}
}

// Time returns the timestamp stored in field. Zero when missing or unparseable.
func (d Document) Time(field string) time.Time {
	switch v := d[field].(type) {
	case time.Time:
		return v
	case primitive.DateTime:
		return v.Time()
	case primitive.Timestamp:
		return time.Unix(int64(v.T), 0)
	case int64:
		return time.UnixMilli(v)
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func toString(v interface{}) string {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case int32:
		return strconv.FormatInt(int64(n), 10)
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	}
	return ""
}
