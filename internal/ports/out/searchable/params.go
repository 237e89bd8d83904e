package searchable

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 15

	// MaxPageValue bounds page and perPage so the offset arithmetic cannot overflow.
	MaxPageValue = math.MaxInt32
)

// SortDirection orders a sorted search.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Input is the raw, untrusted search query. Any field may hold any value
// (nil, strings from a query string, decoded JSON numbers, booleans, objects).
type Input struct {
	Page    any
	PerPage any
	Sort    any
	SortDir any
	Filter  any
}

// Params is a normalized search descriptor. The zero value is not valid;
// build one with NewParams.
type Params struct {
	page    int
	perPage int
	sort    string
	sortDir SortDirection
	filter  string
}

// NewParams normalizes in. It never fails: every invalid field falls back to its default.
func NewParams(in Input) Params {
	p := Params{
		page:    positiveIntOr(in.Page, DefaultPage),
		perPage: positiveIntOr(in.PerPage, DefaultPerPage),
		sort:    stringOrEmpty(in.Sort),
		filter:  stringOrEmpty(in.Filter),
	}
	// sortDir depends on the resolved sort.
	if p.sort != "" {
		p.sortDir = SortDesc
		if strings.EqualFold(stringOrEmpty(in.SortDir), string(SortAsc)) {
			p.sortDir = SortAsc
		}
	}
	return p
}

func (p Params) Page() int    { return p.page }
func (p Params) PerPage() int { return p.perPage }

// Sort is the requested sort field, or "" when unset.
func (p Params) Sort() string  { return p.sort }
func (p Params) HasSort() bool { return p.sort != "" }

// SortDir is "" when Sort is unset.
func (p Params) SortDir() SortDirection { return p.sortDir }

// Filter is the requested filter, or "" when unset.
func (p Params) Filter() string  { return p.filter }
func (p Params) HasFilter() bool { return p.filter != "" }

// Offset is the number of matching items that precede the requested page.
func (p Params) Offset() int {
	if p.page < 1 {
		return 0
	}
	return (p.page - 1) * p.perPage
}

func positiveIntOr(v any, def int) int {
	f, ok := toNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	if f != math.Trunc(f) || f < 1 || f > MaxPageValue {
		return def
	}
	return int(f)
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Pointer:
		if rv.IsNil() {
			return 0, false
		}
		return toNumber(rv.Elem().Interface())
	default:
		return 0, false
	}
}

func stringOrEmpty(v any) string {
	if v == nil {
		return ""
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		if _, ok := v.(fmt.Stringer); !ok {
			return stringOrEmpty(rv.Elem().Interface())
		}
	}

	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}
