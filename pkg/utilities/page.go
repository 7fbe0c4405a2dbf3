package utilities

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page is an offset/limit window over a listing.
type Page struct {
	Offset int
	Limit  int
}

// Clamp applies the default limit and the upper bound.
func (p Page) Clamp() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// ParsePage reads offset and limit from query parameters. Missing values are
// zero; malformed ones are reported with the parameter name.
func ParsePage(q url.Values) (Page, string, bool) {
	var p Page
	var ok bool
	if p.Offset, ok = QueryInt(q, "offset"); !ok {
		return Page{}, "offset", false
	}
	if p.Limit, ok = QueryInt(q, "limit"); !ok {
		return Page{}, "limit", false
	}
	return p.Clamp(), "", true
}

// QueryInt reads a non-negative integer parameter. A missing parameter yields
// zero.
func QueryInt(q url.Values, key string) (int, bool) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ContainsPattern builds a LIKE pattern matching value anywhere, escaping the
// wildcard characters with a backslash.
func ContainsPattern(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(value) + "%"
}
