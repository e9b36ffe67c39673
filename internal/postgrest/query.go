package postgrest

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query accumulates select, filter, order and limit parameters.
type Query struct {
	values url.Values
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{values: url.Values{}}
}

// Select restricts the returned columns.
func (q *Query) Select(cols ...string) *Query {
	q.values.Set("select", strings.Join(cols, ","))
	return q
}

// Eq adds col=eq.val.
func (q *Query) Eq(col, val string) *Query {
	return q.filter(col, "eq", val)
}

// Gt adds col=gt.val.
func (q *Query) Gt(col, val string) *Query {
	return q.filter(col, "gt", val)
}

// Gte adds col=gte.val.
func (q *Query) Gte(col, val string) *Query {
	return q.filter(col, "gte", val)
}

// Lt adds col=lt.val.
func (q *Query) Lt(col, val string) *Query {
	return q.filter(col, "lt", val)
}

// In adds col=in.("a","b"). Values are double-quoted so ids containing
// commas or parentheses survive.
func (q *Query) In(col string, vals []string) *Query {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		quoted[i] = `"` + v + `"`
	}
	return q.filter(col, "in", "("+strings.Join(quoted, ",")+")")
}

// Order sorts by col, descending when desc is set.
func (q *Query) Order(col string, desc bool) *Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	q.values.Set("order", col+"."+dir)
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.values.Set("limit", strconv.Itoa(n))
	return q
}

// Values returns the encoded parameters.
func (q *Query) Values() url.Values {
	if q == nil {
		return url.Values{}
	}
	return q.values
}

// HasFilter reports whether any row filter is present.
func (q *Query) HasFilter() bool {
	if q == nil {
		return false
	}
	for k := range q.values {
		switch k {
		case "select", "order", "limit":
		default:
			return true
		}
	}
	return false
}

func (q *Query) filter(col, op, val string) *Query {
	q.values.Add(col, op+"."+val)
	return q
}

// FormatTime renders t the way filters expect it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
