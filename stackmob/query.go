package stackmob

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// SortOrder is the direction of an OrderBy clause.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Query describes filtering, ordering and paging for a collection read.
// Conditions flatten into request arguments; ordering, range and expansion
// travel as headers.
type Query struct {
	params  *Arguments
	orderBy []string
	rangeHd string
	expand  int
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{params: NewArguments()}
}

// Where adds an equality condition.
func (q *Query) Where(field string, value any) *Query {
	q.params.Set(field, value)
	return q
}

// WhereNotEqual matches objects whose field differs from value.
func (q *Query) WhereNotEqual(field string, value any) *Query {
	return q.op(field, "ne", value)
}

// WhereLessThan matches field < value.
func (q *Query) WhereLessThan(field string, value any) *Query {
	return q.op(field, "lt", value)
}

// WhereLessThanOrEqual matches field <= value.
func (q *Query) WhereLessThanOrEqual(field string, value any) *Query {
	return q.op(field, "lte", value)
}

// WhereGreaterThan matches field > value.
func (q *Query) WhereGreaterThan(field string, value any) *Query {
	return q.op(field, "gt", value)
}

// WhereGreaterThanOrEqual matches field >= value.
func (q *Query) WhereGreaterThanOrEqual(field string, value any) *Query {
	return q.op(field, "gte", value)
}

// WhereIn matches objects whose field is one of values.
func (q *Query) WhereIn(field string, values ...any) *Query {
	return q.op(field, "in", values)
}

// WhereNull matches objects whose field is (or is not) null.
func (q *Query) WhereNull(field string, isNull bool) *Query {
	return q.op(field, "null", isNull)
}

func (q *Query) op(field, op string, value any) *Query {
	q.params.Set(fmt.Sprintf("%s[%s]", field, op), value)
	return q
}

// OrderBy appends a sort clause. Clauses apply in the order they are added.
func (q *Query) OrderBy(field string, order SortOrder) *Query {
	q.orderBy = append(q.orderBy, field+":"+string(order))
	return q
}

// Range limits the result to objects start through end, both inclusive.
// A negative end leaves the range open.
func (q *Query) Range(start, end int) *Query {
	if end < 0 {
		q.rangeHd = fmt.Sprintf("objects=%d-", start)
	} else {
		q.rangeHd = fmt.Sprintf("objects=%d-%d", start, end)
	}
	return q
}

// Expand asks the backend to inline related objects up to depth levels.
func (q *Query) Expand(depth int) *Query {
	q.expand = depth
	return q
}

// Arguments returns the flattened conditions.
func (q *Query) Arguments() *Arguments {
	if q == nil {
		return nil
	}
	return q.params.Clone()
}

// Headers returns the ordering, range and expansion headers, or nil if the
// query sets none.
func (q *Query) Headers() http.Header {
	if q == nil {
		return nil
	}
	h := make(http.Header)
	if len(q.orderBy) > 0 {
		h.Set("X-StackMob-OrderBy", strings.Join(q.orderBy, ","))
	}
	if q.rangeHd != "" {
		h.Set("Range", q.rangeHd)
	}
	if q.expand > 0 {
		h.Set("X-StackMob-Expand", strconv.Itoa(q.expand))
	}
	if len(h) == 0 {
		return nil
	}
	return h
}
