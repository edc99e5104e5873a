package classes

import (
	"net/url"
	"strconv"
	"strings"

	"class-service/internal/timeconv"

	"github.com/uptrace/bun"
)

// ListLimit caps every listing; there is no pagination.
const ListLimit = 20

// ListFilter holds the raw, optional query parameters of GET /classes.
// Empty fields are not applied.
type ListFilter struct {
	Subject string
	WeekDay string
	Time    string
}

func FilterFromQuery(values url.Values) ListFilter {
	return ListFilter{
		Subject: values.Get("subject"),
		WeekDay: values.Get("week_day"),
		Time:    values.Get("time"),
	}
}

type predicate struct {
	query string
	args  []interface{}
}

// matchNone stands in for a filter whose value is not a number.
var matchNone = predicate{query: "FALSE"}

// predicates returns one condition per present parameter, to be ANDed.
func (f ListFilter) predicates() []predicate {
	var preds []predicate

	if f.Subject != "" {
		preds = append(preds, predicate{
			query: "? = ?",
			args:  []interface{}{bun.Ident("classes.subject"), f.Subject},
		})
	}

	if f.WeekDay != "" {
		weekDay, err := strconv.Atoi(strings.TrimSpace(f.WeekDay))
		if err != nil {
			preds = append(preds, matchNone)
		} else {
			preds = append(preds, predicate{
				query: "? = ?",
				args:  []interface{}{bun.Ident("class_schedule.week_day"), weekDay},
			})
		}
	}

	if f.Time != "" {
		minutes, err := timeconv.HourToMinutes(f.Time)
		if err != nil {
			preds = append(preds, matchNone)
		} else {
			// Equality on both bounds: only slots that start and end at
			// exactly this minute match. A slot covering the time does not.
			preds = append(preds,
				predicate{
					query: "? = ?",
					args:  []interface{}{bun.Ident("class_schedule.from"), minutes},
				},
				predicate{
					query: "? = ?",
					args:  []interface{}{bun.Ident("class_schedule.to"), minutes},
				},
			)
		}
	}

	return preds
}

// Apply adds the filter's predicates to q.
func (f ListFilter) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	for _, p := range f.predicates() {
		q = q.Where(p.query, p.args...)
	}
	return q
}
