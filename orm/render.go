package orm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/satishbabariya/tablemap/adapter"
)

// Statement renders the query into SQL plus its ordered arguments. The
// structured parts travel with the SQL so non-SQL backends can map them.
// An untyped query renders as a SELECT.
func (q *Query) Statement() (*adapter.Statement, error) {
	if q.err != nil {
		return nil, q.err
	}

	kind := q.kind
	if kind == adapter.Untyped {
		kind = adapter.Select
	}

	stmt := &adapter.Statement{
		Kind:   kind,
		Table:  q.table.Name(),
		Limit:  q.limit,
		Offset: q.offset,
	}
	if len(q.columns) > 0 {
		stmt.Columns = append([]string(nil), q.columns...)
	}
	for _, f := range q.filters {
		stmt.Predicates = append(stmt.Predicates, adapter.Predicate{Column: f.column, Operator: f.operator, Value: f.value})
	}
	if len(q.assignments) > 0 {
		stmt.Assignments = append([]adapter.Assignment(nil), q.assignments...)
	}
	if q.order != nil {
		o := *q.order
		stmt.Order = &o
	}

	table := q.table.String()

	var parts []string
	switch kind {
	case adapter.Select:
		parts = append(parts, "SELECT", q.renderColumns(), "FROM", table, q.renderWhere(), q.renderOrder(), q.renderLimit())
		stmt.Args = q.filterArgs()

	case adapter.Insert:
		if len(q.assignments) == 0 {
			return nil, q.fail("insert", fmt.Errorf("%w: insert without values", ErrValidation)).err
		}
		cols := make([]string, len(q.assignments))
		phs := make([]string, len(q.assignments))
		for i, a := range q.assignments {
			cols[i] = q.escape(a.Column)
			phs[i] = q.placeholder()
			stmt.Args = append(stmt.Args, a.Value)
		}
		parts = append(parts, "INSERT INTO", table,
			"("+strings.Join(cols, ", ")+")",
			"VALUES", "("+strings.Join(phs, ", ")+")")

	case adapter.Update:
		if len(q.assignments) == 0 {
			return nil, q.fail("update", fmt.Errorf("%w: update without values", ErrValidation)).err
		}
		sets := make([]string, len(q.assignments))
		for i, a := range q.assignments {
			sets[i] = q.escape(a.Column) + " = " + q.placeholder()
			stmt.Args = append(stmt.Args, a.Value)
		}
		parts = append(parts, "UPDATE", table, "SET", strings.Join(sets, ", "), q.renderWhere())
		stmt.Args = append(stmt.Args, q.filterArgs()...)

	case adapter.Delete:
		parts = append(parts, "DELETE FROM", table, q.renderWhere())
		stmt.Args = q.filterArgs()
	}

	stmt.SQL = joinClauses(parts)
	return stmt, nil
}

func (q *Query) renderColumns() string {
	if len(q.columns) == 0 {
		return "*"
	}
	cols := make([]string, len(q.columns))
	for i, c := range q.columns {
		cols[i] = q.escape(c)
	}
	return strings.Join(cols, ", ")
}

func (q *Query) renderWhere() string {
	if len(q.filters) == 0 {
		return ""
	}
	fragments := make([]string, len(q.filters))
	for i, f := range q.filters {
		fragments[i] = f.fragment
	}
	return "WHERE " + strings.Join(fragments, " AND ")
}

func (q *Query) renderOrder() string {
	if q.order == nil {
		return ""
	}
	return "ORDER BY " + q.escape(q.order.Column) + " " + q.order.Direction
}

func (q *Query) renderLimit() string {
	if q.limit == 0 {
		return ""
	}
	if r, ok := q.table.db.adapter.(adapter.LimitRenderer); ok {
		return r.RenderLimit(q.limit, q.offset)
	}
	if q.offset > 0 {
		return "LIMIT " + strconv.Itoa(q.offset) + ", " + strconv.Itoa(q.limit)
	}
	return "LIMIT " + strconv.Itoa(q.limit)
}

func (q *Query) filterArgs() []any {
	if len(q.filters) == 0 {
		return nil
	}
	args := make([]any, len(q.filters))
	for i, f := range q.filters {
		args[i] = f.value
	}
	return args
}

// joinClauses joins the non-empty clauses with single spaces.
func joinClauses(parts []string) string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
