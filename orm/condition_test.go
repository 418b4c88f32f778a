package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCondition(t *testing.T) {
	tests := []struct {
		name     string
		cond     Condition
		op       string
		template string
	}{
		{"eq", Eq("a"), "=", "{name} = {placeholder}"},
		{"gt", Gt(1), ">", "{name} > {placeholder}"},
		{"lt", Lt(1), "<", "{name} < {placeholder}"},
		{"gte", Gte(1), ">=", "{name} >= {placeholder}"},
		{"lte", Lte(1), "<=", "{name} <= {placeholder}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.op, tt.cond.Operator())
			assert.Equal(t, tt.template, tt.cond.Template())
			assert.Equal(t, `"year" `+tt.op+` $1`, tt.cond.Render(`"year"`, "$1"))
		})
	}
}

func TestConditionFor(t *testing.T) {
	c, ok := ConditionFor(">=", 1990)
	assert.True(t, ok)
	assert.Equal(t, Gte(1990), c)

	c, ok = ConditionFor("==", "x")
	assert.True(t, ok)
	assert.Equal(t, "=", c.Operator())
	assert.Equal(t, "x", c.Operand())

	_, ok = ConditionFor("LIKE", "%x")
	assert.False(t, ok)
}

// between is a caller-defined comparison.
type between struct{ lo, hi int }

func (b between) Operator() string { return "BETWEEN" }
func (b between) Operand() any     { return b.lo }
func (b between) Render(column, placeholder string) string {
	return column + " >= " + placeholder
}

func TestCustomComparison(t *testing.T) {
	db, _ := newMusicDB(t)
	stmt, err := Select(db.MustTable("album")).Filter("year", between{1960, 1970}).Statement()
	assert.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "album" WHERE "year" >= ?`, stmt.SQL)
	assert.Equal(t, []any{1960}, stmt.Args)
	assert.Equal(t, "BETWEEN", stmt.Predicates[0].Operator)
}
