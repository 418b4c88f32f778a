package orm

import "strings"

// Comparison renders one WHERE fragment for a column.
//
// Implement it to add comparisons the built-in conditions do not cover. The
// query escapes the column and supplies the adapter's placeholder; Operand is
// bound to that placeholder.
type Comparison interface {
	Operator() string
	Operand() any
	Render(column, placeholder string) string
}

// Condition is a comparison between a column and a captured value.
type Condition struct {
	op    string
	value any
}

// Eq matches rows whose column equals v. A bare filter value means the same.
func Eq(v any) Condition { return Condition{op: "=", value: v} }

// Gt matches rows whose column is greater than v.
func Gt(v any) Condition { return Condition{op: ">", value: v} }

// Lt matches rows whose column is less than v.
func Lt(v any) Condition { return Condition{op: "<", value: v} }

// Gte matches rows whose column is greater than or equal to v.
func Gte(v any) Condition { return Condition{op: ">=", value: v} }

// Lte matches rows whose column is less than or equal to v.
func Lte(v any) Condition { return Condition{op: "<=", value: v} }

// Operator returns the SQL comparison operator.
func (c Condition) Operator() string { return c.op }

// Operand returns the bound comparison value.
func (c Condition) Operand() any { return c.value }

// Template returns the statement template with {name} and {placeholder} slots.
func (c Condition) Template() string {
	return "{name} " + c.op + " {placeholder}"
}

// Render fills the template for column and placeholder.
func (c Condition) Render(column, placeholder string) string {
	return strings.NewReplacer("{name}", column, "{placeholder}", placeholder).Replace(c.Template())
}

// String returns the template.
func (c Condition) String() string {
	return c.Template()
}

// ConditionFor builds the condition for a textual operator such as ">=".
// The second result is false for operators outside =, >, <, >=, <=.
func ConditionFor(op string, v any) (Condition, bool) {
	switch op {
	case "=", "==":
		return Eq(v), true
	case ">":
		return Gt(v), true
	case "<":
		return Lt(v), true
	case ">=":
		return Gte(v), true
	case "<=":
		return Lte(v), true
	}
	return Condition{}, false
}
