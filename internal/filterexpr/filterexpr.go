// Package filterexpr parses the filter expressions accepted on the command
// line, such as `year >= 1966 and name = "Nina Simone"`, into conditions.
package filterexpr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/satishbabariya/tablemap/orm"
)

// Lexer defines the tokens of a filter expression.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "And", Pattern: `(?i)\band\b`},
	{Name: "Operator", Pattern: `>=|<=|==|=|>|<`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_.]*`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Expression is a conjunction of comparisons.
type Expression struct {
	Pos   lexer.Position
	Terms []*Comparison `@@ ( And @@ )*`
}

// Comparison is one `column op value` term.
type Comparison struct {
	Pos      lexer.Position
	Column   string `@Ident`
	Operator string `@Operator`
	Value    *Value `@@`
}

// Value is a quoted string, a number or a bare word.
type Value struct {
	Pos    lexer.Position
	Text   *string `  @String`
	Number *string `| @Number`
	Word   *string `| @Ident`
}

// Interface returns the Go value: int64 or float64 for numbers, nil for the
// bare word null, bool for true and false, and a string otherwise.
func (v *Value) Interface() any {
	switch {
	case v.Text != nil:
		return *v.Text
	case v.Number != nil:
		if n, err := strconv.ParseInt(*v.Number, 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(*v.Number, 64)
		return f
	case v.Word != nil:
		switch strings.ToLower(*v.Word) {
		case "null":
			return nil
		case "true":
			return true
		case "false":
			return false
		}
		return *v.Word
	}
	return nil
}

// Condition converts the comparison into a condition on its column.
func (c *Comparison) Condition() (orm.Condition, error) {
	cond, ok := orm.ConditionFor(c.Operator, c.Value.Interface())
	if !ok {
		return orm.Condition{}, fmt.Errorf("%s: unsupported operator %q", c.Pos, c.Operator)
	}
	return cond, nil
}

var parser = participle.MustBuild[Expression](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// Parse parses a filter expression.
func Parse(input string) (*Expression, error) {
	expr, err := parser.ParseString("filter", input)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", input, err)
	}
	return expr, nil
}

// Apply parses every expression and adds its terms to q. An empty expression
// leaves q unchanged.
func Apply(q *orm.Query, exprs ...string) (*orm.Query, error) {
	for _, raw := range exprs {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		expr, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		for _, term := range expr.Terms {
			cond, err := term.Condition()
			if err != nil {
				return nil, err
			}
			q = q.Filter(term.Column, cond)
		}
	}
	return q, q.Err()
}

// Fields parses `column=value` assignments, as given to create and update.
func Fields(assignments []string) (orm.Fields, error) {
	out := make(orm.Fields, len(assignments))
	for _, a := range assignments {
		expr, err := Parse(a)
		if err != nil {
			return nil, err
		}
		if len(expr.Terms) != 1 || expr.Terms[0].Operator != "=" {
			return nil, fmt.Errorf("invalid assignment %q: expected column=value", a)
		}
		out[expr.Terms[0].Column] = expr.Terms[0].Value.Interface()
	}
	return out, nil
}

// String renders the expression back in canonical form.
func (e *Expression) String() string {
	parts := make([]string, 0, len(e.Terms))
	for _, t := range e.Terms {
		parts = append(parts, fmt.Sprintf("%s %s %s", t.Column, t.Operator, t.Value))
	}
	return strings.Join(parts, " and ")
}

// String renders the value as it would be written.
func (v *Value) String() string {
	switch {
	case v.Text != nil:
		return strconv.Quote(*v.Text)
	case v.Number != nil:
		return *v.Number
	case v.Word != nil:
		return *v.Word
	}
	return ""
}
