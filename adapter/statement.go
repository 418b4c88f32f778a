package adapter

import "fmt"

// Kind is the kind of SQL statement a query renders.
type Kind int

const (
	// Untyped is a query whose kind has not been fixed yet.
	Untyped Kind = iota
	// Select reads rows.
	Select
	// Insert creates one row.
	Insert
	// Update modifies matching rows.
	Update
	// Delete removes matching rows.
	Delete
)

// String returns the SQL keyword of the kind.
func (k Kind) String() string {
	switch k {
	case Select:
		return "SELECT"
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	default:
		return "UNTYPED"
	}
}

// Predicate is one comparison of a WHERE clause.
type Predicate struct {
	Column   string
	Operator string
	Value    any
}

// Assignment is one column value of an INSERT or UPDATE.
type Assignment struct {
	Column string
	Value  any
}

// Order is an ORDER BY clause.
type Order struct {
	Column    string
	Direction string
}

// Statement is a rendered statement together with the structured parts it was
// rendered from. SQL backends run SQL with Args; other backends map the
// structured parts onto their own protocol.
type Statement struct {
	Kind  Kind
	Table string

	SQL  string
	Args []any

	Columns     []string
	Predicates  []Predicate
	Assignments []Assignment
	Order       *Order
	Limit       int
	Offset      int
}

// String returns the SQL text and its arguments for logging.
func (s *Statement) String() string {
	return fmt.Sprintf("%s %v", s.SQL, s.Args)
}

// PredicateFor returns the equality predicate on column, if any.
func (s *Statement) PredicateFor(column string) (Predicate, bool) {
	for _, p := range s.Predicates {
		if p.Column == column && p.Operator == "=" {
			return p, true
		}
	}
	return Predicate{}, false
}

// Values returns the assignments as a map.
func (s *Statement) Values() map[string]any {
	m := make(map[string]any, len(s.Assignments))
	for _, a := range s.Assignments {
		m[a.Column] = a.Value
	}
	return m
}

// Row is one result row keyed by column name.
type Row map[string]any

// Result holds the rows a statement produced, with their column order.
type Result struct {
	Columns      []string
	Rows         []Row
	RowsAffected int64
}
