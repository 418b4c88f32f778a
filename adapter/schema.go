package adapter

// TableInfo describes a table as reported by Tables.
type TableInfo struct {
	Catalog string `json:"catalog"`
	Schema  string `json:"schema"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Remarks string `json:"remarks"`
}

// QualifiedName returns schema.name, or name when the schema is empty.
func (t TableInfo) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// ColumnInfo describes one column as reported by Describe.
type ColumnInfo struct {
	Catalog  string `json:"catalog"`
	Schema   string `json:"schema"`
	Table    string `json:"table"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
	Nullable bool   `json:"nullable"`
	Remarks  string `json:"remarks"`
	Position int    `json:"position"`
}

// ColumnRef points at one column of one table.
type ColumnRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// ForeignKey links a referenced (parent) column to a referencing (child) one.
type ForeignKey struct {
	Parent ColumnRef `json:"parent"`
	Child  ColumnRef `json:"child"`
}
