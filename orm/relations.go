package orm

import (
	"context"
	"fmt"

	"github.com/jinzhu/inflection"
)

// aliasMatches reports whether name refers to table directly or through its
// singular or plural form ("album" and "albums" both name either table).
func aliasMatches(name, table string) bool {
	return name == table ||
		name == inflection.Plural(table) ||
		name == inflection.Singular(table)
}

// Relation is one navigable foreign key as seen from a table.
type Relation struct {
	// Name is the related table.
	Name string
	// Local is the column on the source table.
	Local string
	// Remote is the column on the related table.
	Remote string
	// ToParent is true when the source table holds the reference.
	ToParent bool
}

// Relations lists the relations of the table derived from its foreign keys.
func (t *Table) Relations(ctx context.Context) ([]Relation, error) {
	fks, err := t.ForeignKeys(ctx)
	if err != nil {
		return nil, err
	}
	var out []Relation
	for _, fk := range fks {
		if fk.Child.Table == t.Name() {
			out = append(out, Relation{Name: fk.Parent.Table, Local: fk.Child.Column, Remote: fk.Parent.Column, ToParent: true})
		}
		if fk.Parent.Table == t.Name() {
			out = append(out, Relation{Name: fk.Child.Table, Local: fk.Parent.Column, Remote: fk.Child.Column})
		}
	}
	return out, nil
}

// Related returns a select over the rows linked to r through a foreign key.
// name is the related table, singular or plural: for an album row
// Related(ctx, "artist") follows album.artist_id to its artist, and for an
// artist row Related(ctx, "albums") finds every album pointing at it.
func (r *Resource) Related(ctx context.Context, name string) (*Query, error) {
	if r.deleted {
		return nil, r.detached("related")
	}
	rels, err := r.table.Relations(ctx)
	if err != nil {
		return nil, err
	}
	for _, rel := range rels {
		if !aliasMatches(name, rel.Name) {
			continue
		}
		target, err := r.table.db.Table(rel.Name)
		if err != nil {
			return nil, err
		}
		return Select(target).Filter(rel.Remote, r.Value(rel.Local)), nil
	}
	return nil, &QueryError{
		Op:    "related",
		Table: r.table.Name(),
		Err:   fmt.Errorf("%w: no relation named %q", ErrNotFound, name),
	}
}

// String renders the relation as seen from its source table.
func (rel Relation) String() string {
	if rel.ToParent {
		return fmt.Sprintf("%s -> %s.%s", rel.Local, rel.Name, rel.Remote)
	}
	return fmt.Sprintf("%s <- %s.%s", rel.Local, rel.Name, rel.Remote)
}
