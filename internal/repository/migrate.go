package repository

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	entschema "entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/joseph-ayodele/contract-extractor/db/ent/schema"
)

// Table names, as annotated on the ent schemas.
const (
	tableAnalysis = "analysis_record"
	tableDocument = "document"
	tableContract = "contract"
)

// Tables derives the SQL tables from the ent schemas in db/ent/schema.
func Tables() ([]*entschema.Table, error) {
	var tables []*entschema.Table
	for _, s := range []ent.Interface{schema.AnalysisRecord{}, schema.Document{}, schema.Contract{}} {
		t, err := tableFor(s)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func tableFor(s ent.Interface) (*entschema.Table, error) {
	name := tableName(s)
	if name == "" {
		return nil, fmt.Errorf("schema %T has no table annotation", s)
	}
	t := entschema.NewTable(name)
	for _, f := range s.Fields() {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, d.Name, d.Err)
		}
		col := &entschema.Column{
			Name:       columnName(d),
			Type:       d.Info.Type,
			SchemaType: d.SchemaType,
			Size:       int64(d.Size),
			Unique:     d.Unique,
			Nullable:   d.Optional,
		}
		// only literal defaults belong in DDL; func defaults are applied by the repositories
		if d.Info.Type == field.TypeString {
			if v, ok := d.Default.(string); ok {
				col.Default = v
			}
		}
		if col.Name == "id" {
			t.AddPrimary(col)
			continue
		}
		t.AddColumn(col)
	}
	for _, idx := range s.Indexes() {
		d := idx.Descriptor()
		iname := d.StorageKey
		if iname == "" {
			iname = strings.ToLower(name + "_" + strings.Join(d.Fields, "_"))
		}
		t.AddIndex(iname, d.Unique, d.Fields)
	}
	return t, nil
}

func tableName(s ent.Interface) string {
	for _, a := range s.Annotations() {
		switch ant := a.(type) {
		case entsql.Annotation:
			return ant.Table
		case *entsql.Annotation:
			return ant.Table
		}
	}
	return ""
}

func columnName(d *field.Descriptor) string {
	if d.StorageKey != "" {
		return d.StorageKey
	}
	return d.Name
}

// Migrate creates or upgrades the analysis tables. Columns and indexes are never dropped.
func (db *DB) Migrate(ctx context.Context) error {
	tables, err := Tables()
	if err != nil {
		return err
	}
	m, err := entschema.NewMigrate(db.drv, entschema.WithForeignKeys(false))
	if err != nil {
		db.log.Error("migrate init failed", "error", err)
		return err
	}
	if err := m.Create(ctx, tables...); err != nil {
		db.log.Error("migrate failed", "error", err)
		return fmt.Errorf("migrate: %w", err)
	}
	db.log.Info("schema migrated", "tables", len(tables))
	return nil
}
