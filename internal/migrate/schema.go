// Package migrate holds the event log schema and applies it through ent's
// schema migration, which creates missing tables, columns and indexes and
// never drops existing ones.
package migrate

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Column names of the events table.
const (
	EventsTableName    = "events"
	FieldID            = "id"
	FieldTimestamp     = "timestamp"
	FieldSourceModule  = "source_module"
	FieldEventType     = "event_type"
	FieldValueKind     = "value_kind"
	FieldValue         = "value"
	textSize           = 2147483647
	timestampIndexName = "event_timestamp"
)

var (
	// EventsColumns holds the columns for the "events" table.
	EventsColumns = []*schema.Column{
		{Name: FieldID, Type: field.TypeInt64, Increment: true},
		{Name: FieldTimestamp, Type: field.TypeString, Size: textSize},
		{Name: FieldSourceModule, Type: field.TypeString, Size: textSize},
		{Name: FieldEventType, Type: field.TypeString, Size: textSize},
		// value_kind is nullable so that rows written before it existed stay valid.
		{Name: FieldValueKind, Type: field.TypeString, Nullable: true},
		{Name: FieldValue, Type: field.TypeString, Nullable: true, Size: textSize},
	}
	// EventsTable holds the schema information for the "events" table.
	EventsTable = &schema.Table{
		Name:       EventsTableName,
		Columns:    EventsColumns,
		PrimaryKey: []*schema.Column{EventsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    timestampIndexName,
				Unique:  false,
				Columns: []*schema.Column{EventsColumns[1]},
			},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		EventsTable,
	}
)

// Create creates or updates all schema resources.
func Create(ctx context.Context, drv dialect.Driver, opts ...schema.MigrateOption) error {
	m, err := schema.NewMigrate(drv, opts...)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return m.Create(ctx, Tables...)
}
