package models

import (
	"fmt"
	"io"
	"log"
	"os"
	"reflect"
	"sort"
	"strings"

	"gorm.io/gen"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

/*
Schema tooling.

GENERATE_MODELS=true migrates every archive table, adds the indexes gorm tags
cannot express and writes query code to ./generated. GENERATE_COLUMN_REPORT=true
only prints the column report: columns present in Postgres that no model field
maps to. Example:

	=== COLUMN REPORT ===
	people_projects: ok
	projects: 1 unmapped
	  - legacy_thumbnail
	total unmapped: 1
*/

// All lists every archive model keyed by table name.
func All() map[string]interface{} {
	return map[string]interface{}{
		"projects":        Project{},
		"keywords":        Keyword{},
		"genres":          Genre{},
		"institutions":    Institution{},
		"people":          Person{},
		"people_projects": PeopleProject{},
		"invites":         Invite{},
	}
}

// extraIndexes cannot be declared through struct tags.
var extraIndexes = []string{
	`DROP INDEX IF EXISTS idx_people_name_lower`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_people_name_key ON people (LOWER(TRIM(name)))`,
	`CREATE INDEX IF NOT EXISTS idx_project_keywords ON projects USING GIN (keywords jsonb_path_ops)`,
	`CREATE INDEX IF NOT EXISTS idx_project_genres ON projects USING GIN (genres jsonb_path_ops)`,
}

// Migrate creates or updates the archive schema.
func Migrate(db *gorm.DB) error {
	if err := db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}
	migrateDB := db.Session(&gorm.Session{
		SkipDefaultTransaction: true,
		PrepareStmt:            false,
	})
	// Order matters: referenced tables first.
	if err := migrateDB.AutoMigrate(
		&Institution{},
		&Person{},
		&Project{},
		&PeopleProject{},
		&Keyword{},
		&Genre{},
		&Invite{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range extraIndexes {
		if err := migrateDB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// GenerateModels migrates the schema, prints the column report and emits query code.
func GenerateModels(db *gorm.DB) error {
	verbose := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             0,
			LogLevel:                  logger.Info,
			IgnoreRecordNotFoundError: false,
			Colorful:                  true,
		},
	)
	db = db.Session(&gorm.Session{Logger: verbose})

	fmt.Println("Migrating archive schema...")
	if err := Migrate(db); err != nil {
		return err
	}
	fmt.Println("Migration complete")

	if _, err := WriteColumnReport(os.Stdout, db); err != nil {
		return err
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:           "./generated",
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(db)
	g.ApplyBasic(
		Project{},
		Keyword{},
		Genre{},
		Institution{},
		Person{},
		PeopleProject{},
		Invite{},
	)
	g.Execute()
	fmt.Println("Query generation complete")
	return nil
}

// WriteColumnReport prints unmapped columns per table and returns their total.
func WriteColumnReport(w io.Writer, db *gorm.DB) (int, error) {
	fmt.Fprintln(w, "=== COLUMN REPORT ===")

	tables := All()
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 0
	for _, table := range names {
		dbColumns, err := tableColumns(db, table)
		if err != nil {
			return total, err
		}
		if dbColumns == nil {
			fmt.Fprintf(w, "%s: missing (created on migrate)\n", table)
			continue
		}
		unmapped := UnmappedColumns(dbColumns, ModelColumns(tables[table]))
		if len(unmapped) == 0 {
			fmt.Fprintf(w, "%s: ok\n", table)
			continue
		}
		fmt.Fprintf(w, "%s: %d unmapped\n", table, len(unmapped))
		for _, col := range unmapped {
			fmt.Fprintf(w, "  - %s\n", col)
		}
		total += len(unmapped)
	}
	fmt.Fprintf(w, "total unmapped: %d\n", total)
	return total, nil
}

// tableColumns returns nil, nil when the table does not exist.
func tableColumns(db *gorm.DB, table string) ([]string, error) {
	var columns []string
	err := db.Raw(`
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = ?
		AND table_schema = CURRENT_SCHEMA()
		ORDER BY ordinal_position
	`, table).Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, nil
	}
	return columns, nil
}

// ModelColumns lists the gorm column names declared on a model struct.
func ModelColumns(model interface{}) []string {
	var cols []string
	t := reflect.TypeOf(model)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			continue
		}
		if col := columnFromTag(field.Tag.Get("gorm")); col != "" {
			cols = append(cols, col)
		}
	}
	return cols
}

func columnFromTag(tag string) string {
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "column:") {
			return strings.TrimPrefix(part, "column:")
		}
	}
	return ""
}

// UnmappedColumns returns dbColumns that have no model field.
func UnmappedColumns(dbColumns, modelColumns []string) []string {
	known := make(map[string]bool, len(modelColumns))
	for _, c := range modelColumns {
		known[c] = true
	}
	var out []string
	for _, c := range dbColumns {
		if !known[c] {
			out = append(out, c)
		}
	}
	return out
}
