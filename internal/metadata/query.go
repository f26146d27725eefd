package metadata

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/neurokit/neurokit-go/internal/errors"
)

// rowColumn is the hidden column carrying the original row index through
// the SQL roundtrip.
const rowColumn = "__row"

// Query evaluates a SQL boolean expression over the table and returns the
// matching row indices in row order. The table is loaded into an
// in-memory SQLite database; column names are usable directly in the
// expression, e.g. `trial_type = 'target' AND rt < 0.3`.
func (t *Table) Query(expr string) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.Newf("empty metadata query expression").
			Category(errors.CategoryValidation).
			Build()
	}
	for _, col := range t.cols {
		if col.Name == rowColumn {
			return nil, errors.Newf("metadata column name %q is reserved", rowColumn).
				Category(errors.CategoryValidation).
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.New(fmt.Errorf("opening in-memory metadata database: %w", err)).
			Category(errors.CategoryDatabase).
			Build()
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer func() { _ = sqlDB.Close() }()
	}

	if err := t.loadInto(db); err != nil {
		return nil, err
	}

	var indices []int
	query := fmt.Sprintf("SELECT %s FROM metadata WHERE %s ORDER BY %s", rowColumn, expr, rowColumn)
	if err := db.Raw(query).Scan(&indices).Error; err != nil {
		return nil, errors.New(fmt.Errorf("evaluating metadata query %q: %w", expr, err)).
			Category(errors.CategoryMetadata).
			Context("expression", expr).
			Build()
	}
	return indices, nil
}

// loadInto creates the metadata table and inserts all rows.
func (t *Table) loadInto(db *gorm.DB) error {
	defs := make([]string, 0, len(t.cols)+1)
	defs = append(defs, fmt.Sprintf("%s INTEGER PRIMARY KEY", rowColumn))
	for _, col := range t.cols {
		defs = append(defs, fmt.Sprintf("%q %s", col.Name, sqlType(col.Kind)))
	}
	create := fmt.Sprintf("CREATE TABLE metadata (%s)", strings.Join(defs, ", "))
	if err := db.Exec(create).Error; err != nil {
		return errors.New(fmt.Errorf("creating metadata table: %w", err)).
			Category(errors.CategoryDatabase).
			Build()
	}

	colNames := make([]string, 0, len(t.cols)+1)
	colNames = append(colNames, rowColumn)
	for _, col := range t.cols {
		colNames = append(colNames, fmt.Sprintf("%q", col.Name))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(colNames)), ", ")
	insert := fmt.Sprintf("INSERT INTO metadata (%s) VALUES (%s)", strings.Join(colNames, ", "), placeholders)

	for ri, row := range t.rows {
		args := make([]any, 0, len(row)+1)
		args = append(args, ri)
		for _, v := range row {
			args = append(args, v)
		}
		if err := db.Exec(insert, args...).Error; err != nil {
			return errors.New(fmt.Errorf("inserting metadata row %d: %w", ri, err)).
				Category(errors.CategoryDatabase).
				Build()
		}
	}
	return nil
}

func sqlType(kind Kind) string {
	switch kind {
	case KindBool:
		return "BOOLEAN"
	case KindNumber:
		return "REAL"
	default:
		return "TEXT"
	}
}
