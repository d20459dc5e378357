package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/ckanloader/internal/ckan"
	"github.com/JonMunkholm/ckanloader/internal/schema"
)

// DefaultBatchSize is the number of records per insert call.
const DefaultBatchSize = 1024

// RowReader yields raw data rows in source order and reports io.EOF when
// the sequence is exhausted. tabular.Table satisfies it.
type RowReader interface {
	Next() ([]string, error)
}

// Pipeline performs the datastore upload for one resolved resource: drop
// the old table, create the new one from the schema, then stream converted
// rows in fixed-size batches.
type Pipeline struct {
	client    *ckan.Client
	log       *slog.Logger
	batchSize int
}

// NewPipeline wires a pipeline. A nil logger falls back to the default;
// batchSize <= 0 falls back to DefaultBatchSize.
func NewPipeline(client *ckan.Client, log *slog.Logger, batchSize int) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{client: client, log: log, batchSize: batchSize}
}

// Upload replaces the resource's datastore table with the reader's rows.
// Rows are converted and submitted strictly in order; the first conversion
// failure aborts the run with no partial batch submitted. A table that has
// no rows still gets dropped and recreated, so the resource ends up
// present and empty.
func (p *Pipeline) Upload(ctx context.Context, resourceID string, sch *schema.Schema, rows RowReader) error {
	columns, err := orderedColumns(sch)
	if err != nil {
		return err
	}

	// Idempotent reset: a table that is not there yet is fine, any other
	// delete failure is not.
	if err := p.client.DatastoreDelete(ctx, resourceID); err != nil && !ckan.IsNotFound(err) {
		return err
	}

	fields := make([]ckan.Field, len(columns))
	for i, col := range columns {
		fields[i] = ckan.Field{ID: col.Name, Type: string(col.Type)}
	}
	if err := p.client.DatastoreCreate(ctx, resourceID, fields); err != nil {
		return err
	}

	batch := make([]map[string]any, 0, p.batchSize)
	rownum := 0
	for {
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read row %d: %w", rownum+1, err)
		}
		record, err := convertRow(row, columns, rownum)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			p.log.Info("uploading batch", "resource", resourceID, "first_row", rownum)
		}
		batch = append(batch, record)
		rownum++

		if len(batch) == p.batchSize {
			if err := p.client.DatastoreInsert(ctx, resourceID, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := p.client.DatastoreInsert(ctx, resourceID, batch); err != nil {
			return err
		}
	}

	p.log.Info("upload complete", "resource", resourceID, "rows", rownum)
	return nil
}

// convertRow pairs one raw row with the resolved columns by position.
// rownum is 0-based; reported positions are 1-based.
func convertRow(row []string, columns []*schema.Column, rownum int) (map[string]any, error) {
	if len(row) != len(columns) {
		return nil, &RowShapeError{Row: rownum + 1, Got: len(row), Want: len(columns)}
	}
	record := make(map[string]any, len(columns))
	for i, col := range columns {
		raw := row[i]
		// An empty cell is a database NULL for every type but text.
		if col.Type != schema.TypeText && strings.TrimSpace(raw) == "" {
			record[col.Name] = nil
			continue
		}
		value, ok := convertCell(raw, col.Type)
		if !ok {
			return nil, &InvalidCellValueError{
				Row:        rownum + 1,
				Column:     i + 1,
				ColumnName: col.Name,
				Value:      raw,
				Type:       col.Type,
			}
		}
		record[col.Name] = value
	}
	return record, nil
}

// orderedColumns flattens the schema's column map into index order,
// re-checking the coverage invariant so a gap can never reach the remote
// side.
func orderedColumns(sch *schema.Schema) ([]*schema.Column, error) {
	max := sch.MaxColumnIndex()
	if max < 0 {
		return nil, &schema.InvalidSchemaError{
			Field:  "columns",
			Reason: "The schema has no columns.",
		}
	}
	columns := make([]*schema.Column, 0, max+1)
	for i := 0; i <= max; i++ {
		col, ok := sch.Columns[i]
		if !ok {
			return nil, &schema.InvalidSchemaError{
				Field:  fmt.Sprintf("columns[%d]", i),
				Reason: fmt.Sprintf("The schema is missing information for column %d.", i),
			}
		}
		columns = append(columns, col)
	}
	return columns, nil
}
