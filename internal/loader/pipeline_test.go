package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strconv"
	"testing"

	"github.com/JonMunkholm/ckanloader/internal/ckan"
	"github.com/JonMunkholm/ckanloader/internal/ckan/ckantest"
	"github.com/JonMunkholm/ckanloader/internal/schema"
)

// sliceRows is a RowReader over a fixed set of rows.
type sliceRows struct {
	rows [][]string
	i    int
}

func (s *sliceRows) Next() ([]string, error) {
	if s.i >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.i]
	s.i++
	return row, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func twoColumnSchema() *schema.Schema {
	return &schema.Schema{Columns: map[int]*schema.Column{
		0: {Name: "name", Type: schema.TypeText},
		1: {Name: "amount", Type: schema.TypeNumeric},
	}}
}

// ----------------------------------------------------------------------------
// Upload Tests
// ----------------------------------------------------------------------------

func TestPipeline_Upload(t *testing.T) {
	srv := ckantest.New()
	defer srv.Close()

	p := NewPipeline(srv.Client(), discardLogger(), 0)
	rows := &sliceRows{rows: [][]string{{"alice", "1.5"}, {"bob", "2"}}}

	if err := p.Upload(context.Background(), "res-1", twoColumnSchema(), rows); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	// The reset is idempotent: deleting the never-created table is absorbed.
	if calls := srv.Calls("datastore_delete"); len(calls) != 1 {
		t.Errorf("datastore_delete calls = %d, want 1", len(calls))
	}

	table := srv.Table("res-1")
	if table == nil {
		t.Fatal("Table(res-1) = nil, want the created table")
	}
	wantFields := []map[string]any{
		{"id": "name", "type": "text"},
		{"id": "amount", "type": "numeric"},
	}
	if !reflect.DeepEqual(table.Fields, wantFields) {
		t.Errorf("fields = %v, want %v", table.Fields, wantFields)
	}
	wantRecords := []map[string]any{
		{"name": "alice", "amount": 1.5},
		{"name": "bob", "amount": 2.0},
	}
	if !reflect.DeepEqual(table.Records, wantRecords) {
		t.Errorf("records = %v, want %v", table.Records, wantRecords)
	}
}

func TestPipeline_Batching(t *testing.T) {
	srv := ckantest.New()
	defer srv.Close()

	p := NewPipeline(srv.Client(), discardLogger(), 2)
	rows := &sliceRows{rows: [][]string{
		{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"}, {"e", "5"},
	}}

	if err := p.Upload(context.Background(), "res-1", twoColumnSchema(), rows); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	calls := srv.Calls("datastore_upsert")
	if len(calls) != 3 {
		t.Fatalf("datastore_upsert calls = %d, want 3", len(calls))
	}
	wantSizes := []int{2, 2, 1}
	for i, call := range calls {
		records, _ := call.Params["records"].([]any)
		if len(records) != wantSizes[i] {
			t.Errorf("batch %d size = %d, want %d", i, len(records), wantSizes[i])
		}
		if method := call.Params["method"]; method != "insert" {
			t.Errorf("batch %d method = %v, want insert", i, method)
		}
	}

	table := srv.Table("res-1")
	if len(table.Records) != 5 {
		t.Errorf("stored records = %d, want all 5", len(table.Records))
	}
	if table.Records[4]["name"] != "e" {
		t.Errorf("last record = %v, want row e in source order", table.Records[4])
	}
}

func TestPipeline_DefaultBatchSize(t *testing.T) {
	srv := ckantest.New()
	defer srv.Close()

	// batchSize <= 0 falls back to DefaultBatchSize
	p := NewPipeline(srv.Client(), discardLogger(), 0)
	raw := make([][]string, 2500)
	for i := range raw {
		raw[i] = []string{fmt.Sprintf("row%d", i), strconv.Itoa(i)}
	}

	if err := p.Upload(context.Background(), "res-1", twoColumnSchema(), &sliceRows{rows: raw}); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	calls := srv.Calls("datastore_upsert")
	wantSizes := []int{1024, 1024, 452}
	if len(calls) != len(wantSizes) {
		t.Fatalf("datastore_upsert calls = %d, want %d", len(calls), len(wantSizes))
	}
	for i, call := range calls {
		records, _ := call.Params["records"].([]any)
		if len(records) != wantSizes[i] {
			t.Errorf("batch %d size = %d, want %d", i, len(records), wantSizes[i])
		}
	}

	table := srv.Table("res-1")
	if len(table.Records) != 2500 {
		t.Fatalf("stored records = %d, want 2500", len(table.Records))
	}
	if table.Records[2048]["name"] != "row2048" {
		t.Errorf("record 2048 = %v, want row2048 in source order", table.Records[2048])
	}
}

func TestPipeline_EmptyTable(t *testing.T) {
	srv := ckantest.New()
	defer srv.Close()

	p := NewPipeline(srv.Client(), discardLogger(), 0)

	if err := p.Upload(context.Background(), "res-1", twoColumnSchema(), &sliceRows{}); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if calls := srv.Calls("datastore_upsert"); len(calls) != 0 {
		t.Errorf("datastore_upsert calls = %d, want 0 for an empty table", len(calls))
	}
	table := srv.Table("res-1")
	if table == nil {
		t.Fatal("Table(res-1) = nil, want an empty table to exist")
	}
	if len(table.Records) != 0 {
		t.Errorf("records = %v, want none", table.Records)
	}
}

func TestPipeline_EmptyCellsBecomeNull(t *testing.T) {
	srv := ckantest.New()
	defer srv.Close()

	p := NewPipeline(srv.Client(), discardLogger(), 0)
	rows := &sliceRows{rows: [][]string{{"", "  "}}}

	if err := p.Upload(context.Background(), "res-1", twoColumnSchema(), rows); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	records := srv.Table("res-1").Records
	if len(records) != 1 {
		t.Fatalf("records = %v, want one", records)
	}
	// Empty text stays empty text; an empty numeric cell is a NULL.
	if got, ok := records[0]["name"]; !ok || got != "" {
		t.Errorf("name = %v (present %v), want empty string", got, ok)
	}
	if got, ok := records[0]["amount"]; !ok || got != nil {
		t.Errorf("amount = %v (present %v), want JSON null", got, ok)
	}
}

// ----------------------------------------------------------------------------
// Failure Tests
// ----------------------------------------------------------------------------

func TestPipeline_RowShapeError(t *testing.T) {
	srv := ckantest.New()
	defer srv.Close()

	p := NewPipeline(srv.Client(), discardLogger(), 0)
	rows := &sliceRows{rows: [][]string{
		{"alice", "1"},
		{"bob"},
	}}

	err := p.Upload(context.Background(), "res-1", twoColumnSchema(), rows)

	var shapeErr *RowShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("Upload() error = %v, want *RowShapeError", err)
	}
	if shapeErr.Row != 2 {
		t.Errorf("Row = %d, want 2", shapeErr.Row)
	}
	want := "Row 2 does not have 2 columns."
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	if !IsUserError(err) {
		t.Error("IsUserError() = false, want true")
	}

	// The failure happened before the first batch was full, so nothing was
	// submitted.
	if calls := srv.Calls("datastore_upsert"); len(calls) != 0 {
		t.Errorf("datastore_upsert calls = %d, want 0", len(calls))
	}
}

func TestPipeline_InvalidCellError(t *testing.T) {
	srv := ckantest.New()
	defer srv.Close()

	p := NewPipeline(srv.Client(), discardLogger(), 0)
	rows := &sliceRows{rows: [][]string{{"alice", "plenty"}}}

	err := p.Upload(context.Background(), "res-1", twoColumnSchema(), rows)

	var cellErr *InvalidCellValueError
	if !errors.As(err, &cellErr) {
		t.Fatalf("Upload() error = %v, want *InvalidCellValueError", err)
	}
	want := `The value "plenty" in row 1 column 2 (amount) is invalid for a numeric column.`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	if !IsUserError(err) {
		t.Error("IsUserError() = false, want true")
	}
}

func TestPipeline_SchemaGapStopsBeforeRemoteCalls(t *testing.T) {
	srv := ckantest.New()
	defer srv.Close()

	p := NewPipeline(srv.Client(), discardLogger(), 0)
	sch := &schema.Schema{Columns: map[int]*schema.Column{
		0: {Name: "a", Type: schema.TypeText},
		2: {Name: "c", Type: schema.TypeText},
	}}

	err := p.Upload(context.Background(), "res-1", sch, &sliceRows{})

	var invalid *schema.InvalidSchemaError
	if !errors.As(err, &invalid) {
		t.Fatalf("Upload() error = %v, want *InvalidSchemaError", err)
	}
	want := "The schema is missing information for column 1."
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	for _, action := range []string{"datastore_delete", "datastore_create", "datastore_upsert"} {
		if calls := srv.Calls(action); len(calls) != 0 {
			t.Errorf("%s calls = %d, want 0", action, len(calls))
		}
	}
}

func TestPipeline_NoColumns(t *testing.T) {
	srv := ckantest.New()
	defer srv.Close()

	p := NewPipeline(srv.Client(), discardLogger(), 0)

	err := p.Upload(context.Background(), "res-1", &schema.Schema{}, &sliceRows{})

	var invalid *schema.InvalidSchemaError
	if !errors.As(err, &invalid) {
		t.Fatalf("Upload() error = %v, want *InvalidSchemaError", err)
	}
	want := "The schema has no columns."
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestPipeline_DeleteFailureAborts(t *testing.T) {
	srv := ckantest.New()
	defer srv.Close()
	srv.FailAction("datastore_delete", 500, map[string]any{"message": "db down"})

	p := NewPipeline(srv.Client(), discardLogger(), 0)

	err := p.Upload(context.Background(), "res-1", twoColumnSchema(), &sliceRows{})
	if err == nil {
		t.Fatal("Upload() error = nil, want delete failure")
	}
	if ckan.IsNotFound(err) {
		t.Errorf("Upload() error = %v, must not classify as not-found", err)
	}
	if calls := srv.Calls("datastore_create"); len(calls) != 0 {
		t.Errorf("datastore_create calls = %d, want 0 after a failed delete", len(calls))
	}
}

func TestPipeline_InsertFailureSurfaces(t *testing.T) {
	srv := ckantest.New()
	defer srv.Close()
	srv.FailAction("datastore_upsert", 403, map[string]any{
		"__type":  "Authorization Error",
		"message": "Access denied",
	})

	p := NewPipeline(srv.Client(), discardLogger(), 0)
	rows := &sliceRows{rows: [][]string{{"alice", "1"}}}

	err := p.Upload(context.Background(), "res-1", twoColumnSchema(), rows)
	if !ckan.IsPermissionDenied(err) {
		t.Errorf("IsPermissionDenied(%v) = false, want true", err)
	}
	if IsUserError(err) {
		t.Errorf("IsUserError(%v) = true, want false for a remote failure", err)
	}
}
