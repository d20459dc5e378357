package ckan

import "context"

// Field describes one datastore column the way datastore_create expects
// it. Order in the slice is column order in the created table.
type Field struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// DatastoreDelete drops the datastore table backing a resource. Deleting a
// table that does not exist fails with a not-found APIError; the caller
// decides whether that matters (IsNotFound).
func (c *Client) DatastoreDelete(ctx context.Context, resourceID string) error {
	_, err := c.Action(ctx, "datastore_delete", map[string]any{
		"resource_id": resourceID,
	})
	return err
}

// DatastoreCreate creates the datastore table for a resource with the
// given fields.
func (c *Client) DatastoreCreate(ctx context.Context, resourceID string, fields []Field) error {
	_, err := c.Action(ctx, "datastore_create", map[string]any{
		"resource_id": resourceID,
		"fields":      fields,
	})
	return err
}

// DatastoreInsert appends one batch of records to a resource's table.
func (c *Client) DatastoreInsert(ctx context.Context, resourceID string, records []map[string]any) error {
	_, err := c.Action(ctx, "datastore_upsert", map[string]any{
		"resource_id": resourceID,
		"method":      "insert",
		"records":     records,
	})
	return err
}
