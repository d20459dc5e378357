// Package loader orchestrates resource loading end to end: catalog lookup,
// download, schema resolution, and the datastore upload, including the
// continue-on-user-error policy for catalog-wide runs.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ckanloader/internal/ckan"
	"github.com/JonMunkholm/ckanloader/internal/config"
	"github.com/JonMunkholm/ckanloader/internal/logging"
	"github.com/JonMunkholm/ckanloader/internal/schema"
	"github.com/JonMunkholm/ckanloader/internal/tabular"
)

// Driver loads resources into the datastore.
type Driver struct {
	client     *ckan.Client
	httpc      *http.Client
	log        *slog.Logger
	batchSize  int
	sampleRows int
}

// NewDriver wires a driver from configuration. A nil logger falls back to
// the default.
func NewDriver(client *ckan.Client, cfg *config.Config, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{
		client:     client,
		httpc:      &http.Client{Timeout: cfg.Loader.FetchTimeout},
		log:        log,
		batchSize:  cfg.Loader.BatchSize,
		sampleRows: cfg.Loader.SampleRows,
	}
}

// LoadResource uploads one resource into the datastore. sch may carry
// caller overrides; it is enriched in place and stays meaningful to the
// caller even when an error comes back.
func (d *Driver) LoadResource(ctx context.Context, resourceID string, sch *schema.Schema) error {
	res, err := d.lookupResource(ctx, resourceID)
	if err != nil {
		return err
	}
	return d.loadResource(ctx, res, sch)
}

// ResolveResource resolves the schema for one resource without touching
// the datastore: same lookup, download, and resolution as LoadResource,
// minus the upload.
func (d *Driver) ResolveResource(ctx context.Context, resourceID string, sch *schema.Schema) error {
	res, err := d.lookupResource(ctx, resourceID)
	if err != nil {
		return err
	}

	body, hints, err := d.fetch(ctx, res)
	if err != nil {
		return err
	}
	defer body.Close()

	resolver := schema.NewResolver(logging.WithResource(d.log, res.ID), d.sampleRows)
	_, err = resolver.Resolve(sch, body, hints)
	return err
}

// LoadAll loads the first resource of every package in the catalog.
// User-correctable failures are logged and the run moves on to the next
// package; any other failure aborts the run.
func (d *Driver) LoadAll(ctx context.Context) error {
	packages, err := d.client.PackageList(ctx)
	if err != nil {
		return err
	}
	d.log.Info("loading catalog", "packages", len(packages))

	for _, pkgID := range packages {
		pkg, err := d.client.PackageShow(ctx, pkgID)
		if err != nil {
			return err
		}
		if len(pkg.Resources) == 0 {
			d.log.Warn("package has no resources", "package", pkgID)
			continue
		}
		res := pkg.Resources[0]

		sch := &schema.Schema{}
		if err := d.loadResource(ctx, &res, sch); err != nil {
			if IsUserError(err) {
				d.log.Error("resource needs attention, continuing",
					"package", pkgID, "resource", res.ID, "error", err)
				continue
			}
			return err
		}
	}
	return nil
}

func (d *Driver) lookupResource(ctx context.Context, resourceID string) (*ckan.Resource, error) {
	if _, err := uuid.Parse(resourceID); err != nil {
		return nil, fmt.Errorf("resource id %q is not a valid UUID: %w", resourceID, err)
	}
	return d.client.ResourceShow(ctx, resourceID)
}

func (d *Driver) loadResource(ctx context.Context, res *ckan.Resource, sch *schema.Schema) error {
	log := logging.WithResource(d.log, res.ID)
	log.Info("processing resource", "url", res.URL)

	body, hints, err := d.fetch(ctx, res)
	if err != nil {
		return err
	}
	defer body.Close()

	resolver := schema.NewResolver(log, d.sampleRows)
	table, err := resolver.Resolve(sch, body, hints)
	if err != nil {
		return err
	}

	pipeline := NewPipeline(d.client, log, d.batchSize)
	return pipeline.Upload(ctx, res.ID, sch, table)
}

// fetch opens the resource payload. The Content-Type header and the URL's
// file extension travel along as detection hints.
func (d *Driver) fetch(ctx context.Context, res *ckan.Resource) (io.ReadCloser, tabular.Hints, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.URL, nil)
	if err != nil {
		return nil, tabular.Hints{}, fmt.Errorf("build download request for %s: %w", res.URL, err)
	}
	resp, err := d.httpc.Do(req)
	if err != nil {
		return nil, tabular.Hints{}, fmt.Errorf("download %s: %w", res.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, tabular.Hints{}, fmt.Errorf("download %s: unexpected status %s", res.URL, resp.Status)
	}

	hints := tabular.Hints{
		MimeType:  resp.Header.Get("Content-Type"),
		Extension: urlExtension(res.URL),
	}
	return resp.Body, hints, nil
}

// urlExtension pulls the file extension from a URL's path, without the
// dot, lowercased.
func urlExtension(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
}
