package ckan

import (
	"context"
	"encoding/json"
	"fmt"
)

// Resource is the subset of a CKAN resource record the loader needs.
type Resource struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Name     string `json:"name,omitempty"`
	Format   string `json:"format,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
}

// Package is a CKAN dataset together with its resources.
type Package struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Resources []Resource `json:"resources"`
}

// ResourceShow fetches one resource record by ID.
func (c *Client) ResourceShow(ctx context.Context, id string) (*Resource, error) {
	raw, err := c.Action(ctx, "resource_show", map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	var res Resource
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode resource_show result: %w", err)
	}
	return &res, nil
}

// PackageList fetches the identifier of every package in the catalog.
func (c *Client) PackageList(ctx context.Context) ([]string, error) {
	raw, err := c.Action(ctx, "package_list", map[string]string{})
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode package_list result: %w", err)
	}
	return ids, nil
}

// PackageShow fetches one package with its resources.
func (c *Client) PackageShow(ctx context.Context, id string) (*Package, error) {
	raw, err := c.Action(ctx, "package_show", map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	var pkg Package
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("decode package_show result: %w", err)
	}
	return &pkg, nil
}
