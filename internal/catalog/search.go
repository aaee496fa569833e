package catalog

import (
	"context"
	"strings"

	"github.com/osusumeapp/osusume-server/internal/domain"
	"github.com/osusumeapp/osusume-server/internal/filter"
)

// Search runs one catalog query for fs. The FilterSet is read, never modified.
func (c *Client) Search(ctx context.Context, fs filter.FilterSet) (*Page, error) {
	data, err := c.do(ctx, "search", searchVariables(fs))
	if err != nil {
		return nil, wrapError("search", "", err)
	}

	items, skipped := decodeItems(data.Page.Media, c.logger)
	info := data.Page.PageInfo

	return &Page{
		Items: items,
		PageInfo: PageInfo{
			Total:       info.Total,
			CurrentPage: info.CurrentPage,
			LastPage:    info.LastPage,
			HasNextPage: info.HasNextPage,
			PerPage:     info.PerPage,
		},
		Skipped: skipped,
	}, nil
}

// LookupByTitle returns the catalog's best match for title, or ErrNotFound.
func (c *Client) LookupByTitle(ctx context.Context, title string) (*domain.CatalogItem, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, wrapError("lookup", title, ErrNotFound)
	}

	data, err := c.do(ctx, "lookup", lookupVariables(title))
	if err != nil {
		return nil, wrapError("lookup", title, err)
	}

	items, _ := decodeItems(data.Page.Media, c.logger)
	if len(items) == 0 {
		return nil, wrapError("lookup", title, ErrNotFound)
	}
	return &items[0], nil
}
