// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// PageIterator fetches a paginated endpoint one page at a time. Next
// returns nil, nil once the last page has been consumed. Not safe for
// concurrent use.
type PageIterator[T any] struct {
	client  *Client
	nextURL string
	decode  func([]byte) ([]T, error)
}

// Next fetches the next page.
func (iterator *PageIterator[T]) Next(ctx context.Context) ([]T, error) {
	if iterator.nextURL == "" {
		return nil, nil
	}

	body, header, err := iterator.client.doURL(ctx, http.MethodGet, iterator.nextURL, nil)
	if err != nil {
		return nil, err
	}

	items, err := iterator.decode(body)
	if err != nil {
		return nil, fmt.Errorf("github: decoding page: %w", err)
	}

	iterator.nextURL = parseLinkNext(header.Get("Link"))
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Collect fetches all remaining pages.
func (iterator *PageIterator[T]) Collect(ctx context.Context) ([]T, error) {
	var all []T
	for {
		items, err := iterator.Next(ctx)
		if err != nil {
			return all, err
		}
		if items == nil {
			return all, nil
		}
		all = append(all, items...)
	}
}

// list iterates an endpoint whose pages are JSON arrays.
func list[T any](client *Client, path string) *PageIterator[T] {
	return &PageIterator[T]{
		client:  client,
		nextURL: client.baseURL + path,
		decode: func(body []byte) ([]T, error) {
			var items []T
			err := json.Unmarshal(body, &items)
			return items, err
		},
	}
}

// listItems iterates an endpoint whose pages wrap results in an
// "items" field, as the search API does.
func listItems[T any](client *Client, path string) *PageIterator[T] {
	return &PageIterator[T]{
		client:  client,
		nextURL: client.baseURL + path,
		decode: func(body []byte) ([]T, error) {
			var page struct {
				Items []T `json:"items"`
			}
			err := json.Unmarshal(body, &page)
			return page.Items, err
		},
	}
}

// query accumulates URL query parameters, skipping empty values.
type query struct {
	values url.Values
}

func (q *query) set(key, value string) {
	if value == "" {
		return
	}
	if q.values == nil {
		q.values = url.Values{}
	}
	q.values.Set(key, value)
}

func (q *query) setInt(key string, value int) {
	if value > 0 {
		q.set(key, fmt.Sprint(value))
	}
}

// path appends the encoded parameters to basePath.
func (q *query) path(basePath string) string {
	if len(q.values) == 0 {
		return basePath
	}
	return basePath + "?" + q.values.Encode()
}

// parseLinkNext extracts the rel="next" URL from an RFC 5988 Link
// header, or "" when there is none.
func parseLinkNext(header string) string {
	for _, part := range strings.Split(header, ",") {
		target, params, found := strings.Cut(strings.TrimSpace(part), ";")
		if !found || !strings.Contains(params, `rel="next"`) {
			continue
		}
		target = strings.TrimSpace(target)
		if strings.HasPrefix(target, "<") && strings.HasSuffix(target, ">") {
			return target[1 : len(target)-1]
		}
	}
	return ""
}
