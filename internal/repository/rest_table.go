package repository

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"backoffice/internal/entities"
	"backoffice/internal/infrastructure"
)

// restTable is PostgREST access to one table.
type restTable struct {
	rest *infrastructure.RestClient
	name string
}

func (t restTable) path() string {
	return "/rest/v1/" + url.PathEscape(t.name)
}

func eqFilter(column, value string) url.Values {
	return url.Values{column: {infrastructure.Eq(value)}}
}

func withParams(filter url.Values, kv ...string) url.Values {
	q := url.Values{}
	for k, v := range filter {
		q[k] = append([]string(nil), v...)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	return q
}

// restList reads one page newest first and returns the exact total of the query.
func restList[T any](ctx context.Context, t restTable, filter url.Values, p entities.Pagination, msg string) ([]T, int, error) {
	p = p.Normalize()
	resp, err := t.rest.Do(ctx, infrastructure.RestRequest{
		Method: http.MethodGet,
		Path:   t.path(),
		Query: withParams(filter,
			"select", "*",
			"order", "created_at.desc",
			"limit", strconv.Itoa(p.Limit),
			"offset", strconv.Itoa(p.Offset()),
		),
		Headers:        map[string]string{"Prefer": "count=exact"},
		DefaultMessage: msg,
	})
	if err != nil {
		return nil, 0, err
	}
	var rows []T
	if err := infrastructure.DecodeJSON(resp, &rows); err != nil {
		return nil, 0, err
	}
	total, ok := infrastructure.ContentRangeTotal(resp.Header)
	if !ok {
		total = p.Offset() + len(rows)
	}
	return rows, total, nil
}

func restCount(ctx context.Context, t restTable, filter url.Values, timeout time.Duration, msg string) (int, error) {
	resp, err := t.rest.Do(ctx, infrastructure.RestRequest{
		Method:         http.MethodGet,
		Path:           t.path(),
		Query:          withParams(filter, "select", "id", "limit", "1"),
		Headers:        map[string]string{"Prefer": "count=exact"},
		Timeout:        timeout,
		DefaultMessage: msg,
	})
	if err != nil {
		return 0, err
	}
	total, ok := infrastructure.ContentRangeTotal(resp.Header)
	if !ok {
		return 0, &entities.APIError{Status: http.StatusBadGateway, Message: "count missing from response"}
	}
	return total, nil
}

// restFirst returns nil, nil when no row matches.
func restFirst[T any](ctx context.Context, t restTable, filter url.Values, msg string) (*T, error) {
	resp, err := t.rest.Do(ctx, infrastructure.RestRequest{
		Method:         http.MethodGet,
		Path:           t.path(),
		Query:          withParams(filter, "select", "*", "limit", "1"),
		DefaultMessage: msg,
	})
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := infrastructure.DecodeJSON(resp, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func restInsert[T any](ctx context.Context, t restTable, row map[string]any, msg string) (*T, error) {
	resp, err := t.rest.Do(ctx, infrastructure.RestRequest{
		Method:         http.MethodPost,
		Path:           t.path(),
		Query:          url.Values{"select": {"*"}},
		Body:           row,
		Headers:        map[string]string{"Prefer": "return=representation"},
		DefaultMessage: msg,
	})
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := infrastructure.DecodeJSON(resp, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &entities.APIError{Status: http.StatusBadGateway, Message: "insert returned no row"}
	}
	return &rows[0], nil
}

func restUpdate(ctx context.Context, t restTable, filter url.Values, fields map[string]any, msg string) error {
	_, err := t.rest.Do(ctx, infrastructure.RestRequest{
		Method:         http.MethodPatch,
		Path:           t.path(),
		Query:          filter,
		Body:           fields,
		Headers:        map[string]string{"Prefer": "return=minimal"},
		DefaultMessage: msg,
	})
	return err
}

func restDelete(ctx context.Context, t restTable, filter url.Values, msg string) error {
	_, err := t.rest.Do(ctx, infrastructure.RestRequest{
		Method:         http.MethodDelete,
		Path:           t.path(),
		Query:          filter,
		DefaultMessage: msg,
	})
	return err
}
