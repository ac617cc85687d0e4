package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbeccah/airtable/internal/grid"
	"github.com/rbeccah/airtable/internal/griderr"
	"github.com/rbeccah/airtable/internal/middleware"
	"github.com/rbeccah/airtable/internal/model"
)

// stubGrid lets each test supply just the engine methods it exercises.
type stubGrid struct {
	createBase func(ctx context.Context, name, ownerID string) (*model.Base, error)
	getPage    func(ctx context.Context, tableID, viewID string, cursor *string, limit int) (*grid.Page, error)
	updateCell func(ctx context.Context, cellID, value string) (*model.Row, error)
	search     func(ctx context.Context, tableID, query string) ([]model.Cell, error)
}

func (s *stubGrid) CreateBase(ctx context.Context, name, ownerID string) (*model.Base, error) {
	return s.createBase(ctx, name, ownerID)
}
func (s *stubGrid) GetBase(context.Context, string) (*model.Base, error) {
	return nil, griderr.ErrBaseNotFound
}
func (s *stubGrid) CreateTable(context.Context, string, string) (*model.Table, error) {
	return nil, griderr.ErrBaseNotFound
}
func (s *stubGrid) GetTable(context.Context, string) (*model.Table, error) {
	return nil, griderr.ErrTableNotFound
}
func (s *stubGrid) AddColumn(context.Context, string, string, model.ColumnType) (*model.Column, []model.Cell, error) {
	return nil, nil, griderr.ErrTableNotFound
}
func (s *stubGrid) AddRows(context.Context, string, int) ([]model.Row, error) {
	return nil, griderr.ErrTableNotFound
}
func (s *stubGrid) GetPage(ctx context.Context, tableID, viewID string, cursor *string, limit int) (*grid.Page, error) {
	return s.getPage(ctx, tableID, viewID, cursor, limit)
}
func (s *stubGrid) Search(ctx context.Context, tableID, query string) ([]model.Cell, error) {
	return s.search(ctx, tableID, query)
}
func (s *stubGrid) UpdateCell(ctx context.Context, cellID, value string) (*model.Row, error) {
	return s.updateCell(ctx, cellID, value)
}
func (s *stubGrid) CreateView(context.Context, string, string) (*model.View, error) {
	return nil, griderr.ErrTableNotFound
}
func (s *stubGrid) GetView(context.Context, string) (*model.View, error) {
	return nil, griderr.ErrViewNotFound
}
func (s *stubGrid) ListViews(context.Context, string) ([]model.View, error) {
	return nil, griderr.ErrTableNotFound
}
func (s *stubGrid) ReplaceFilters(context.Context, string, []model.FilterCondition) ([]model.FilterCondition, error) {
	return nil, griderr.ErrViewNotFound
}
func (s *stubGrid) ReplaceSorts(context.Context, string, []model.SortCondition) ([]model.SortCondition, error) {
	return nil, griderr.ErrViewNotFound
}
func (s *stubGrid) ReplaceVisibility(context.Context, string, map[string]bool) ([]model.ColumnVisibility, error) {
	return nil, griderr.ErrViewNotFound
}

func newTestServer(g Grid) http.Handler {
	return NewRouter(NewHandlers(g), RouterConfig{
		CORS:      middleware.CORSConfig{},
		RateLimit: middleware.RateLimitConfig{},
	})
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestCreateBaseRequiresUserHeader(t *testing.T) {
	h := newTestServer(&stubGrid{})
	rec, env := doJSON(t, h, http.MethodPost, "/api/bases", `{"name":"b"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error.Message, "X-User-ID")
}

func TestCreateBaseSuccess(t *testing.T) {
	g := &stubGrid{
		createBase: func(_ context.Context, name, ownerID string) (*model.Base, error) {
			assert.Equal(t, "My Base", name)
			assert.Equal(t, "user-7", ownerID)
			return &model.Base{ID: "base-1", Name: name, OwnerID: ownerID}, nil
		},
	}
	h := newTestServer(g)
	rec, env := doJSON(t, h, http.MethodPost, "/api/bases", `{"name":"My Base"}`,
		map[string]string{"X-User-ID": "user-7"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
}

func TestGetRowsRequiresViewID(t *testing.T) {
	h := newTestServer(&stubGrid{})
	rec, env := doJSON(t, h, http.MethodGet, "/api/tables/tbl-1/rows", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Message, "viewId")
}

func TestGetRowsPassesCursorAndLimit(t *testing.T) {
	g := &stubGrid{
		getPage: func(_ context.Context, tableID, viewID string, cursor *string, limit int) (*grid.Page, error) {
			assert.Equal(t, "tbl-1", tableID)
			assert.Equal(t, "view-1", viewID)
			require.NotNil(t, cursor)
			assert.Equal(t, "abc", *cursor)
			assert.Equal(t, 25, limit)
			next := "def"
			return &grid.Page{Rows: []model.Row{{ID: "row-1"}}, NextCursor: &next}, nil
		},
	}
	h := newTestServer(g)
	rec, env := doJSON(t, h, http.MethodGet, "/api/tables/tbl-1/rows?viewId=view-1&cursor=abc&limit=25", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var page pageDTO
	require.NoError(t, json.Unmarshal(data, &page))
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "row-1", page.Rows[0].ID)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "def", *page.NextCursor)
}

func TestGetRowsInvalidCursorMapsTo400(t *testing.T) {
	g := &stubGrid{
		getPage: func(context.Context, string, string, *string, int) (*grid.Page, error) {
			return nil, griderr.ErrInvalidCursor
		},
	}
	h := newTestServer(g)
	rec, _ := doJSON(t, h, http.MethodGet, "/api/tables/tbl-1/rows?viewId=view-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRowsViewNotFoundMapsTo404(t *testing.T) {
	g := &stubGrid{
		getPage: func(context.Context, string, string, *string, int) (*grid.Page, error) {
			return nil, griderr.ErrViewNotFound
		},
	}
	h := newTestServer(g)
	rec, _ := doJSON(t, h, http.MethodGet, "/api/tables/tbl-1/rows?viewId=view-1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStorageErrorHidesDetails(t *testing.T) {
	g := &stubGrid{
		getPage: func(context.Context, string, string, *string, int) (*grid.Page, error) {
			return nil, griderr.Storage("fetch row page", errors.New("dial tcp: connection refused"))
		},
	}
	h := newTestServer(g)
	rec, env := doJSON(t, h, http.MethodGet, "/api/tables/tbl-1/rows?viewId=view-1", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", env.Error.Message)
}

func TestUpdateCellNotFound(t *testing.T) {
	g := &stubGrid{
		updateCell: func(context.Context, string, string) (*model.Row, error) {
			return nil, griderr.ErrCellNotFound
		},
	}
	h := newTestServer(g)
	rec, _ := doJSON(t, h, http.MethodPatch, "/api/cells/cell-1", `{"value":"x"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateCellRejectsMalformedBody(t *testing.T) {
	h := newTestServer(&stubGrid{})
	rec, _ := doJSON(t, h, http.MethodPatch, "/api/cells/cell-1", `{"value":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchPassesQuery(t *testing.T) {
	g := &stubGrid{
		search: func(_ context.Context, tableID, query string) ([]model.Cell, error) {
			assert.Equal(t, "ann", query)
			return []model.Cell{{ID: "cell-1", Value: "Annika"}}, nil
		},
	}
	h := newTestServer(g)
	rec, env := doJSON(t, h, http.MethodGet, "/api/tables/tbl-1/search?q=ann", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestHealthWithoutPinger(t *testing.T) {
	h := newTestServer(&stubGrid{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("down") }

func TestHealthReportsStorageDown(t *testing.T) {
	h := NewRouter(NewHandlers(&stubGrid{}), RouterConfig{Pinger: failingPinger{}})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
