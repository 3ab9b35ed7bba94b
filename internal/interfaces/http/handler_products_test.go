package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"

	"backoffice/internal/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memProducts struct {
	mu   sync.Mutex
	rows map[string]entities.Product
}

func (m *memProducts) List(_ context.Context, company string, _ entities.Pagination) ([]entities.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.Product
	for _, p := range m.rows {
		if p.Company == company {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *memProducts) Count(ctx context.Context, company string) (int, error) {
	_, n, err := m.List(ctx, company, entities.Pagination{})
	return n, err
}

func (m *memProducts) GetByID(_ context.Context, id string) (*entities.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memProducts) Insert(_ context.Context, p entities.Product) (*entities.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.NewString()
	m.rows[p.ID] = p
	return &p, nil
}

func (m *memProducts) Update(_ context.Context, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.rows[id]
	for col, v := range fields {
		switch col {
		case "titulo":
			p.Title = v.(string)
		case "valor":
			p.Price = v.(string)
		case "tamanho":
			p.Size = v.(string)
		case "url_foto":
			p.PhotoURL = v.(*string)
		}
	}
	m.rows[id] = p
	return nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

type storageCall struct {
	method string
	path   string
	body   string
}

// storageRecorder stands in for the object storage API and accepts everything.
type storageRecorder struct {
	mu    sync.Mutex
	calls []storageCall
}

func (s *storageRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.calls = append(s.calls, storageCall{method: r.Method, path: r.URL.Path, body: string(b)})
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{}`))
}

func (s *storageRecorder) recorded() []storageCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storageCall(nil), s.calls...)
}

// imageForm builds a multipart body with an image "file" part, or without any
// file when filename is empty.
func imageForm(t *testing.T, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (a *testApp) upload(t *testing.T, path, token, filename string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := imageForm(t, filename)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) seedProduct(t *testing.T, company, photo string) entities.Product {
	t.Helper()
	p, err := a.products.Insert(context.Background(), entities.Product{
		Title:    "Colar",
		Price:    "50.00",
		SizeKind: entities.SizeKindCentimeters,
		Size:     "45",
		Status:   entities.ProductStatusActivated,
		PhotoURL: entities.StringPtr(photo),
		Company:  company,
	})
	require.NoError(t, err)
	return *p
}

func TestProductsAreScopedToTenant(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "ana@acme.com")

	w := app.do(t, http.MethodPost, "/api/produtos", token, map[string]string{
		"titulo":       "Anel Lua",
		"descricao":    "Prata 925",
		"valor":        "1.299,90",
		"tipo_tamanho": "anel",
		"tamanho":      "12",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		entities.Product
		DisplaySize string `json:"tamanho_exibicao"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "acme", created.Company)
	require.Equal(t, "1299.90", created.Price)
	require.Equal(t, "12", created.Size)
	require.Equal(t, "custom-menos-12", created.DisplaySize)

	w = app.do(t, http.MethodGet, "/api/produtos/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"tamanho_exibicao":"custom-menos-12"`)

	w = app.do(t, http.MethodGet, "/api/produtos", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"tamanho_exibicao":"custom-menos-12"`)

	require.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/produtos?empresa=globex", token, nil).Code)
	require.Equal(t, http.StatusForbidden, app.do(t, http.MethodPost, "/api/produtos", token, map[string]string{
		"titulo": "Brinco", "descricao": "Ouro", "valor": "10", "tipo_tamanho": "cm", "tamanho": "2", "empresa": "globex",
	}).Code)

	foreign := app.seedProduct(t, "globex", "")
	require.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/api/produtos/"+foreign.ID, token, nil).Code)
	require.Equal(t, http.StatusNotFound,
		app.do(t, http.MethodPut, "/api/produtos/"+foreign.ID, token, map[string]string{"titulo": "Roubado"}).Code)
	require.Equal(t, http.StatusNotFound, app.do(t, http.MethodDelete, "/api/produtos/"+foreign.ID, token, nil).Code)
	require.Equal(t, http.StatusNotFound, app.upload(t, "/api/produtos/"+foreign.ID+"/imagem", token, "novo.png").Code)
	stored, err := app.products.GetByID(context.Background(), foreign.ID)
	require.NoError(t, err)
	require.Equal(t, "Colar", stored.Title)

	w = app.do(t, http.MethodPut, "/api/produtos/"+created.ID, token, map[string]string{"valor": "0.005"})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = app.do(t, http.MethodPatch, "/api/produtos/"+created.ID, token, map[string]string{"tamanho": "custom-mais-25"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"tamanho_exibicao":"custom-mais-25"`)

	w = app.do(t, http.MethodGet, "/api/produtos/count", token, nil)
	require.JSONEq(t, `{"count":1}`, w.Body.String())

	require.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/api/produtos/not-a-uuid", token, nil).Code)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodDelete, "/api/produtos/"+created.ID, token, nil).Code)
	require.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/api/produtos/"+created.ID, token, nil).Code)
}

func TestProductImageUploadAndReplace(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "ana@acme.com")

	w := app.upload(t, "/api/produtos/imagem", token, "foto.png")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var uploaded struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	require.True(t, strings.HasPrefix(uploaded.URL, app.blobBase+"acme/"), uploaded.URL)
	require.True(t, strings.HasSuffix(uploaded.URL, ".png"), uploaded.URL)

	calls := app.storage.recorded()
	require.Len(t, calls, 1)
	require.Equal(t, http.MethodPost, calls[0].method)
	require.True(t, strings.HasPrefix(calls[0].path, "/storage/v1/object/disparador/acme/"), calls[0].path)

	require.Equal(t, http.StatusBadRequest, app.upload(t, "/api/produtos/imagem", token, "").Code)

	product := app.seedProduct(t, "acme", app.blobBase+"acme/old.png")
	require.Equal(t, http.StatusBadRequest, app.upload(t, "/api/produtos/"+product.ID+"/imagem", token, "").Code)

	w = app.upload(t, "/api/produtos/"+product.ID+"/imagem", token, "nova.png")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var replaced entities.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &replaced))
	require.True(t, strings.HasPrefix(entities.StringValue(replaced.PhotoURL), app.blobBase+"acme/"))
	require.NotContains(t, entities.StringValue(replaced.PhotoURL), "old.png")

	calls = app.storage.recorded()
	last := calls[len(calls)-1]
	require.Equal(t, http.MethodDelete, last.method)
	require.JSONEq(t, `{"prefixes":["acme/old.png"]}`, last.body)
}

func TestDeleteProductImageStaysInCompany(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "ana@acme.com")
	remove := func(target string) int {
		return app.do(t, http.MethodDelete, "/api/produtos/imagem?url="+url.QueryEscape(target), token, nil).Code
	}

	require.Equal(t, http.StatusBadRequest, app.do(t, http.MethodDelete, "/api/produtos/imagem", token, nil).Code)

	rejected := []string{
		app.blobBase + "globex/x.png",
		"globex/x.png",
		"acme/../globex/x.png",
		app.blobBase + "acme/%2e%2e/globex/x.png",
		"acme/./x.png",
		"acme//x.png",
		"acme/",
		"acmecorp/x.png",
	}
	for _, target := range rejected {
		require.Equal(t, http.StatusForbidden, remove(target), target)
	}
	require.Empty(t, app.storage.recorded(), "rejected paths never reach storage")

	require.Equal(t, http.StatusOK, remove(app.blobBase+"acme/x.png"))
	calls := app.storage.recorded()
	require.Len(t, calls, 1)
	require.Equal(t, http.MethodDelete, calls[0].method)
	require.JSONEq(t, `{"prefixes":["acme/x.png"]}`, calls[0].body)
}
