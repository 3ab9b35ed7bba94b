package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"

	"backoffice/internal/entities"
)

var errStoreDown = errors.New("store unavailable")

type fakeClientRepo struct {
	mu       sync.Mutex
	rows     map[int64]entities.Client
	nextID   int64
	countErr error
	listErr  error
	inserts  []entities.Client
	updates  []map[string]any
	deletes  []int64
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{rows: map[int64]entities.Client{}, nextID: 1}
}

func (r *fakeClientRepo) List(_ context.Context, company string, p entities.Pagination) ([]entities.Client, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	var out []entities.Client
	for _, c := range r.rows {
		if c.Company == company {
			out = append(out, c)
		}
	}
	total := len(out)
	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, total, nil
}

func (r *fakeClientRepo) Count(_ context.Context, company string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	n := 0
	for _, c := range r.rows {
		if c.Company == company {
			n++
		}
	}
	return n, nil
}

func (r *fakeClientRepo) GetByID(_ context.Context, id int64) (*entities.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *fakeClientRepo) Insert(_ context.Context, c entities.Client) (*entities.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts = append(r.inserts, c)
	c.ID = r.nextID
	r.nextID++
	r.rows[c.ID] = c
	return &c, nil
}

func (r *fakeClientRepo) Update(_ context.Context, id int64, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, fields)
	c, ok := r.rows[id]
	if !ok {
		return nil
	}
	for col, v := range fields {
		var s *string
		if str, ok := v.(string); ok {
			s = &str
		}
		switch col {
		case "nome":
			c.Name = s
		case "whatsapp":
			c.Phone = s
		case "empresa":
			c.Company = *s
		}
	}
	r.rows[id] = c
	return nil
}

func (r *fakeClientRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, id)
	delete(r.rows, id)
	return nil
}

type fakeProductRepo struct {
	mu        sync.Mutex
	rows      map[string]entities.Product
	ids       []string
	countErr  error
	updateErr error
	updates   []map[string]any
	deletes   []string
}

func newFakeProductRepo(ids ...string) *fakeProductRepo {
	return &fakeProductRepo{rows: map[string]entities.Product{}, ids: ids}
}

func (r *fakeProductRepo) List(_ context.Context, company string, p entities.Pagination) ([]entities.Product, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.Product
	for _, row := range r.rows {
		if row.Company == company {
			out = append(out, row)
		}
	}
	total := len(out)
	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, total, nil
}

func (r *fakeProductRepo) Count(_ context.Context, company string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	n := 0
	for _, row := range r.rows {
		if row.Company == company {
			n++
		}
	}
	return n, nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id string) (*entities.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakeProductRepo) Insert(_ context.Context, p entities.Product) (*entities.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.ids[0]
	r.ids = r.ids[1:]
	r.rows[p.ID] = p
	return &p, nil
}

func (r *fakeProductRepo) Update(_ context.Context, id string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, fields)
	if r.updateErr != nil {
		return r.updateErr
	}
	p := r.rows[id]
	for col, v := range fields {
		switch col {
		case "titulo":
			p.Title = v.(string)
		case "valor":
			p.Price = v.(string)
		case "tamanho":
			p.Size = v.(string)
		case "tipo_tamanho":
			p.SizeKind = v.(string)
		case "status":
			p.Status = v.(string)
		case "url_foto":
			p.PhotoURL = v.(*string)
		}
	}
	r.rows[id] = p
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, id)
	delete(r.rows, id)
	return nil
}

const fakeBlobBase = "https://proj.supabase.co/storage/v1/object/public/disparador/"

type fakeBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	removeErr error
	removed   []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (b *fakeBlobs) Upload(_ context.Context, path, _ string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = data
	return nil
}

func (b *fakeBlobs) Remove(_ context.Context, paths ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, paths...)
	if b.removeErr != nil {
		return b.removeErr
	}
	for _, p := range paths {
		delete(b.objects, p)
	}
	return nil
}

func (b *fakeBlobs) PublicURL(path string) string {
	return fakeBlobBase + path
}

func (b *fakeBlobs) ObjectPath(url string) string {
	return strings.TrimPrefix(url, fakeBlobBase)
}

type fakeUsers struct {
	byEmail map[string]entities.UserRecord
	err     error
}

func (u *fakeUsers) GetByEmail(_ context.Context, email string) (*entities.UserRecord, error) {
	if u.err != nil {
		return nil, u.err
	}
	rec, ok := u.byEmail[email]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (u *fakeUsers) GetByID(_ context.Context, id string) (*entities.UserRecord, error) {
	if u.err != nil {
		return nil, u.err
	}
	for _, rec := range u.byEmail {
		if rec.ID == id {
			r := rec
			return &r, nil
		}
	}
	return nil, nil
}
