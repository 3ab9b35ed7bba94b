package usecases

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"backoffice/internal/entities"
	"backoffice/internal/interfaces"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImageBytes caps product image uploads.
const MaxImageBytes = 5 << 20

type ProductService struct {
	repo   interfaces.ProductRepository
	blobs  interfaces.BlobStore
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

func NewProductService(repo interfaces.ProductRepository, blobs interfaces.BlobStore, logger *zap.Logger) *ProductService {
	return &ProductService{
		repo:   repo,
		blobs:  blobs,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
		logger: logger.With(zap.String("component", "product_service")),
	}
}

func (s *ProductService) Count(ctx context.Context, company string) int {
	n, err := s.repo.Count(ctx, company)
	if err != nil {
		s.logger.Warn("count failed, reporting 0", zap.String("company", company), zap.Error(err))
		return 0
	}
	return n
}

func (s *ProductService) List(ctx context.Context, company string, p entities.Pagination) (entities.Page[entities.Product], error) {
	p = p.Normalize()
	if isBlank(company) {
		return entities.Page[entities.Product]{}, entities.NewValidationError("empresa", "company is required")
	}
	products, total, err := s.repo.List(ctx, company, p)
	if err != nil {
		s.logger.Error("list failed", zap.String("company", company), zap.Error(err))
		return entities.Page[entities.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return entities.NewPage(products, total, p), nil
}

// GetByID returns nil, nil when the product does not exist.
func (s *ProductService) GetByID(ctx context.Context, id string) (*entities.Product, error) {
	if err := validateProductID(id); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("get failed", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

func (s *ProductService) Create(ctx context.Context, in entities.ProductInput) (*entities.Product, error) {
	company, err := validateCompany(in.Company)
	if err != nil {
		return nil, err
	}
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, entities.NewValidationError("descricao", "description is required")
	}
	price, err := NormalizePrice(in.Price)
	if err != nil {
		return nil, err
	}
	kind, err := normalizeSizeKind(in.SizeKind)
	if err != nil {
		return nil, err
	}
	size, err := NormalizeSize(kind, in.Size)
	if err != nil {
		return nil, err
	}
	status, err := normalizeStatus(in.Status)
	if err != nil {
		return nil, err
	}

	product := entities.Product{
		CreatedAt:   entities.NewTimestamp(s.now()),
		Title:       title,
		Description: description,
		Price:       price,
		SizeKind:    kind,
		Size:        size,
		Status:      status,
		PhotoURL:    entities.StringPtr(strings.TrimSpace(in.PhotoURL)),
		Company:     company,
	}
	created, err := s.repo.Insert(ctx, product)
	if err != nil {
		s.logger.Error("create failed", zap.String("company", company), zap.Error(err))
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.Info("product created", zap.String("id", created.ID), zap.String("company", company))
	return created, nil
}

// Update validates the provided fields only. The size kind of the stored row
// is used when the patch changes the size alone.
func (s *ProductService) Update(ctx context.Context, id string, patch entities.ProductPatch) (*entities.Product, error) {
	if err := validateProductID(id); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, entities.NewValidationError("", "no fields to update")
	}

	fields := map[string]any{}
	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		fields["titulo"] = title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if description == "" {
			return nil, entities.NewValidationError("descricao", "description cannot be empty")
		}
		fields["descricao"] = description
	}
	if patch.Price != nil {
		price, err := NormalizePrice(*patch.Price)
		if err != nil {
			return nil, err
		}
		fields["valor"] = price
	}
	if patch.Status != nil {
		status, err := normalizeStatus(*patch.Status)
		if err != nil {
			return nil, err
		}
		fields["status"] = status
	}
	if patch.PhotoURL != nil {
		fields["url_foto"] = entities.StringPtr(strings.TrimSpace(*patch.PhotoURL))
	}

	var kind string
	if patch.SizeKind != nil {
		k, err := normalizeSizeKind(*patch.SizeKind)
		if err != nil {
			return nil, err
		}
		kind = k
		fields["tipo_tamanho"] = k
	}
	if patch.Size != nil {
		if kind == "" {
			current, err := s.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if current == nil {
				return nil, &entities.NotFoundError{Resource: "product", ID: id}
			}
			kind = current.SizeKind
		}
		size, err := NormalizeSize(kind, *patch.Size)
		if err != nil {
			return nil, err
		}
		fields["tamanho"] = size
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		s.logger.Error("update failed", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload product %s: %w", id, err)
	}
	if updated == nil {
		return nil, &entities.NotFoundError{Resource: "product", ID: id}
	}
	return updated, nil
}

// Delete removes the product image first. A failed image delete is logged and
// does not stop the row delete.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return &entities.NotFoundError{Resource: "product", ID: id}
	}
	if url := entities.StringValue(existing.PhotoURL); url != "" {
		if err := s.DeleteImage(ctx, url); err != nil {
			s.logger.Warn("image delete failed, orphaning blob", zap.String("id", id), zap.String("url", url), zap.Error(err))
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("delete failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	s.logger.Info("product deleted", zap.String("id", id))
	return nil
}

// ImageUpload is an image file received from the caller.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// UploadImage stores the image under <company>/<uuid>.<ext> and returns its public URL.
func (s *ProductService) UploadImage(ctx context.Context, company string, img ImageUpload) (string, error) {
	company, err := validateCompany(company)
	if err != nil {
		return "", err
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(img.Filename))
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", entities.NewValidationError("file", "file must be an image")
	}
	data, err := io.ReadAll(io.LimitReader(img.Body, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", entities.NewValidationError("file", "file is empty")
	}
	if len(data) > MaxImageBytes {
		return "", entities.NewValidationError("file", "image exceeds 5MB")
	}

	path := company + "/" + s.newID() + imageExtension(img.Filename, contentType)
	if err := s.blobs.Upload(ctx, path, contentType, data); err != nil {
		s.logger.Error("image upload failed", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("upload image: %w", err)
	}
	s.logger.Info("image uploaded", zap.String("path", path), zap.Int("bytes", len(data)))
	return s.blobs.PublicURL(path), nil
}

// DeleteImage removes the blob behind a public URL. Anything that is not a
// public URL of the bucket is used as the object path itself.
func (s *ProductService) DeleteImage(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	path := s.blobs.ObjectPath(url)
	if err := s.blobs.Remove(ctx, path); err != nil {
		return fmt.Errorf("delete image %s: %w", path, err)
	}
	s.logger.Info("image deleted", zap.String("path", path))
	return nil
}

// ReplaceImage uploads a new image, points the product at it and then removes
// the old blob. If the row update fails the new blob is removed again. The
// steps are not atomic: a crash in between can orphan a blob.
func (s *ProductService) ReplaceImage(ctx context.Context, id string, img ImageUpload) (*entities.Product, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &entities.NotFoundError{Resource: "product", ID: id}
	}

	newURL, err := s.UploadImage(ctx, current.Company, img)
	if err != nil {
		return nil, err
	}

	updated, err := s.Update(ctx, id, entities.ProductPatch{PhotoURL: &newURL})
	if err != nil {
		s.logger.Error("row update failed after upload, removing new image",
			zap.String("id", id), zap.String("url", newURL), zap.Error(err))
		if cerr := s.DeleteImage(ctx, newURL); cerr != nil {
			s.logger.Error("compensation failed, new image orphaned",
				zap.String("id", id), zap.String("url", newURL), zap.Error(cerr))
		}
		return nil, err
	}

	if old := entities.StringValue(current.PhotoURL); old != "" && old != newURL {
		if err := s.DeleteImage(ctx, old); err != nil {
			s.logger.Warn("old image delete failed, orphaning blob",
				zap.String("id", id), zap.String("url", old), zap.Error(err))
		}
	}
	return updated, nil
}

func imageExtension(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// ImagePath returns the object path a public image URL points at.
func (s *ProductService) ImagePath(url string) string {
	return s.blobs.ObjectPath(strings.TrimSpace(url))
}
