package http

import (
	"net/http"
	"strings"

	"backoffice/internal/entities"
	"backoffice/internal/usecases"

	"github.com/gin-gonic/gin"
)

// productView adds the size label used by the edit form.
type productView struct {
	entities.Product
	DisplaySize string `json:"tamanho_exibicao"`
}

func newProductView(p entities.Product) productView {
	return productView{Product: p, DisplaySize: usecases.DisplaySize(p.SizeKind, p.Size)}
}

func (h *Handler) ListProducts(c *gin.Context) {
	company, err := tenantFor(c, c.Query("empresa"))
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.products.List(c.Request.Context(), company, parsePagination(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	views := make([]productView, 0, len(page.Items))
	for _, p := range page.Items {
		views = append(views, newProductView(p))
	}
	c.JSON(http.StatusOK, entities.Page[productView]{
		Items:   views,
		Total:   page.Total,
		Page:    page.Page,
		Limit:   page.Limit,
		HasNext: page.HasNext,
		HasPrev: page.HasPrev,
	})
}

func (h *Handler) CountProducts(c *gin.Context) {
	company, err := tenantFor(c, c.Query("empresa"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": h.products.Count(c.Request.Context(), company)})
}

func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.ownedProduct(c, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newProductView(*product))
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var in entities.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	company, err := tenantFor(c, in.Company)
	if err != nil {
		h.fail(c, err)
		return
	}
	in.Company = company
	in.Title = cleanText(in.Title, MaxTextLength)
	in.Description = cleanText(in.Description, MaxDescriptionLength)

	created, err := h.products.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newProductView(*created))
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	var patch entities.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	existing, err := h.ownedProduct(c, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	patch.Title = cleanPtr(patch.Title, MaxTextLength)
	patch.Description = cleanPtr(patch.Description, MaxDescriptionLength)

	updated, err := h.products.Update(c.Request.Context(), existing.ID, patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newProductView(*updated))
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	existing, err := h.ownedProduct(c, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.products.Delete(c.Request.Context(), existing.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UploadProductImage stores an image for a product form that has not been saved yet.
func (h *Handler) UploadProductImage(c *gin.Context) {
	company, err := tenantFor(c, c.PostForm("empresa"))
	if err != nil {
		h.fail(c, err)
		return
	}
	upload, closeFile, err := formImage(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer closeFile()

	url, err := h.products.UploadImage(c.Request.Context(), company, upload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// DeleteProductImage removes a previously uploaded image (?url=) of the caller's company.
func (h *Handler) DeleteProductImage(c *gin.Context) {
	company, err := tenantFor(c, "")
	if err != nil {
		h.fail(c, err)
		return
	}
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image url is required"})
		return
	}
	if !imageOfCompany(h.products, url, company) {
		h.fail(c, errForeignTenant)
		return
	}
	if err := h.products.DeleteImage(c.Request.Context(), url); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ReplaceProductImage(c *gin.Context) {
	existing, err := h.ownedProduct(c, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	upload, closeFile, err := formImage(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer closeFile()

	updated, err := h.products.ReplaceImage(c.Request.Context(), existing.ID, upload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newProductView(*updated))
}

func (h *Handler) ownedProduct(c *gin.Context, id string) (*entities.Product, error) {
	company, err := tenantFor(c, "")
	if err != nil {
		return nil, err
	}
	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if product == nil || product.Company != company {
		return nil, &entities.NotFoundError{Resource: "product", ID: id}
	}
	return product, nil
}

// formImage reads the multipart "file" field.
func formImage(c *gin.Context) (usecases.ImageUpload, func(), error) {
	header, err := c.FormFile("file")
	if err != nil {
		return usecases.ImageUpload{}, nil, entities.NewValidationError("file", "image file is required")
	}
	f, err := header.Open()
	if err != nil {
		return usecases.ImageUpload{}, nil, err
	}
	return usecases.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

// imageOfCompany accepts only plain object paths under "<company>/".
func imageOfCompany(products *usecases.ProductService, url, company string) bool {
	path := products.ImagePath(url)
	if !strings.HasPrefix(path, company+"/") {
		return false
	}
	for _, seg := range strings.Split(path[len(company)+1:], "/") {
		if seg == "" || seg == "." || seg == ".." || strings.Contains(seg, "\\") {
			return false
		}
	}
	return true
}
