package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"backoffice/internal/entities"

	"github.com/gin-gonic/gin"
)

// GetClients serves one client when ?id= is given, a page of the tenant's clients otherwise.
func (h *Handler) GetClients(c *gin.Context) {
	company, err := tenantFor(c, c.Query("empresa"))
	if err != nil {
		h.fail(c, err)
		return
	}

	if rawID := c.Query("id"); rawID != "" {
		client, err := h.ownedClient(c, company, rawID)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, client)
		return
	}

	page, err := h.clients.List(c.Request.Context(), company, parsePagination(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) CountClients(c *gin.Context) {
	company, err := tenantFor(c, c.Query("empresa"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": h.clients.Count(c.Request.Context(), company)})
}

func (h *Handler) CreateClient(c *gin.Context) {
	var in entities.ClientInput
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
	in.Name = cleanText(in.Name, MaxTextLength)
	in.Phone = cleanText(in.Phone, MaxTextLength)

	created, err := h.clients.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type clientUpdateRequest struct {
	ID json.Number `json:"id"`
	entities.ClientPatch
}

// UpdateClient takes the id from the body or from ?id=.
func (h *Handler) UpdateClient(c *gin.Context) {
	var req clientUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	rawID := req.ID.String()
	if rawID == "" {
		rawID = c.Query("id")
	}
	if rawID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Client id is required"})
		return
	}
	company, err := tenantFor(c, "")
	if err != nil {
		h.fail(c, err)
		return
	}
	if req.Company != nil {
		if _, err := tenantFor(c, *req.Company); err != nil {
			h.fail(c, err)
			return
		}
	}
	existing, err := h.ownedClient(c, company, rawID)
	if err != nil {
		h.fail(c, err)
		return
	}

	patch := req.ClientPatch
	patch.Name = cleanPtr(patch.Name, MaxTextLength)
	patch.Phone = cleanPtr(patch.Phone, MaxTextLength)
	patch.Company = cleanPtr(patch.Company, MaxTextLength)

	updated, err := h.clients.Update(c.Request.Context(), existing.ID, patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteClient(c *gin.Context) {
	rawID := c.Query("id")
	if rawID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Client id is required"})
		return
	}
	company, err := tenantFor(c, "")
	if err != nil {
		h.fail(c, err)
		return
	}
	existing, err := h.ownedClient(c, company, rawID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.clients.Delete(c.Request.Context(), existing.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ownedClient loads a client of company. Rows of other tenants read as not found.
func (h *Handler) ownedClient(c *gin.Context, company, rawID string) (*entities.Client, error) {
	id, err := parseClientID(rawID)
	if err != nil {
		return nil, err
	}
	client, err := h.clients.GetByID(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if client == nil || client.Company != company {
		return nil, &entities.NotFoundError{Resource: "client", ID: strconv.FormatInt(id, 10)}
	}
	return client, nil
}
