package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/service"
)

type listingResponse struct {
	*entity.Listing
	PrimaryImageURL string `json:"primary_image_url"`
}

func newListingResponse(l *entity.Listing) listingResponse {
	return listingResponse{Listing: l, PrimaryImageURL: l.PrimaryImageURL()}
}

// GET /api/listings?q=&category=&page=
func (h *Handler) searchListings(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}

	result, err := h.listings.Search(c.Request.Context(), c.Query("q"), c.Query("category"), page)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]listingResponse, len(result.Items))
	for i := range result.Items {
		items[i] = newListingResponse(&result.Items[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"total_count": result.TotalCount,
		"total_pages": result.TotalPages,
		"page":        result.Page,
		"per_page":    result.PerPage,
	})
}

// GET /api/listings/:slug
func (h *Handler) getListing(c *gin.Context) {
	listing, err := h.listings.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListingResponse(listing))
}

// POST /api/listings
func (h *Handler) createListing(c *gin.Context) {
	images, closeAll, ok := formImages(c)
	if !ok {
		return
	}
	defer closeAll()

	listing, err := h.listings.Create(c.Request.Context(), accountID(c), listingInput(c), images)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newListingResponse(listing))
}

// PUT /api/listings/:id
func (h *Handler) updateListing(c *gin.Context) {
	images, closeAll, ok := formImages(c)
	if !ok {
		return
	}
	defer closeAll()

	listing, err := h.listings.Update(c.Request.Context(), accountID(c), c.Param("id"), listingInput(c), images)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListingResponse(listing))
}

// DELETE /api/listings/:id
func (h *Handler) deleteListing(c *gin.Context) {
	if err := h.listings.Delete(c.Request.Context(), accountID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func listingInput(c *gin.Context) service.ListingInput {
	return service.ListingInput{
		Title:             c.PostForm("title"),
		Description:       c.PostForm("description"),
		Category:          c.PostForm("category"),
		Condition:         c.PostForm("condition"),
		Price:             c.PostForm("price"),
		Quantity:          c.PostForm("quantity"),
		YearOfManufacture: c.PostForm("year_of_manufacture"),
		Brand:             c.PostForm("brand"),
		Model:             c.PostForm("model"),
		LengthCM:          c.PostForm("length_cm"),
		WidthCM:           c.PostForm("width_cm"),
		HeightCM:          c.PostForm("height_cm"),
		WeightKG:          c.PostForm("weight_kg"),
		Material:          c.PostForm("material"),
		Color:             c.PostForm("color"),
		OriginalPackaging: checkbox(c.PostForm("original_packaging")),
		ManualIncluded:    checkbox(c.PostForm("manual_included")),
		WorkingCondition:  c.PostForm("working_condition_description"),
	}
}

func checkbox(v string) bool {
	switch v {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// formImages opens the "images" parts. On failure it has already written
// the response.
func formImages(c *gin.Context) ([]service.Upload, func(), bool) {
	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, true
	}
	if err != nil {
		badRequest(c, "Malformed upload.")
		return nil, nil, false
	}

	uploads, closeAll, err := openUploads(form.File["images"]...)
	if err != nil {
		badRequest(c, "Malformed upload.")
		return nil, nil, false
	}
	return uploads, closeAll, true
}
