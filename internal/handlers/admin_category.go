package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/shop"
	"storefront/internal/store"
)

/* =========================
   REQUEST DTOs
========================= */

type createCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	NameNp      string `json:"nameNp" binding:"max=100"`
	Slug        string `json:"slug" binding:"required"`
	Description string `json:"description" binding:"max=500"`
	Image       string `json:"image"`
	ParentID    string `json:"parentId"`
	SortOrder   int    `json:"sortOrder"`
	IsActive    *bool  `json:"isActive"`
}

// updateCategoryRequest treats an empty parentId as "move to the root".
type updateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	NameNp      *string `json:"nameNp" binding:"omitempty,max=100"`
	Slug        *string `json:"slug" binding:"omitempty,min=1"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Image       *string `json:"image"`
	ParentID    *string `json:"parentId"`
	SortOrder   *int    `json:"sortOrder"`
	IsActive    *bool   `json:"isActive"`
}

func parseParentID(c *gin.Context, route, raw string) (*primitive.ObjectID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, "invalid parentId")
		return nil, false
	}
	return &id, true
}

/* =========================
   HANDLERS
========================= */

func CreateCategory(categories *shop.Categories) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /categories"
		defer handlePanic(c, route)

		var req createCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}
		parentID, ok := parseParentID(c, route, req.ParentID)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		category, err := categories.Create(ctx, shop.CategoryInput{
			Name:        req.Name,
			NameNp:      req.NameNp,
			Slug:        req.Slug,
			Description: req.Description,
			Image:       req.Image,
			ParentID:    parentID,
			SortOrder:   req.SortOrder,
			IsActive:    req.IsActive,
		})
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusCreated, "category created", gin.H{"category": category})
	}
}

func UpdateCategory(categories *shop.Categories) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /categories/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		var req updateCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		update := store.CategoryUpdate{
			Name:        req.Name,
			NameNp:      req.NameNp,
			Slug:        req.Slug,
			Description: req.Description,
			Image:       req.Image,
			IsActive:    req.IsActive,
			SortOrder:   req.SortOrder,
		}
		if req.ParentID != nil {
			parentID, ok := parseParentID(c, route, *req.ParentID)
			if !ok {
				return
			}
			update.ParentID = parentID
			update.ClearParent = parentID == nil
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		category, err := categories.Update(ctx, id, update)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "category updated", gin.H{"category": category})
	}
}

// DeleteCategory deactivates the category; products keep their category names.
func DeleteCategory(categories *shop.Categories) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /categories/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if _, err := categories.Deactivate(ctx, id); err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "category deleted", nil)
	}
}
