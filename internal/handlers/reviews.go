package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/shop"
	"storefront/internal/store"
)

type createReviewRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Rating    int    `json:"rating" binding:"required,min=1,max=5"`
	Comment   string `json:"comment" binding:"required,max=1000"`
}

type updateReviewRequest struct {
	Rating  *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" binding:"omitempty,max=1000"`
}

type approveReviewRequest struct {
	IsApproved *bool `json:"isApproved" binding:"required"`
}

func parseRatingQuery(c *gin.Context) (int, bool) {
	raw := c.Query("rating")
	if raw == "" {
		return 0, true
	}
	rating, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return rating, true
}

func GetProductReviews(reviews *shop.Reviews) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /reviews/product/:productId"
		defer handlePanic(c, route)

		productID, ok := parseProductID(c, route, c.Param("productId"))
		if !ok {
			return
		}
		page, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		rating, ok := parseRatingQuery(c)
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid rating")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, stats, err := reviews.ListForProduct(ctx, productID, rating, page)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{
			"reviews":    list,
			"stats":      stats,
			"pagination": paginationBody(page, total),
		})
	}
}

func CreateReview(reviews *shop.Reviews) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /reviews"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		var req createReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}
		productID, ok := parseProductID(c, route, req.ProductID)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		review, err := reviews.Create(ctx, userID, productID, req.Rating, req.Comment)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusCreated, "review created", gin.H{"review": review})
	}
}

func UpdateReview(reviews *shop.Reviews) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /reviews/:id"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}
		reviewID, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		var req updateReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		review, err := reviews.Update(ctx, userID, reviewID, req.Rating, req.Comment)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "review updated", gin.H{"review": review})
	}
}

func DeleteReview(reviews *shop.Reviews) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /reviews/:id"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}
		reviewID, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := reviews.Delete(ctx, userID, reviewID); err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "review deleted", nil)
	}
}

func MarkReviewHelpful(reviews *shop.Reviews) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /reviews/:id/helpful"
		defer handlePanic(c, route)

		reviewID, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		review, err := reviews.MarkHelpful(ctx, reviewID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{"helpfulCount": review.HelpfulCount})
	}
}

/* =========================
   ADMIN
========================= */

func GetAllReviews(reviews *shop.Reviews) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /reviews/admin/all"
		defer handlePanic(c, route)

		page, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		filter := store.ReviewFilter{Page: page}
		switch c.Query("isApproved") {
		case "true":
			approved := true
			filter.Approved = &approved
		case "false":
			approved := false
			filter.Approved = &approved
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, err := reviews.AdminList(ctx, filter)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{
			"reviews":    list,
			"pagination": paginationBody(page, total),
		})
	}
}

func ApproveReview(reviews *shop.Reviews) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /reviews/admin/:id/approve"
		defer handlePanic(c, route)

		reviewID, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		var req approveReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		review, err := reviews.SetApproval(ctx, reviewID, *req.IsApproved)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "review moderation updated", gin.H{"review": review})
	}
}
