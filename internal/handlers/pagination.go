package handlers

import (
	"errors"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/store"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

var errInvalidPagination = errors.New("invalid pagination params")

func parsePaginationParams(pageStr, limitStr string) (store.Page, error) {
	page := int64(1)
	limit := int64(defaultPageLimit)

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return store.Page{}, errInvalidPagination
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return store.Page{}, errInvalidPagination
		}
		limit = l
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	// (page-1)*limit must stay addressable as a skip offset.
	if page-1 > math.MaxInt64/limit {
		return store.Page{}, errInvalidPagination
	}

	return store.Page{Page: page, Limit: limit}, nil
}

func paginationBody(page store.Page, total int64) gin.H {
	pages := int64(0)
	if page.Limit > 0 {
		pages = int64(math.Ceil(float64(total) / float64(page.Limit)))
	}
	return gin.H{
		"page":  page.Page,
		"limit": page.Limit,
		"total": total,
		"pages": pages,
	}
}
