package api

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 6
	maxLimit     = 100
)

type pageParams struct {
	Page  int
	Limit int
}

func readPageParams(c *gin.Context) pageParams {
	p := pageParams{Page: 1, Limit: defaultLimit}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		p.Limit = v
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// pageLinks builds next and previous URLs by rewriting the page parameter
// of the current request against baseURL
func pageLinks(c *gin.Context, baseURL string, p pageParams, total int64) (next, previous *string) {
	link := func(page int) *string {
		q := c.Request.URL.Query()
		if page <= 1 {
			q.Del("page")
		} else {
			q.Set("page", strconv.Itoa(page))
		}
		u := url.URL{Path: c.Request.URL.Path, RawQuery: q.Encode()}
		s := baseURL + u.String()
		return &s
	}

	if int64(p.Page*p.Limit) < total {
		next = link(p.Page + 1)
	}
	if p.Page > 1 {
		previous = link(p.Page - 1)
	}
	return next, previous
}
