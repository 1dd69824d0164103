package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/seahorsehq/seahorse/internal/keyserver"
	"github.com/seahorsehq/seahorse/internal/util"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

// Search Keyserver

type SearchParams struct {
	Q   string `form:"q" json:"q" binding:"required"`
	URI string `form:"uri" json:"uri"`
}

func (s *server) search(c *gin.Context) {
	var params SearchParams
	if err := c.ShouldBindQuery(&params); err != nil {
		writeBindingError(c, err)
		return
	}

	uri := s.deps.Keyserver.Resolve(params.URI)
	op := s.deps.Keyserver.Search(c.Request.Context(), uri, params.Q)

	if s.deps.Store != nil {
		op.OnDone(func(o operation.Operation) {
			if !o.IsSuccessful() {
				return
			}
			if err := s.deps.Store.Put(context.Background(), uri, params.Q, keyserver.Records(o)); err != nil {
				slog.Warn("failed to cache search results", "uri", uri, "pattern", params.Q, "err", err)
			}
		})
	}

	s.register(c, op, "search "+uri+" for "+params.Q)
}

// Fetch Keys

type FetchBody struct {
	Fingerprints []string `json:"fingerprints" binding:"required,min=1,dive,fingerprint"`
	URI          string   `json:"uri"`
	Import       bool     `json:"import"`
}

func (s *server) fetch(c *gin.Context) {
	var body FetchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindingError(c, err)
		return
	}

	fprs := make([]string, len(body.Fingerprints))
	for i, fpr := range body.Fingerprints {
		fprs[i] = util.NormalizeFingerprint(fpr)
	}

	uri := s.deps.Keyserver.Resolve(body.URI)
	op := s.deps.Keyserver.Get(c.Request.Context(), uri, fprs...)

	if body.Import {
		op = operation.Chain("keyserver.fetch", op, func(get operation.Operation) operation.Operation {
			return s.deps.Keys.Import(context.Background(), keyserver.Armor(get)...)
		})
	}

	s.register(c, op, "fetch "+strings.Join(fprs, " ")+" from "+uri)
}

// Search Cache

type SearchCacheParams struct {
	Q     string `form:"q" json:"q" binding:"required"`
	Limit int    `form:"limit" json:"limit" binding:"omitempty,gte=1,lte=100"`
}

func (s *server) searchCache(c *gin.Context) {
	if s.deps.Store == nil {
		c.JSON(http.StatusServiceUnavailable, &ErrorResponse{APIError{
			Code:    http.StatusServiceUnavailable,
			Message: "The listing cache is not enabled",
			Status:  operation.NotSupported.String(),
		}})
		return
	}

	var params SearchCacheParams
	if err := c.ShouldBindQuery(&params); err != nil {
		writeBindingError(c, err)
		return
	}
	if params.Limit == 0 {
		params.Limit = 10
	}

	entries, err := s.deps.Store.Search(c.Request.Context(), params.Q, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
