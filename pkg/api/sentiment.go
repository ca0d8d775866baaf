package api

import (
	"bytes"
	"context"
	"net/http"

	"github.com/alphaflow/blobkit/pkg/auth"
	"github.com/alphaflow/blobkit/pkg/errors"
	"github.com/alphaflow/blobkit/pkg/httpservice"
	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/alphaflow/blobkit/pkg/report"
	"github.com/alphaflow/blobkit/pkg/sentiment"
	"github.com/gin-gonic/gin"
)

// IndexFetcher returns the sentiment table, or nil when the upstream refused.
type IndexFetcher interface {
	FetchIndex(ctx context.Context) (*sentiment.Table, error)
}

// SentimentHandler serves the fear & greed index as JSON or CSV.
type SentimentHandler struct {
	fetcher IndexFetcher
	tokens  *auth.TokenService
	logger  logging.Logger
}

func NewSentimentHandler(fetcher IndexFetcher, tokens *auth.TokenService, logger logging.Logger) *SentimentHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SentimentHandler{fetcher: fetcher, tokens: tokens, logger: logger}
}

type sentimentQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=json csv"`
}

func (h *SentimentHandler) Register(router *gin.Engine) {
	v1 := apiGroup(router, h.tokens, h.logger)
	read, _ := scopes(h.tokens, h.logger)
	v1.GET("/sentiment", read, httpservice.Wrap("sentiment.get", h.get))
}

func (h *SentimentHandler) get(c *gin.Context) error {
	var q sentimentQuery
	if !httpservice.BindQuery(c, &q) {
		return nil
	}

	table, err := h.fetcher.FetchIndex(c.Request.Context())
	if err != nil {
		return errors.NewAppErrorWithErr(errors.ErrorCodeUpstream, "Failed to fetch sentiment index", http.StatusBadGateway, err)
	}
	if table == nil {
		return errors.NewUpstreamError("Sentiment index is unavailable")
	}

	if q.Format == "csv" {
		var buf bytes.Buffer
		if err := report.WriteCSV(&buf, table); err != nil {
			return err
		}
		c.Header("Content-Disposition", `attachment; filename="fear_greed_index.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
		return nil
	}

	c.JSON(http.StatusOK, table)
	return nil
}
