package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nitesh/place_explorer/internal/config"
	"github.com/nitesh/place_explorer/internal/filter"
	"github.com/nitesh/place_explorer/internal/geo"
	"github.com/nitesh/place_explorer/internal/logger"
	"github.com/nitesh/place_explorer/internal/metrics"
	"github.com/nitesh/place_explorer/internal/service"
)

const (
	healthTimeout             = 2 * time.Second
	statusClientClosedRequest = 499
)

type Handler struct {
	svc        *service.Service
	logger     *slog.Logger
	normalizer *filter.Normalizer
}

// NewHandler builds the HTTP handler. The engine locales are used to
// negotiate Accept-Language when no locale is given in the query.
func NewHandler(svc *service.Service, cfg config.Engine, l *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.OrDefault(l), normalizer: filter.NewNormalizer(cfg)}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")
	{
		v1.GET("/places/map", h.Map)
		v1.GET("/places", h.List)
		v1.GET("/tags", h.Tags)
	}
}

// Map: GET /v1/places/map?lat=48.85&lng=2.35&radius=200000&tags=nasa
func (h *Handler) Map(c *gin.Context) {
	raw, err := h.parseFilter(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.svc.Map(c.Request.Context(), raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{
			"count":  len(res.Items),
			"limit":  res.Limit,
			"cached": res.Cached,
		},
		"data": res.Items,
	})
}

// List: GET /v1/places?mode=worldwide&tags=nasa&limit=20&cursor=...
func (h *Handler) List(c *gin.Context) {
	raw, err := h.parseFilter(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.svc.List(c.Request.Context(), raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{
			"count":      len(page.Items),
			"hasMore":    page.HasMore,
			"nextCursor": page.NextCursor,
		},
		"data": page.Items,
	})
}

// Tags: GET /v1/tags?locale=en
func (h *Handler) Tags(c *gin.Context) {
	locale := h.locale(c)
	tags, err := h.svc.Tags(c.Request.Context(), locale)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(tags)},
		"data": tags,
	})
}

// Health: GET /healthz
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()
	if err := h.svc.Ping(ctx); err != nil {
		h.logger.Warn("health_check_failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) fail(c *gin.Context, err error) {
	var verr *filter.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": filter.ErrValidation.Error(), "fields": verr.Fields})
		return
	}
	if errors.Is(err, context.Canceled) {
		// client closed the request
		c.Status(statusClientClosedRequest)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		h.logger.Warn("request_deadline_exceeded", "path", c.FullPath(), "request_id", logger.RequestIDFrom(c))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "search timed out", "request_id": logger.RequestIDFrom(c)})
		return
	}
	h.logger.Error("request_failed", "path", c.FullPath(), "request_id", logger.RequestIDFrom(c), "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed", "request_id": logger.RequestIDFrom(c)})
}

// parseFilter translates query keys into a filter.Raw. Both short and long
// key names are accepted. Values that do not parse are reported with the
// same codes the normalizer uses.
func (h *Handler) parseFilter(c *gin.Context) (filter.Raw, error) {
	fields := map[string]filter.Code{}
	raw := filter.Raw{
		Mode:   c.Query("mode"),
		Tags:   queryTags(c),
		Locale: h.locale(c),
		Cursor: c.Query("cursor"),
	}

	var ok bool
	if raw.Latitude, ok = queryFloat(c, "lat", "latitude"); !ok {
		fields[filter.FieldCoordinates] = filter.CodeInvalidCoordinates
	}
	if raw.Longitude, ok = queryFloat(c, "lng", "lon", "longitude"); !ok {
		fields[filter.FieldCoordinates] = filter.CodeInvalidCoordinates
	}
	if raw.RadiusMeters, ok = queryFloat(c, "radius", "radiusMeters"); !ok {
		fields[filter.FieldRadius] = filter.CodeInvalidRadius
	}
	if raw.BoundingBox, ok = queryBox(c); !ok {
		fields[filter.FieldBoundingBox] = filter.CodeInvalidBoundingBox
	}
	if s := firstQuery(c, "limit", "pageSize"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			fields[filter.FieldPageSize] = filter.CodeInvalidPageSize
		} else {
			raw.PageSize = &n
		}
	}

	if len(fields) > 0 {
		return filter.Raw{}, &filter.ValidationError{Fields: fields}
	}
	return raw, nil
}

// locale returns the locale query value, or the best supported match of
// Accept-Language. An empty result selects the default locale.
func (h *Handler) locale(c *gin.Context) string {
	if l := c.Query("locale"); l != "" {
		return l
	}
	return h.normalizer.MatchAcceptLanguage(c.GetHeader("Accept-Language"))
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c.Query(k)); v != "" {
			return v
		}
	}
	return ""
}

// queryFloat returns nil when none of the keys is set. ok is false when the
// value is not a finite number.
func queryFloat(c *gin.Context, keys ...string) (*float64, bool) {
	s := firstQuery(c, keys...)
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return &v, true
}

// queryBox reads north/south/east/west. Either all four are given or none.
func queryBox(c *gin.Context) (*geo.Box, bool) {
	keys := []string{"north", "south", "east", "west"}
	vals := make([]float64, len(keys))
	present := 0
	for i, k := range keys {
		v, ok := queryFloat(c, k)
		if !ok {
			return nil, false
		}
		if v != nil {
			vals[i] = *v
			present++
		}
	}
	switch present {
	case 0:
		return nil, true
	case len(keys):
		return &geo.Box{North: vals[0], South: vals[1], East: vals[2], West: vals[3]}, true
	default:
		return nil, false
	}
}

// queryTags accepts repeated tags=, tags[]= and comma separated values.
func queryTags(c *gin.Context) []string {
	var out []string
	for _, key := range []string{"tags", "tags[]"} {
		for _, v := range c.QueryArray(key) {
			for _, t := range strings.Split(v, ",") {
				if t = strings.TrimSpace(t); t != "" {
					out = append(out, t)
				}
			}
		}
	}
	return out
}
