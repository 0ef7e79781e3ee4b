package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vizlet/vizlet/internal/controller"
	"github.com/vizlet/vizlet/internal/fetch"
	"github.com/vizlet/vizlet/internal/logging"
	"github.com/vizlet/vizlet/internal/monitoring"
	"github.com/vizlet/vizlet/internal/sandbox"
	"github.com/vizlet/vizlet/internal/store"
	"github.com/vizlet/vizlet/internal/theme"
	"github.com/vizlet/vizlet/internal/types"
	"github.com/vizlet/vizlet/internal/utils"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	store      *store.Store
	controller *controller.Controller
	fetcher    fetch.Fetcher
	host       *sandbox.Host
	metrics    *monitoring.Metrics
	logger     *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(
	st *store.Store,
	ctrl *controller.Controller,
	fetcher fetch.Fetcher,
	host *sandbox.Host,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Handlers {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Handlers{
		store:      st,
		controller: ctrl,
		fetcher:    fetcher,
		host:       host,
		metrics:    metrics,
		logger:     logger.Component("http"),
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Vizlet Widget Renderer",
		"version": "0.2.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"sandbox": h.host.Stats(),
		"store":   gin.H{"connected": h.store != nil},
	})
}

// renderRequest is the body for render and document endpoints.
type renderRequest struct {
	WidgetID        string              `json:"widget_id"`
	ComponentSource string              `json:"component_source" binding:"required"`
	ComponentKind   types.ComponentKind `json:"component_kind"`
	DataSource      types.DataSource    `json:"data_source"`
	Theme           theme.Theme         `json:"theme"`
	Title           string              `json:"title"`
	WidgetIndex     int                 `json:"widget_index"`
	ThemeOverrides  *theme.Overrides    `json:"theme_overrides"`
	CachedData      any                 `json:"cached_data"`
	Retry           bool                `json:"retry"`
}

func (r *renderRequest) spec() (types.WidgetSpec, error) {
	if err := utils.ValidateComponentSource(r.ComponentSource); err != nil {
		return types.WidgetSpec{}, err
	}
	if err := utils.ValidateTitle(r.Title); err != nil {
		return types.WidgetSpec{}, err
	}
	if err := utils.ValidateID(r.WidgetID, "widget_id", false); err != nil {
		return types.WidgetSpec{}, err
	}

	id := r.WidgetID
	if id == "" {
		id = uuid.New().String()
	}
	return types.WidgetSpec{
		ID:              id,
		ComponentSource: r.ComponentSource,
		ComponentKind:   r.ComponentKind,
		DataSource:      r.DataSource,
		Theme:           r.Theme,
		Title:           r.Title,
		WidgetIndex:     r.WidgetIndex,
		ThemeOverrides:  r.ThemeOverrides,
		CachedData:      r.CachedData,
	}, nil
}

// Render executes a widget end to end and returns the outcome
func (h *Handlers) Render(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spec, err := req.spec()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var outcome *types.RenderOutcome
	if req.Retry {
		outcome = h.controller.Retry(c.Request.Context(), spec)
	} else {
		outcome = h.controller.Render(c.Request.Context(), spec)
	}
	h.recordOutcome(outcome)

	c.JSON(http.StatusOK, gin.H{
		"widget_id": spec.ID,
		"outcome":   outcome,
	})
}

// Document builds and returns the sandbox document for a widget
func (h *Handlers) Document(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spec, err := req.spec()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	html, err := h.controller.Document(c.Request.Context(), spec)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	h.metrics.RecordDocumentBuild(string(theme.Normalize(spec.Theme)), false)

	c.JSON(http.StatusOK, gin.H{
		"widget_id": spec.ID,
		"html":      html,
	})
}

// CreateDashboard creates a dashboard
func (h *Handlers) CreateDashboard(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Theme string `json:"theme"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d := &store.Dashboard{
		ID:    uuid.New().String(),
		Name:  req.Name,
		Theme: string(theme.Normalize(theme.Theme(req.Theme))),
	}
	if err := h.store.SaveDashboard(d); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, d)
}

// ListDashboards lists all dashboards
func (h *Handlers) ListDashboards(c *gin.Context) {
	dashboards, err := h.store.ListDashboards()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dashboards": dashboards})
}

// DashboardWidgets lists a dashboard's widgets with cached data attached
func (h *Handlers) DashboardWidgets(c *gin.Context) {
	dashboardID := c.Param("id")
	if err := utils.ValidateID(dashboardID, "dashboard_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	widgets, err := h.store.WidgetsWithCache(dashboardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"widgets": widgets})
}

// RefreshDashboard re-fetches live data for every widget on a dashboard
// and updates the cache. Failures stay per-widget.
func (h *Handlers) RefreshDashboard(c *gin.Context) {
	dashboardID := c.Param("id")
	if err := utils.ValidateID(dashboardID, "dashboard_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	widgets, err := h.store.WidgetsWithCache(dashboardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		refreshed int
	)
	failures := map[string]string{}
	fail := func(widgetID, msg string) {
		mu.Lock()
		failures[widgetID] = msg
		mu.Unlock()
	}

	for _, w := range widgets {
		src, err := parseSource(w.SourceJSON)
		if err != nil || src.Kind != types.SourceLive {
			continue
		}

		wg.Add(1)
		go func(widgetID string, src types.DataSource) {
			defer wg.Done()

			timer := monitoring.NewFetchTimer(h.metrics, src.Config.SourceID)
			raw, err := h.fetcher.Fetch(c.Request.Context(), src.Config)
			if err != nil {
				timer.Stop("error")
				fail(widgetID, err.Error())
				h.logger.Warn("refresh fetch failed",
					zap.String("widget_id", widgetID),
					zap.Error(err))
				return
			}
			timer.Stop("success")

			dataJSON, err := toJSON(raw)
			if err != nil {
				fail(widgetID, err.Error())
				return
			}
			if err := h.store.UpsertCache(widgetID, dataJSON); err != nil {
				fail(widgetID, err.Error())
				return
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
		}(w.ID, src)
	}
	wg.Wait()

	c.JSON(http.StatusOK, gin.H{
		"dashboard_id": dashboardID,
		"refreshed":    refreshed,
		"failures":     failures,
		"refreshed_at": time.Now().UTC(),
	})
}

// saveWidgetRequest is the body for widget creation and update.
type saveWidgetRequest struct {
	ID              string              `json:"id"`
	DashboardID     string              `json:"dashboard_id" binding:"required"`
	Title           string              `json:"title"`
	ComponentSource string              `json:"component_source" binding:"required"`
	ComponentKind   types.ComponentKind `json:"component_kind"`
	DataSource      types.DataSource    `json:"data_source"`
	Position        int                 `json:"position"`
	Explanation     string              `json:"explanation"`
}

// SaveWidget creates or updates a widget
func (h *Handlers) SaveWidget(c *gin.Context) {
	var req saveWidgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateComponentSource(req.ComponentSource); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateTitle(req.Title); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sourceJSON, err := toJSON(req.DataSource)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w := &store.Widget{
		ID:              req.ID,
		DashboardID:     req.DashboardID,
		Title:           req.Title,
		ComponentSource: req.ComponentSource,
		ComponentKind:   string(req.ComponentKind),
		SourceJSON:      sourceJSON,
		Position:        req.Position,
		Explanation:     req.Explanation,
	}
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if err := h.store.SaveWidget(w); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, w)
}

// GetWidget returns one widget
func (h *Handlers) GetWidget(c *gin.Context) {
	widgetID := c.Param("id")
	if err := utils.ValidateID(widgetID, "widget_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.store.GetWidget(widgetID)
	if err != nil {
		h.notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// DeleteWidget removes a widget and its cached data
func (h *Handlers) DeleteWidget(c *gin.Context) {
	widgetID := c.Param("id")
	if err := utils.ValidateID(widgetID, "widget_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.DeleteWidget(widgetID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "widget_id": widgetID})
}

// RenderWidget renders a persisted widget using its cached data
func (h *Handlers) RenderWidget(c *gin.Context) {
	widgetID := c.Param("id")
	if err := utils.ValidateID(widgetID, "widget_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.store.GetWidget(widgetID)
	if err != nil {
		h.notFoundOr500(c, err)
		return
	}

	spec, err := h.widgetSpec(w, c.Query("retry") != "true")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var outcome *types.RenderOutcome
	if c.Query("retry") == "true" {
		outcome = h.controller.Retry(c.Request.Context(), spec)
	} else {
		outcome = h.controller.Render(c.Request.Context(), spec)
	}
	h.recordOutcome(outcome)

	c.JSON(http.StatusOK, gin.H{
		"widget_id": widgetID,
		"outcome":   outcome,
	})
}

// WidgetDocument builds the sandbox HTML for a persisted widget, using its
// cached data when present
func (h *Handlers) WidgetDocument(c *gin.Context) {
	widgetID := c.Param("id")
	if err := utils.ValidateID(widgetID, "widget_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.store.GetWidget(widgetID)
	if err != nil {
		h.notFoundOr500(c, err)
		return
	}

	spec, err := h.widgetSpec(w, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	html, err := h.controller.Document(c.Request.Context(), spec)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"widget_id": widgetID,
		"html":      html,
	})
}

// widgetSpec converts a stored widget into a render specification,
// attaching cached data when useCache is set.
func (h *Handlers) widgetSpec(w *store.Widget, useCache bool) (types.WidgetSpec, error) {
	src, err := parseSource(w.SourceJSON)
	if err != nil {
		return types.WidgetSpec{}, err
	}

	spec := types.WidgetSpec{
		ID:              w.ID,
		ComponentSource: w.ComponentSource,
		ComponentKind:   types.ComponentKind(w.ComponentKind),
		DataSource:      src,
		Title:           w.Title,
		WidgetIndex:     w.Position,
	}

	if useCache {
		if cache, err := h.store.GetCache(w.ID); err == nil {
			var cached any
			if parseJSON(cache.DataJSON, &cached) == nil && cached != nil {
				spec.CachedData = cached
				h.metrics.RecordCacheServed()
			}
		}
	}
	return spec, nil
}

// ListSources lists registered data sources
func (h *Handlers) ListSources(c *gin.Context) {
	sources, err := h.store.ListSources()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

// SaveSource registers or updates a data source
func (h *Handlers) SaveSource(c *gin.Context) {
	var src store.DataSource
	if err := c.ShouldBindJSON(&src); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateID(src.ID, "source_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SaveSource(&src); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, src)
}

// GetSource returns one data source
func (h *Handlers) GetSource(c *gin.Context) {
	sourceID := c.Param("id")
	if err := utils.ValidateID(sourceID, "source_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, err := h.store.GetSource(sourceID)
	if err != nil {
		h.notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusOK, src)
}

// ListThemes returns the available theme presets
func (h *Handlers) ListThemes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"themes": theme.Presets()})
}

// Stats returns current metric values as JSON
func (h *Handlers) Stats(c *gin.Context) {
	snapshot := h.metrics.GetSnapshot()

	avgDuration := 0.0
	if snapshot.RequestCount > 0 {
		avgDuration = snapshot.TotalDuration / float64(snapshot.RequestCount)
	}

	c.JSON(http.StatusOK, gin.H{
		"total_requests": snapshot.TotalRequests,
		"total_errors":   snapshot.TotalErrors,
		"total_renders":  snapshot.TotalRenders,
		"failed_renders": snapshot.FailedRenders,
		"cache_hits":     snapshot.CacheHits,
		"avg_duration_s": avgDuration,
		"uptime_seconds": h.metrics.UptimeSeconds(),
		"sandbox":        h.host.Stats(),
	})
}

func (h *Handlers) recordOutcome(outcome *types.RenderOutcome) {
	label := "ready"
	switch {
	case outcome.State == types.StateError:
		label = "error"
	case outcome.TimedOut:
		label = "timeout"
	}
	h.metrics.RecordExecution(label, outcome.Duration)
}

func (h *Handlers) notFoundOr500(c *gin.Context, err error) {
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
