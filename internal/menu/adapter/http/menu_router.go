package http

import (
	gatewayhttp "fitness-gateway/internal/gateway/adapter/http"
	gwmodel "fitness-gateway/internal/gateway/domain/model"
	"fitness-gateway/internal/menu/domain/model"
	"fitness-gateway/internal/menu/engine"
	"fitness-gateway/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// MenuHTTPHandler serves the capability-filtered navigation tree so clients
// never receive entries they may not see. Each request builds a fresh
// engine for the resolved viewer; the declarative tree itself is shared and
// immutable.
type MenuHTTPHandler struct {
	cfg  engine.Config
	eval engine.VisibilityEvaluator
	log  logger.Logger
}

// NewMenuHTTPHandler creates the menu HTTP handler.
func NewMenuHTTPHandler(cfg engine.Config, eval engine.VisibilityEvaluator, log logger.Logger) *MenuHTTPHandler {
	return &MenuHTTPHandler{
		cfg:  cfg,
		eval: eval,
		log:  log.WithComponent("menu_http"),
	}
}

// SetupRoutes registers the menu routes on the given router (mounted at /api).
func (h *MenuHTTPHandler) SetupRoutes(router fiber.Router, middleware *gatewayhttp.SessionMiddleware) {
	group := router.Group("/menu", middleware.Load())
	group.Get("/", h.GetMenu)
	group.Get("/search", h.Search)
}

// menuResponse is the wire shape of the rendered menu.
type menuResponse struct {
	Items       []model.Node `json:"items"`
	ActiveKey   string       `json:"activeKey,omitempty"`
	Expanded    []string     `json:"expanded"`
	Breadcrumbs []model.Item `json:"breadcrumbs,omitempty"`
}

// GetMenu renders the menu for the current viewer. The optional path query
// parameter resolves the active item and auto-expands its ancestors.
func (h *MenuHTTPHandler) GetMenu(c *fiber.Ctx) error {
	eng := h.engineFor(c)
	if path := c.Query("path"); path != "" {
		eng.SetRoute(path)
	}

	return c.JSON(menuResponse{
		Items:       eng.Items(),
		ActiveKey:   eng.ActiveKey(),
		Expanded:    eng.Expanded(),
		Breadcrumbs: eng.Breadcrumbs(),
	})
}

// Search filters the viewer's menu by a case-insensitive query over labels
// and descriptions.
func (h *MenuHTTPHandler) Search(c *fiber.Ctx) error {
	eng := h.engineFor(c)
	results := eng.Search(c.Query("q"))
	return c.JSON(fiber.Map{"items": results})
}

// engineFor builds an engine for the request's viewer. Anonymous viewers
// get the tree filtered down to entries without capability requirements.
func (h *MenuHTTPHandler) engineFor(c *fiber.Ctx) *engine.Engine {
	var viewer engine.Viewer
	if session, ok := c.Locals(gatewayhttp.LocalsSession).(*gwmodel.Session); ok && session != nil {
		viewer.Permissions = session.User.Permissions
		viewer.Roles = session.User.Roles
	}

	return engine.New(h.cfg, viewer,
		engine.WithVisibilityEvaluator(h.eval),
		engine.WithLogger(h.log),
	)
}
