// Package menu wires the navigation menu engine and its HTTP surface.
package menu

import (
	"fmt"

	gatewayhttp "fitness-gateway/internal/gateway/adapter/http"
	menuhttp "fitness-gateway/internal/menu/adapter/http"
	"fitness-gateway/internal/menu/engine"
	"fitness-gateway/internal/menu/visibility"
	"fitness-gateway/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// MenuModule represents the navigation menu module.
type MenuModule struct {
	cfg     engine.Config
	eval    *visibility.Evaluator
	handler *menuhttp.MenuHTTPHandler
	log     logger.Logger
}

// NewMenuModule wires the menu: the declarative tree, the visibility rule
// evaluator and the HTTP handler.
func NewMenuModule(log logger.Logger) (*MenuModule, error) {
	eval, err := visibility.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create visibility evaluator: %w", err)
	}

	cfg := engine.Config{
		Items:             DefaultNavigation(),
		ActiveItemClass:   "menu-item-active",
		InactiveItemClass: "menu-item",
		DisabledItemClass: "menu-item-disabled",
		Collapsible:       true,
		DefaultExpanded:   true,
		ShowIcons:         true,
		ShowBadges:        true,
	}

	return &MenuModule{
		cfg:     cfg,
		eval:    eval,
		handler: menuhttp.NewMenuHTTPHandler(cfg, eval, log),
		log:     log,
	}, nil
}

// RegisterRoutes registers menu routes with the provided router.
func (mm *MenuModule) RegisterRoutes(router fiber.Router, middleware *gatewayhttp.SessionMiddleware) {
	mm.handler.SetupRoutes(router, middleware)
}

// NewEngine builds an engine for the given viewer using the module's tree
// and evaluator. Intended for embedding the menu outside the HTTP surface.
func (mm *MenuModule) NewEngine(viewer engine.Viewer, opts ...engine.Option) *engine.Engine {
	opts = append([]engine.Option{
		engine.WithVisibilityEvaluator(mm.eval),
		engine.WithLogger(mm.log),
	}, opts...)
	return engine.New(mm.cfg, viewer, opts...)
}
