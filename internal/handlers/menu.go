package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/domain/repositories"
	"github.com/veloute/server/internal/router"
)

var menuKeywordPattern = regexp.MustCompile(
	`(?i)\b(menu|dish|dishes|food|eat|dessert|desserts|starter|starters|appetizer|appetizers|main course|vegetarian|wine|drink|price|prices)\b`)

// Spoken category words mapped to menu section names, checked in menu order
// so a transcript naming two sections always resolves to the earlier one.
var categoryAliases = []struct {
	alias    string
	category string
}{
	{"starter", "Starters"},
	{"appetizer", "Starters"},
	{"main", "Main Courses"},
	{"dessert", "Desserts"},
}

// MenuPayload is the structured data attached to full-menu replies.
type MenuPayload struct {
	Categories []entities.MenuCategory `json:"categories"`
}

// DishesPayload is the structured data attached to dish lookups.
type DishesPayload struct {
	Dishes []entities.Dish `json:"dishes"`
}

// MenuHandler answers menu and dish questions from the menu repository.
type MenuHandler struct {
	menu   repositories.MenuRepository
	logger *zap.Logger
}

// NewMenuHandler creates the menu handler.
func NewMenuHandler(menu repositories.MenuRepository, logger *zap.Logger) *MenuHandler {
	return &MenuHandler{
		menu:   menu,
		logger: logger,
	}
}

func (h *MenuHandler) Name() string { return "menu" }

// CanHandle matches menu vocabulary without side effects.
func (h *MenuHandler) CanHandle(transcript string) bool {
	return menuKeywordPattern.MatchString(transcript)
}

func (h *MenuHandler) Execute(ctx context.Context, transcript string, rctx router.Context) (router.Result, error) {
	lower := strings.ToLower(transcript)

	for _, ca := range categoryAliases {
		if !strings.Contains(lower, ca.alias) {
			continue
		}
		dishes, err := h.menu.DishesByCategory(ctx, ca.category)
		if err != nil {
			return router.Result{}, fmt.Errorf("failed to load category %q: %w", ca.category, err)
		}
		return router.Result{
			Text:    describeDishes(ca.category, dishes),
			Payload: DishesPayload{Dishes: dishes},
		}, nil
	}

	if strings.Contains(lower, "vegetarian") {
		dishes, err := h.menu.VegetarianDishes(ctx)
		if err != nil {
			return router.Result{}, fmt.Errorf("vegetarian lookup failed: %w", err)
		}
		return router.Result{
			Text:    describeDishes("vegetarian", dishes),
			Payload: DishesPayload{Dishes: dishes},
		}, nil
	}

	if query, ok := searchQuery(lower); ok {
		dishes, err := h.menu.SearchDishes(ctx, query)
		if err != nil {
			return router.Result{}, fmt.Errorf("dish search failed: %w", err)
		}
		if len(dishes) == 0 {
			return router.Result{
				Text: fmt.Sprintf("I'm afraid we don't have %s on the menu at the moment.", query),
			}, nil
		}
		return router.Result{
			Text:    describeDishes(query, dishes),
			Payload: DishesPayload{Dishes: dishes},
		}, nil
	}

	menu, err := h.menu.GetMenu(ctx)
	if err != nil {
		return router.Result{}, fmt.Errorf("failed to load menu: %w", err)
	}
	h.logger.Info("Serving full menu", zap.Int("dishes", menu.DishCount()))
	return router.Result{
		Text: fmt.Sprintf("Our menu has %d dishes across %s. Would you like to hear a section in detail?",
			menu.DishCount(), strings.Join(menu.CategoryNames(), ", ")),
		Payload: MenuPayload{Categories: menu.Categories},
	}, nil
}

// searchQuery pulls the subject out of "do you have ..." style questions.
func searchQuery(lower string) (string, bool) {
	for _, prefix := range []string{"do you have ", "do you serve ", "is there "} {
		idx := strings.Index(lower, prefix)
		if idx < 0 {
			continue
		}
		query := strings.Trim(lower[idx+len(prefix):], " ?!.")
		query = strings.TrimPrefix(query, "any ")
		query = strings.TrimPrefix(query, "a ")
		if query != "" {
			return query, true
		}
	}
	return "", false
}

func describeDishes(subject string, dishes []entities.Dish) string {
	if len(dishes) == 0 {
		return fmt.Sprintf("We currently have nothing matching %s on the menu.", subject)
	}
	names := make([]string, 0, len(dishes))
	for _, d := range dishes {
		names = append(names, fmt.Sprintf("%s (%.0f€)", d.Name, d.Price))
	}
	return fmt.Sprintf("For %s we have: %s.", subject, strings.Join(names, ", "))
}
