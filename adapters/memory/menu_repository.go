package memory

import (
	"context"
	"strings"

	"github.com/veloute/server/domain/entities"
	"github.com/veloute/server/domain/repositories"
)

// MenuRepository serves the house menu from memory. The menu is static
// data; edits go through a redeploy, not an API.
type MenuRepository struct {
	menu entities.Menu
	info entities.RestaurantInfo
}

// NewMenuRepository creates a menu repository seeded with the house menu.
func NewMenuRepository() repositories.MenuRepository {
	return &MenuRepository{
		menu: houseMenu(),
		info: entities.RestaurantInfo{
			Name:    "Les Pieds dans le Plat",
			Address: "1 Avenue des Champs-Élysées, Paris",
			Phone:   "+33 1 23 45 67 89",
			Hours:   "Open every day from 11:00 AM to 1:00 AM",
		},
	}
}

func houseMenu() entities.Menu {
	return entities.Menu{
		Categories: []entities.MenuCategory{
			{
				Name: "Starters",
				Items: []entities.Dish{
					{Name: "Terrine de campagne", Category: "Starters", Price: 12, Description: "Country-style pork terrine with pickles", Available: true},
					{Name: "Salade niçoise", Category: "Starters", Price: 14, Description: "Tuna, olives, anchovies and fresh vegetables", Available: true},
					{Name: "Soupe à l'oignon", Category: "Starters", Price: 10, Description: "Traditional onion soup with melted cheese", Vegetarian: true, Available: true},
				},
			},
			{
				Name: "Main Courses",
				Items: []entities.Dish{
					{Name: "Boeuf bourguignon", Category: "Main Courses", Price: 22, Description: "Beef slow-cooked in red wine", Available: true},
					{Name: "Poulet rôti", Category: "Main Courses", Price: 18, Description: "Roast chicken with herbs and potatoes", Available: true},
					{Name: "Filet de saumon", Category: "Main Courses", Price: 20, Description: "Salmon fillet with seasonal vegetables", Available: true},
				},
			},
			{
				Name: "Desserts",
				Items: []entities.Dish{
					{Name: "Tarte tatin", Category: "Desserts", Price: 9, Description: "Upside-down caramelized apple tart", Vegetarian: true, Available: true},
					{Name: "Crème brûlée", Category: "Desserts", Price: 8, Description: "Vanilla custard with a caramelized top", Vegetarian: true, Available: true},
					{Name: "Mousse au chocolat", Category: "Desserts", Price: 7, Description: "Dark chocolate mousse", Vegetarian: true, Available: true},
				},
			},
		},
	}
}

func (r *MenuRepository) GetMenu(ctx context.Context) (*entities.Menu, error) {
	menu := r.menu
	return &menu, nil
}

func (r *MenuRepository) SearchDishes(ctx context.Context, query string) ([]entities.Dish, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	var matches []entities.Dish
	for _, cat := range r.menu.Categories {
		for _, dish := range cat.Items {
			if strings.Contains(strings.ToLower(dish.Name), query) ||
				strings.Contains(strings.ToLower(dish.Description), query) {
				matches = append(matches, dish)
			}
		}
	}
	return matches, nil
}

func (r *MenuRepository) DishesByCategory(ctx context.Context, category string) ([]entities.Dish, error) {
	for _, cat := range r.menu.Categories {
		if strings.EqualFold(cat.Name, category) {
			dishes := make([]entities.Dish, len(cat.Items))
			copy(dishes, cat.Items)
			return dishes, nil
		}
	}
	return nil, nil
}

func (r *MenuRepository) VegetarianDishes(ctx context.Context) ([]entities.Dish, error) {
	var matches []entities.Dish
	for _, cat := range r.menu.Categories {
		for _, dish := range cat.Items {
			if dish.Vegetarian {
				matches = append(matches, dish)
			}
		}
	}
	return matches, nil
}

func (r *MenuRepository) GetRestaurantInfo(ctx context.Context) (*entities.RestaurantInfo, error) {
	info := r.info
	return &info, nil
}
