package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/souschef/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrComponentNotFound 菜品不存在
	ErrComponentNotFound = errors.New("component not found")
	// ErrNoMainDish 目录中没有任何主菜
	ErrNoMainDish = errors.New("no main dish in catalog")
	// ErrInvalidComponent 菜品名称或类别不合法
	ErrInvalidComponent = errors.New("invalid component")
)

// DayMeal 某天主菜与配菜的食材确认页面数据
type DayMeal struct {
	Date              time.Time
	MainDish          db.Component
	MainDishes        []db.Component
	Sides             db.Component
	RecipeIngredients []db.Ingredient
	DishIngredients   []db.Ingredient
	SidesIngredients  []db.Ingredient
	// RecipeChanged 当天食材与配方不同，可以恢复配方
	RecipeChanged bool
	// IngredientsChanged 主菜或配菜的食材尚未确认
	IngredientsChanged bool
}

// MenuService 管理菜品目录、每日菜单与当天食材确认
type MenuService struct {
	db *gorm.DB
}

// NewMenuService 构造 MenuService
func NewMenuService(gdb *gorm.DB) *MenuService {
	return &MenuService{db: gdb}
}

// CreateIngredient 新建食材，同名食材已存在时直接返回
func (s *MenuService) CreateIngredient(name, group string) (*db.Ingredient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty ingredient name", ErrInvalidComponent)
	}
	ing := db.Ingredient{Name: name, IngredientGroup: strings.TrimSpace(group)}
	if err := s.db.Where(db.Ingredient{Name: name}).FirstOrCreate(&ing).Error; err != nil {
		return nil, fmt.Errorf("create ingredient: %w", err)
	}
	return &ing, nil
}

// CreateComponent 新建菜品及其配方食材
func (s *MenuService) CreateComponent(name string, group db.ComponentGroup, recipe []uint) (*db.Component, error) {
	name = strings.TrimSpace(name)
	if name == "" || !group.Valid() {
		return nil, ErrInvalidComponent
	}
	comp := db.Component{Name: name, ComponentGroup: group}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comp).Error; err != nil {
			return fmt.Errorf("create component: %w", err)
		}
		for _, ingredientID := range recipe {
			if err := tx.Create(&db.ComponentIngredient{ComponentID: comp.ID, IngredientID: ingredientID}).Error; err != nil {
				return fmt.Errorf("add recipe ingredient: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comp, nil
}

// ListComponents 按名称列出菜品，group 为空时返回全部
func (s *MenuService) ListComponents(group db.ComponentGroup) ([]db.Component, error) {
	query := s.db.Model(&db.Component{})
	if group != "" {
		query = query.Where("component_group = ?", group)
	}
	var comps []db.Component
	if err := query.Order("LOWER(name)").Find(&comps).Error; err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	return comps, nil
}

func (s *MenuService) componentIngredients(componentID uint, date *time.Time) ([]db.Ingredient, error) {
	query := s.db.Preload("Ingredient").Where("component_id = ?", componentID)
	if date == nil {
		query = query.Where("date IS NULL")
	} else {
		start, end := dayRange(*date)
		query = query.Where("date >= ? AND date < ?", start, end)
	}
	var rows []db.ComponentIngredient
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load component ingredients: %w", err)
	}
	out := make([]db.Ingredient, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Ingredient)
	}
	return out, nil
}

// DayMeal 返回某天的主菜及食材。mainDishID 非空表示用户重新选择了主菜，
// 此时会清除当天除配菜以外已确认的食材。
func (s *MenuService) DayMeal(date time.Time, mainDishID *uint) (*DayMeal, error) {
	day := Day(date)
	sides, err := sidesComponent(s.db)
	if err != nil {
		return nil, err
	}
	mainDishes, err := s.ListComponents(db.ComponentGroupMainDish)
	if err != nil {
		return nil, err
	}

	meal := &DayMeal{Date: day, Sides: sides, MainDishes: mainDishes}
	switch {
	case mainDishID != nil:
		if err := s.db.Where("component_group = ?", db.ComponentGroupMainDish).First(&meal.MainDish, *mainDishID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrComponentNotFound
			}
			return nil, fmt.Errorf("get main dish: %w", err)
		}
		if err := s.clearDayIngredients(s.db, day, &sides.ID); err != nil {
			return nil, err
		}
	default:
		menu, err := dayMenuComponents(s.db, day)
		if err != nil {
			return nil, err
		}
		if comp, ok := menu[db.ComponentGroupMainDish]; ok {
			meal.MainDish = comp
		} else if len(mainDishes) > 0 {
			meal.MainDish = mainDishes[0]
		} else {
			return nil, ErrNoMainDish
		}
	}

	if meal.RecipeIngredients, err = s.componentIngredients(meal.MainDish.ID, nil); err != nil {
		return nil, err
	}
	if meal.DishIngredients, err = s.componentIngredients(meal.MainDish.ID, &day); err != nil {
		return nil, err
	}
	if meal.SidesIngredients, err = s.componentIngredients(sides.ID, &day); err != nil {
		return nil, err
	}

	meal.RecipeChanged = len(meal.DishIngredients) > 0 && !sameIngredients(meal.DishIngredients, meal.RecipeIngredients)
	meal.IngredientsChanged = len(meal.DishIngredients) == 0 || len(meal.SidesIngredients) == 0
	if len(meal.DishIngredients) == 0 {
		meal.DishIngredients = meal.RecipeIngredients
	}
	return meal, nil
}

// RestoreRecipe 删除当天主菜的确认食材，使页面回到配方
func (s *MenuService) RestoreRecipe(date time.Time) error {
	sides, err := sidesComponent(s.db)
	if err != nil {
		return err
	}
	return s.clearDayIngredients(s.db, Day(date), &sides.ID)
}

func (s *MenuService) clearDayIngredients(tx *gorm.DB, day time.Time, exceptComponent *uint) error {
	start, end := dayRange(day)
	query := tx.Where("date >= ? AND date < ?", start, end)
	if exceptComponent != nil {
		query = query.Where("component_id <> ?", *exceptComponent)
	}
	if err := query.Delete(&db.ComponentIngredient{}).Error; err != nil {
		return fmt.Errorf("clear day ingredients: %w", err)
	}
	return nil
}

// ConfirmIngredients 保存当天主菜与配菜的实际食材，并重建当天菜单：
// 选定的主菜加上其他每个类别按名称排序的第一个菜品。
func (s *MenuService) ConfirmIngredients(date time.Time, mainDishID uint, ingredientIDs, sidesIngredientIDs []uint) (*db.Menu, error) {
	day := Day(date)
	sides, err := sidesComponent(s.db)
	if err != nil {
		return nil, err
	}

	var menu db.Menu
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var main db.Component
		if err := tx.Where("component_group = ?", db.ComponentGroupMainDish).First(&main, mainDishID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrComponentNotFound
			}
			return fmt.Errorf("get main dish: %w", err)
		}

		if err := s.clearDayIngredients(tx, day, nil); err != nil {
			return err
		}
		for _, id := range ingredientIDs {
			if err := tx.Create(&db.ComponentIngredient{ComponentID: main.ID, IngredientID: id, Date: &day}).Error; err != nil {
				return fmt.Errorf("add dish ingredient: %w", err)
			}
		}
		for _, id := range sidesIngredientIDs {
			if err := tx.Create(&db.ComponentIngredient{ComponentID: sides.ID, IngredientID: id, Date: &day}).Error; err != nil {
				return fmt.Errorf("add sides ingredient: %w", err)
			}
		}

		components := []db.Component{main}
		for _, group := range db.ComponentGroups {
			if group == db.ComponentGroupMainDish {
				continue
			}
			var first db.Component
			err := tx.Where("component_group = ?", group).Order("LOWER(name)").First(&first).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("pick %s component: %w", group, err)
			}
			components = append(components, first)
		}

		start, end := dayRange(day)
		err := tx.Where("date >= ? AND date < ?", start, end).First(&menu).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			menu = db.Menu{Date: day}
			if err := tx.Create(&menu).Error; err != nil {
				return fmt.Errorf("create menu: %w", err)
			}
		case err != nil:
			return fmt.Errorf("get menu: %w", err)
		}
		if err := tx.Model(&menu).Association("Components").Replace(components); err != nil {
			return fmt.Errorf("set menu components: %w", err)
		}
		menu.Components = components
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &menu, nil
}

func sameIngredients(a, b []db.Ingredient) bool {
	set := make(map[uint]struct{}, len(a))
	for _, ing := range a {
		set[ing.ID] = struct{}{}
	}
	other := make(map[uint]struct{}, len(b))
	for _, ing := range b {
		if _, ok := set[ing.ID]; !ok {
			return false
		}
		other[ing.ID] = struct{}{}
	}
	return len(set) == len(other)
}
