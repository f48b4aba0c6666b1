package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/souschef/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrIngredientsMissing 当天主菜或配菜的食材尚未确认
	ErrIngredientsMissing = errors.New("ingredients missing for delivery date")
	// ErrSidesComponentMissing 目录中必须恰好存在一个 sides 类别的菜品
	ErrSidesComponentMissing = errors.New("the catalog must contain exactly one sides component")
)

// KitchenData 厨房报表的输入：已按客户合并的订餐与当天食材
type KitchenData struct {
	Date           time.Time
	Items          []KitchenItem
	Sides          db.Component
	DayIngredients map[uint][]string
	Warnings       []string
}

// KitchenService 负责读取某一天的订单、菜单与客户限制
type KitchenService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewKitchenService 构造 KitchenService
func NewKitchenService(gdb *gorm.DB, logger *zap.Logger) *KitchenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KitchenService{db: gdb, logger: logger}
}

func sidesComponent(tx *gorm.DB) (db.Component, error) {
	var comps []db.Component
	if err := tx.Where("component_group = ?", db.ComponentGroupSides).Limit(2).Find(&comps).Error; err != nil {
		return db.Component{}, fmt.Errorf("load sides component: %w", err)
	}
	if len(comps) != 1 {
		return db.Component{}, ErrSidesComponentMissing
	}
	return comps[0], nil
}

// dayIngredients 返回当天确认的食材：组件 ID 到食材名称列表
func dayIngredients(tx *gorm.DB, date time.Time) (map[uint][]string, error) {
	start, end := dayRange(date)
	var rows []db.ComponentIngredient
	if err := tx.Preload("Ingredient").
		Where("date >= ? AND date < ?", start, end).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load day ingredients: %w", err)
	}
	out := map[uint][]string{}
	for _, row := range rows {
		out[row.ComponentID] = append(out[row.ComponentID], row.Ingredient.Name)
	}
	for id := range out {
		out[id] = sortedSet(out[id])
	}
	return out, nil
}

func dayMenuComponents(tx *gorm.DB, date time.Time) (map[db.ComponentGroup]db.Component, error) {
	start, end := dayRange(date)
	var menu db.Menu
	err := tx.Preload("Components").Where("date >= ? AND date < ?", start, end).First(&menu).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[db.ComponentGroup]db.Component{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load day menu: %w", err)
	}
	out := make(map[db.ComponentGroup]db.Component, len(menu.Components))
	for _, comp := range menu.Components {
		if _, exists := out[comp.ComponentGroup]; !exists {
			out[comp.ComponentGroup] = comp
		}
	}
	return out, nil
}

// EnsureIngredientsConfirmed 检查当天主菜与配菜的食材都已确认
func (s *KitchenService) EnsureIngredientsConfirmed(date time.Time) (db.Component, error) {
	sides, err := sidesComponent(s.db)
	if err != nil {
		return db.Component{}, err
	}
	start, end := dayRange(date)

	var mainCount, sidesCount int64
	if err := s.db.Model(&db.ComponentIngredient{}).
		Where("date >= ? AND date < ? AND component_id <> ?", start, end, sides.ID).
		Count(&mainCount).Error; err != nil {
		return db.Component{}, fmt.Errorf("count main dish ingredients: %w", err)
	}
	if err := s.db.Model(&db.ComponentIngredient{}).
		Where("date >= ? AND date < ? AND component_id = ?", start, end, sides.ID).
		Count(&sidesCount).Error; err != nil {
		return db.Component{}, fmt.Errorf("count sides ingredients: %w", err)
	}
	if mainCount == 0 || sidesCount == 0 {
		return db.Component{}, ErrIngredientsMissing
	}
	return sides, nil
}

// KitchenList 读取并合并某天的厨房数据。
// 没有路线或未定位的客户会被过滤掉。
func (s *KitchenService) KitchenList(date time.Time) (KitchenData, error) {
	day := Day(date)
	sides, err := s.EnsureIngredientsConfirmed(day)
	if err != nil {
		return KitchenData{}, err
	}

	ingredients, err := dayIngredients(s.db, day)
	if err != nil {
		return KitchenData{}, err
	}
	menu, err := dayMenuComponents(s.db, day)
	if err != nil {
		return KitchenData{}, err
	}

	start, end := dayRange(day)
	var orders []db.Order
	if err := s.db.
		Preload("Items").
		Preload("Client.Route").
		Preload("Client.AvoidIngredients").
		Preload("Client.Restrictions.Ingredients").
		Preload("Client.Preparations").
		Where("delivery_date >= ? AND delivery_date < ? AND status <> ?", start, end, db.OrderStatusCancelled).
		Order("id").
		Find(&orders).Error; err != nil {
		return KitchenData{}, fmt.Errorf("load day orders: %w", err)
	}

	items, warnings := mergeKitchenItems(orders, menu, ingredients)

	var kept []KitchenItem
	for _, item := range items {
		if item.RouteName == "" {
			continue
		}
		kept = append(kept, item)
	}
	return KitchenData{
		Date:           day,
		Items:          kept,
		Sides:          sides,
		DayIngredients: ingredients,
		Warnings:       warnings,
	}, nil
}

// KitchenReport 生成某天的厨房统计与标签数据
func (s *KitchenService) KitchenReport(date time.Time) (KitchenReport, error) {
	data, err := s.KitchenList(date)
	if err != nil {
		return KitchenReport{}, err
	}
	report := BuildKitchenReport(data)
	for _, warning := range report.Warnings {
		s.logger.Warn("kitchen count data quality", zap.String("warning", warning))
	}
	return report, nil
}

// mergeKitchenItems 把订单与当天菜单、食材在内存中关联起来
func mergeKitchenItems(orders []db.Order, menu map[db.ComponentGroup]db.Component, ingredients map[uint][]string) ([]KitchenItem, []string) {
	contains := func(group db.ComponentGroup, ingredient string) bool {
		comp, ok := menu[group]
		if !ok {
			return false
		}
		for _, name := range ingredients[comp.ID] {
			if name == ingredient {
				return true
			}
		}
		return false
	}

	byClient := map[uint]*KitchenItem{}
	var order []uint
	var warnings []string

	for _, o := range orders {
		client := o.Client
		if !client.IsGeolocalized() {
			continue
		}
		item, ok := byClient[client.ID]
		if !ok {
			item = &KitchenItem{
				ClientID:       client.ID,
				LastName:       client.LastName,
				FirstName:      client.FirstName,
				MealComponents: map[db.ComponentGroup]MealComponent{},
			}
			byClient[client.ID] = item
			order = append(order, client.ID)
		}
		hasMain := o.HasMainDish()

		for _, ing := range client.AvoidIngredients {
			item.AvoidIngredients = append(item.AvoidIngredients, ing.Name)
			if !hasMain {
				continue
			}
			if contains(db.ComponentGroupMainDish, ing.Name) {
				item.IncompatibleIngredients = append(item.IncompatibleIngredients, ing.Name)
			}
			if contains(db.ComponentGroupSides, ing.Name) {
				item.SidesClashes = append(item.SidesClashes, ing.Name)
			}
		}

		for _, restricted := range client.Restrictions {
			item.RestrictedItems = append(item.RestrictedItems, restricted.Name)
			if !hasMain {
				continue
			}
			for _, ing := range restricted.Ingredients {
				if contains(db.ComponentGroupMainDish, ing.Name) {
					item.IncompatibleIngredients = append(item.IncompatibleIngredients, ing.Name)
				}
				if contains(db.ComponentGroupSides, ing.Name) {
					item.SidesClashes = append(item.SidesClashes, restricted.Name)
				}
			}
		}

		if hasMain {
			for _, prep := range client.Preparations {
				item.Preparations = append(item.Preparations, prep.Name)
			}
		}

		for _, oi := range o.Items {
			if oi.OrderItemType != db.OrderItemTypeComponent {
				continue
			}
			comp, onMenu := menu[oi.ComponentGroup]
			if !onMenu {
				continue
			}
			if oi.ComponentGroup == db.ComponentGroupMainDish {
				item.MealQty += oi.TotalQuantity
				item.MealSize = oi.Size
				if oi.Size == "" {
					warnings = append(warnings, fmt.Sprintf("%s: main dish without size", FormatClientName(client.FirstName, client.LastName)))
				}
			}
			mc := item.MealComponents[oi.ComponentGroup]
			mc.ComponentID = comp.ID
			mc.Name = comp.Name
			mc.Qty += oi.TotalQuantity
			item.MealComponents[oi.ComponentGroup] = mc
			if client.Route != nil {
				item.RouteName = client.Route.Name
			}
		}
	}

	items := make([]KitchenItem, 0, len(order))
	for _, id := range order {
		item := byClient[id]
		item.IncompatibleIngredients = sortedSet(item.IncompatibleIngredients)
		item.SidesClashes = sortedSet(item.SidesClashes)
		item.AvoidIngredients = sortedSet(item.AvoidIngredients)
		item.RestrictedItems = sortedSet(item.RestrictedItems)
		item.Preparations = sortedSet(item.Preparations)
		items = append(items, *item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].LastName != items[j].LastName {
			return items[i].LastName < items[j].LastName
		}
		return items[i].FirstName < items[j].FirstName
	})
	return items, warnings
}
