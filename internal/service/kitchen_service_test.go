package service

import (
	"testing"
	"time"

	"github.com/souschef/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type kitchenFixture struct {
	date      time.Time
	menu      *MenuService
	orders    *OrderService
	kitchen   *KitchenService
	mainDish  *db.Component
	otherDish *db.Component
	ing       map[string]*db.Ingredient
	route     db.Route
}

func setupKitchenFixture(t *testing.T) (*gorm.DB, kitchenFixture) {
	t.Helper()
	gdb := setupServiceTestDB(t)
	f := kitchenFixture{
		date:    mustDay(t, "2024-03-04"),
		menu:    NewMenuService(gdb),
		orders:  NewOrderService(gdb, nil),
		kitchen: NewKitchenService(gdb, nil),
		ing:     map[string]*db.Ingredient{},
	}
	for _, name := range []string{"ginger", "pork", "rice", "flour", "celery", "tofu"} {
		ing, err := f.menu.CreateIngredient(name, "")
		require.NoError(t, err)
		f.ing[name] = ing
	}

	var err error
	f.mainDish, err = f.menu.CreateComponent("Ginger pork", db.ComponentGroupMainDish, []uint{f.ing["ginger"].ID, f.ing["pork"].ID})
	require.NoError(t, err)
	f.otherDish, err = f.menu.CreateComponent("Tofu bowl", db.ComponentGroupMainDish, []uint{f.ing["tofu"].ID})
	require.NoError(t, err)
	_, err = f.menu.CreateComponent("Sides", db.ComponentGroupSides, []uint{f.ing["rice"].ID})
	require.NoError(t, err)
	_, err = f.menu.CreateComponent("Brownie", db.ComponentGroupDessert, nil)
	require.NoError(t, err)

	f.route = createRoute(t, gdb, "Mile End")
	return gdb, f
}

func (f kitchenFixture) confirm(t *testing.T) {
	t.Helper()
	_, err := f.menu.ConfirmIngredients(f.date, f.mainDish.ID,
		[]uint{f.ing["ginger"].ID, f.ing["pork"].ID},
		[]uint{f.ing["rice"].ID, f.ing["flour"].ID})
	require.NoError(t, err)
}

func TestKitchenReportRequiresConfirmedIngredients(t *testing.T) {
	_, f := setupKitchenFixture(t)

	_, err := f.kitchen.KitchenReport(f.date)
	require.ErrorIs(t, err, ErrIngredientsMissing)

	f.confirm(t)
	_, err = f.kitchen.KitchenReport(f.date)
	require.NoError(t, err)

	_, err = f.kitchen.KitchenReport(f.date.AddDate(0, 0, 1))
	require.ErrorIs(t, err, ErrIngredientsMissing)
}

func TestKitchenReportRequiresSingleSidesComponent(t *testing.T) {
	gdb := setupServiceTestDB(t)
	_, err := NewKitchenService(gdb, nil).KitchenReport(mustDay(t, "2024-03-04"))
	require.ErrorIs(t, err, ErrSidesComponentMissing)
}

func TestKitchenReportAggregatesClientsAndClashes(t *testing.T) {
	gdb, f := setupKitchenFixture(t)
	f.confirm(t)
	prices := defaultPrices(t)

	avoidPork := createClient(t, gdb, clientFixture{first: "Marie", last: "Tremblay", routeID: &f.route.ID, located: true})
	require.NoError(t, gdb.Model(&avoidPork).Association("AvoidIngredients").Append(f.ing["pork"], f.ing["celery"]))
	prep := db.FoodPreparation{Name: "Puree"}
	require.NoError(t, gdb.Create(&prep).Error)
	require.NoError(t, gdb.Model(&avoidPork).Association("Preparations").Append(&prep))
	_, err := f.orders.CreateOrder(f.date, avoidPork, OrderRequest{
		Quantities: map[db.ComponentGroup]int{db.ComponentGroupMainDish: 1, db.ComponentGroupDessert: 1},
		Size:       db.MealSizeRegular,
	}, prices)
	require.NoError(t, err)

	gluten := db.RestrictedItem{Name: "Gluten", Ingredients: []db.Ingredient{*f.ing["flour"]}}
	require.NoError(t, gdb.Create(&gluten).Error)
	restricted := createClient(t, gdb, clientFixture{first: "Paul", last: "Gagnon", routeID: &f.route.ID, located: true})
	require.NoError(t, gdb.Model(&restricted).Association("Restrictions").Append(&gluten))
	_, err = f.orders.CreateOrder(f.date, restricted, OrderRequest{
		Quantities: map[db.ComponentGroup]int{db.ComponentGroupMainDish: 2},
		Size:       db.MealSizeLarge,
	}, prices)
	require.NoError(t, err)

	mainOnly := OrderRequest{Quantities: map[db.ComponentGroup]int{db.ComponentGroupMainDish: 1}, Size: db.MealSizeRegular}
	noRoute := createClient(t, gdb, clientFixture{first: "Lise", last: "Roy", located: true})
	_, err = f.orders.CreateOrder(f.date, noRoute, mainOnly, prices)
	require.NoError(t, err)
	notLocated := createClient(t, gdb, clientFixture{first: "Jean", last: "Bouchard", routeID: &f.route.ID})
	_, err = f.orders.CreateOrder(f.date, notLocated, mainOnly, prices)
	require.NoError(t, err)
	cancelled := createClient(t, gdb, clientFixture{first: "Anne", last: "Côté", routeID: &f.route.ID, located: true})
	order, err := f.orders.CreateOrder(f.date, cancelled, mainOnly, prices)
	require.NoError(t, err)
	_, err = f.orders.ChangeStatus(order.ID, db.OrderStatusCancelled, "hospital")
	require.NoError(t, err)

	report, err := f.kitchen.KitchenReport(f.date)
	require.NoError(t, err)
	require.Len(t, report.Items, 2)

	gagnon, tremblay := report.Items[0], report.Items[1]
	assert.Equal(t, "Gagnon", gagnon.LastName)
	assert.Empty(t, gagnon.IncompatibleIngredients)
	assert.Equal(t, []string{"Gluten"}, gagnon.SidesClashes)
	assert.Equal(t, 2, gagnon.MealQty)
	assert.Equal(t, "Mile End", gagnon.RouteName)

	assert.Equal(t, []string{"pork"}, tremblay.IncompatibleIngredients)
	assert.Equal(t, []string{"celery", "pork"}, tremblay.AvoidIngredients)
	assert.Equal(t, []string{"Puree"}, tremblay.Preparations)

	require.Len(t, report.ComponentLines, 3)
	assert.Equal(t, "Ginger pork", report.ComponentLines[0].Name)
	assert.Equal(t, "ginger, pork", report.ComponentLines[0].Ingredients)
	assert.Equal(t, 1, report.ComponentLines[0].RQty)
	assert.Equal(t, 2, report.ComponentLines[0].LQty)
	assert.Equal(t, "flour, rice", report.ComponentLines[1].Ingredients)
	assert.Equal(t, "Dessert", report.ComponentLines[2].ComponentGroup)

	require.Len(t, report.PreparationsWithClashes, 1)
	assert.Empty(t, report.PreparationsWithoutClashes)

	require.Len(t, report.Labels, 3)
	assert.Equal(t, "Tremblay, Ma.", report.Labels[0].Name)
	assert.Equal(t, "Gagnon, Pa.", report.Labels[1].Name)
	assert.Empty(t, report.Warnings)
}

func TestMenuServiceDayMealWorkflow(t *testing.T) {
	_, f := setupKitchenFixture(t)

	meal, err := f.menu.DayMeal(f.date, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ginger pork", meal.MainDish.Name)
	assert.Len(t, meal.RecipeIngredients, 2)
	assert.Len(t, meal.DishIngredients, 2)
	assert.True(t, meal.IngredientsChanged)
	assert.False(t, meal.RecipeChanged)

	_, err = f.menu.ConfirmIngredients(f.date, f.mainDish.ID, []uint{f.ing["pork"].ID}, []uint{f.ing["rice"].ID})
	require.NoError(t, err)

	meal, err = f.menu.DayMeal(f.date, nil)
	require.NoError(t, err)
	assert.False(t, meal.IngredientsChanged)
	assert.True(t, meal.RecipeChanged)
	require.Len(t, meal.DishIngredients, 1)
	assert.Equal(t, "pork", meal.DishIngredients[0].Name)

	require.NoError(t, f.menu.RestoreRecipe(f.date))
	meal, err = f.menu.DayMeal(f.date, nil)
	require.NoError(t, err)
	assert.True(t, meal.IngredientsChanged)
	assert.Len(t, meal.SidesIngredients, 1)

	meal, err = f.menu.DayMeal(f.date, &f.otherDish.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tofu bowl", meal.MainDish.Name)
	assert.Len(t, meal.DishIngredients, 1)

	var menu db.Menu
	require.NoError(t, db.DB.Preload("Components").First(&menu).Error)
	assert.Len(t, menu.Components, 3)
}
