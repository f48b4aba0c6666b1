package service

import (
	"testing"
	"time"

	"github.com/souschef/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kitchenItem(id uint, first, last string, qty int, size db.MealSize, clashes ...string) KitchenItem {
	return KitchenItem{
		ClientID:                id,
		FirstName:               first,
		LastName:                last,
		RouteName:               "Mile End",
		MealQty:                 qty,
		MealSize:                size,
		IncompatibleIngredients: clashes,
		AvoidIngredients:        clashes,
		MealComponents: map[db.ComponentGroup]MealComponent{
			db.ComponentGroupMainDish: {ComponentID: 10, Name: "Ginger pork", Qty: qty},
		},
	}
}

func TestPortions(t *testing.T) {
	assert.Equal(t, "2", FormatPortions(Portions(2, 0)))
	assert.Equal(t, "2.5", FormatPortions(Portions(1, 1)))
	assert.Equal(t, "3", FormatPortions(Portions(0, 2)))
	assert.Equal(t, "0", FormatPortions(Portions(0, 0)))
}

func TestFormatClientName(t *testing.T) {
	assert.Equal(t, "Tremblay, Ma.", FormatClientName("Marie", "Tremblay"))
	assert.Equal(t, "Roy, É.", FormatClientName("É", "Roy"))
	assert.Equal(t, "Côté, Él.", FormatClientName("Élise", "Côté"))
}

func TestMakeMealLinesGroupsByClashSet(t *testing.T) {
	items := []KitchenItem{
		kitchenItem(1, "Marie", "Tremblay", 1, db.MealSizeRegular, "pork"),
		kitchenItem(2, "Paul", "Gagnon", 2, db.MealSizeLarge, "garlic", "pork"),
		kitchenItem(3, "Lise", "Roy", 1, db.MealSizeLarge, "pork"),
		kitchenItem(4, "Jean", "Bouchard", 3, db.MealSizeRegular),
	}
	items[0].SidesClashes = []string{"Gluten"}

	lines := MakeMealLines(items)

	// [garlic pork]: subtotal + 1 client + blank; [pork]: subtotal + 2 clients + blank; 2 totals
	require.Len(t, lines, 9)

	first := lines[0]
	assert.Equal(t, SubtotalLabel, first.Client)
	assert.Equal(t, "garlic, pork", first.IngrClash)
	assert.Equal(t, 2, first.Span)
	assert.Equal(t, 0, first.RQty)
	assert.Equal(t, 2, first.LQty)
	assert.Equal(t, -1, lines[1].Span)
	assert.Equal(t, "Gagnon, Pa.", lines[1].Client)
	assert.True(t, lines[2].IsBlank())

	second := lines[3]
	assert.Equal(t, SubtotalLabel, second.Client)
	assert.Equal(t, "pork", second.IngrClash)
	assert.Equal(t, 3, second.Span)
	assert.Equal(t, 1, second.RQty)
	assert.Equal(t, 1, second.LQty)
	assert.Equal(t, "Tremblay, Ma.", lines[4].Client)
	assert.Equal(t, "Roy, Li.", lines[5].Client)
	assert.True(t, lines[6].IsBlank())

	specials := lines[7]
	assert.Equal(t, TotalSpecialsLabel, specials.IngrClash)
	assert.Equal(t, 1, specials.RQty)
	assert.Equal(t, 3, specials.LQty)

	sides := lines[8]
	assert.Equal(t, TotalSideClashesLabel, sides.IngrClash)
	assert.Equal(t, 1, sides.RQty)
	assert.Equal(t, 0, sides.LQty)
}

func TestMakeMealLinesSpecialsEqualSubtotals(t *testing.T) {
	items := []KitchenItem{
		kitchenItem(1, "A", "One", 2, db.MealSizeRegular, "nuts"),
		kitchenItem(2, "B", "Two", 1, db.MealSizeLarge, "fish"),
		kitchenItem(3, "C", "Three", 4, db.MealSizeRegular, "fish"),
		kitchenItem(4, "D", "Four", 1, db.MealSizeLarge, "eggs", "fish"),
	}
	lines := MakeMealLines(items)

	sumR, sumL := 0, 0
	var specials MealLine
	for _, line := range lines {
		if line.Client == SubtotalLabel {
			sumR += line.RQty
			sumL += line.LQty
		}
		if line.IngrClash == TotalSpecialsLabel {
			specials = line
		}
	}
	assert.Equal(t, sumR+sumL, specials.RQty+specials.LQty)
	assert.Equal(t, 6, specials.RQty)
	assert.Equal(t, 2, specials.LQty)
}

func TestMakeMealLinesWithoutClashes(t *testing.T) {
	lines := MakeMealLines([]KitchenItem{kitchenItem(1, "A", "One", 1, db.MealSizeRegular)})
	require.Len(t, lines, 2)
	assert.Equal(t, TotalSpecialsLabel, lines[0].IngrClash)
	assert.Zero(t, lines[0].RQty)
}

func TestMakeMealLinesSideClashesOnlyInsideSpecials(t *testing.T) {
	sidesOnly := KitchenItem{MealQty: 1, MealSize: db.MealSizeRegular, SidesClashes: []string{"peas"}}

	lines := MakeMealLines([]KitchenItem{sidesOnly})
	require.Len(t, lines, 2)
	last := lines[len(lines)-1]
	assert.Equal(t, TotalSideClashesLabel, last.IngrClash)
	assert.Zero(t, last.RQty)
	assert.Zero(t, last.LQty)

	both := kitchenItem(2, "Paul", "Gagnon", 2, db.MealSizeLarge, "pork")
	both.SidesClashes = []string{"peas"}
	mainOnly := kitchenItem(3, "Lise", "Roy", 1, db.MealSizeRegular, "pork")

	lines = MakeMealLines([]KitchenItem{sidesOnly, both, mainOnly})
	last = lines[len(lines)-1]
	assert.Equal(t, TotalSideClashesLabel, last.IngrClash)
	assert.Zero(t, last.RQty)
	assert.Equal(t, 2, last.LQty)
}

func TestClientMealLineRestIngredients(t *testing.T) {
	item := kitchenItem(1, "Marie", "Tremblay", 1, db.MealSizeRegular, "pork")
	item.AvoidIngredients = []string{"pork", "celery", "apple"}
	item.RestrictedItems = []string{"Gluten", "Nuts"}
	item.Preparations = []string{"Puree", "Cut up"}

	line := clientMealLine(item)
	assert.Equal(t, "apple, celery", line.RestIngr)
	assert.Equal(t, "Gluten, Nuts", line.RestItem)
	assert.Equal(t, "Cut up, Puree", line.FoodPrep)
	assert.Equal(t, 1, line.RQty)
}

func TestMakeComponentLines(t *testing.T) {
	items := []KitchenItem{
		kitchenItem(1, "A", "One", 2, db.MealSizeRegular),
		kitchenItem(2, "B", "Two", 1, db.MealSizeLarge),
	}
	items[0].MealComponents[db.ComponentGroupPudding] = MealComponent{ComponentID: 20, Name: "Rice pudding", Qty: 1}
	items[1].MealComponents[db.ComponentGroupDessert] = MealComponent{ComponentID: 21, Name: "Brownie", Qty: 2}

	sides := db.Component{Name: "Sides"}
	sides.ID = 99
	lines := MakeComponentLines(items, map[uint][]string{10: {"ginger", "pork"}, 99: {"rice"}}, sides)

	require.Len(t, lines, 4)
	assert.Equal(t, "Ginger pork", lines[0].Name)
	assert.Equal(t, "ginger, pork", lines[0].Ingredients)
	assert.Equal(t, 2, lines[0].RQty)
	assert.Equal(t, 1, lines[0].LQty)
	assert.Equal(t, "3.5", FormatPortions(lines[0].Portions()))

	assert.Equal(t, "Sides", lines[1].ComponentGroup)
	assert.Equal(t, "rice", lines[1].Ingredients)

	assert.Equal(t, "Dessert", lines[2].ComponentGroup)
	assert.Equal(t, 2, lines[2].RQty)
	assert.Equal(t, "Pudding", lines[3].ComponentGroup)

	assert.Nil(t, MakeComponentLines(nil, nil, sides))
}

func TestMakePreparationLines(t *testing.T) {
	a := kitchenItem(1, "Marie", "Tremblay", 2, db.MealSizeRegular)
	a.Preparations = []string{"Puree"}
	b := kitchenItem(2, "Paul", "Gagnon", 1, db.MealSizeRegular)
	b.Preparations = []string{"Cut up", "Puree"}
	c := kitchenItem(3, "Lise", "Roy", 1, db.MealSizeRegular, "pork")
	c.Preparations = []string{"Puree"}

	without := MakePreparationLines([]KitchenItem{a, b, c}, false)
	require.Len(t, without, 2)
	assert.Equal(t, "Cut up", without[0].Method)
	assert.Equal(t, "Puree", without[1].Method)
	assert.Equal(t, 3, without[1].Quantity)
	assert.Equal(t, []string{"Gagnon, Pa.", "Tremblay, Ma. (x 2)"}, without[1].ClientNames)

	with := MakePreparationLines([]KitchenItem{a, b, c}, true)
	require.Len(t, with, 1)
	assert.Equal(t, []string{"Roy, Li."}, with[0].ClientNames)
}

func TestMakeMealLabels(t *testing.T) {
	date := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	clash := kitchenItem(1, "Marie", "Tremblay", 1, db.MealSizeLarge, "pork")
	clash.RestrictedItems = []string{"Nuts"}
	clash.AvoidIngredients = []string{"pork", "celery"}
	clash.RouteName = "Zone B"

	sides := kitchenItem(2, "Paul", "Gagnon", 1, db.MealSizeRegular)
	sides.SidesClashes = []string{"Gluten"}

	prep := kitchenItem(3, "Lise", "Roy", 1, db.MealSizeRegular)
	prep.Preparations = []string{"Puree", "Cut up"}

	plainB := kitchenItem(4, "Jean", "Bouchard", 2, db.MealSizeRegular)
	plainB.RouteName = "Zone B"
	plainA := kitchenItem(5, "Zoé", "Aubin", 1, db.MealSizeRegular)
	plainA.RouteName = "Zone A"

	labels := MakeMealLabels(date, []KitchenItem{plainB, prep, plainA, sides, clash}, "Ginger pork", "ginger, pork", "rice")
	require.Len(t, labels, 6)

	first := labels[0]
	assert.Equal(t, "Tremblay, Ma.", first.Name)
	assert.Equal(t, "ZONE B", first.Route)
	assert.Equal(t, "Mon, Mar-04", first.Date)
	assert.Equal(t, "LARGE", first.Size)
	assert.Equal(t, labelBlankDish, first.MainDishName)
	assert.Equal(t, []string{"Restrictions: pork."}, first.DishClashes)
	assert.Equal(t, []string{"Other restr.: Nuts, celery."}, first.OtherRestrictions)
	assert.Empty(t, first.Ingredients)
	assert.Equal(t, []string{"Sides: rice"}, first.Sides)

	assert.Equal(t, "Gagnon, Pa.", labels[1].Name)
	assert.Empty(t, labels[1].Ingredients)
	assert.Equal(t, []string{sidesClashPrefix, "Gluten"}, labels[1].SidesClashes)
	assert.Empty(t, labels[1].Sides)

	assert.Equal(t, "Roy, Li.", labels[2].Name)
	assert.Equal(t, []string{preparationPrefix, "Puree , Cut up"}, labels[2].Preparations)
	assert.Equal(t, []string{"Ingredients: ginger, pork"}, labels[2].Ingredients)

	assert.Equal(t, "Aubin, Zo.", labels[3].Name)
	assert.Equal(t, "Bouchard, Je.", labels[4].Name)
	assert.Equal(t, "Bouchard, Je.", labels[5].Name)
	assert.Equal(t, "Ginger pork", labels[5].MainDishName)
}

func TestWrapText(t *testing.T) {
	lines := WrapText("Ingredients: carrots, celery, onions, garlic", 20)
	assert.Equal(t, []string{"Ingredients:", "carrots, celery,", "onions, garlic"}, lines)
	assert.Equal(t, []string{"averyveryverylongword"}, WrapText("averyveryverylongword", 5))
	assert.Nil(t, WrapText("   ", 10))
}

func TestBuildKitchenReportEmpty(t *testing.T) {
	report := BuildKitchenReport(KitchenData{Date: time.Now()})
	assert.True(t, report.Empty())
	assert.Empty(t, report.Labels)
	require.Len(t, report.MealLines, 2)
}
