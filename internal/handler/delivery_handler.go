package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/souschef/internal/report"
	"github.com/souschef/internal/service"
	"go.uber.org/zap"
)

const mealConfirmationPath = "/delivery/meal"

// archive 把生成的文件保存到报表存储，失败只记日志
func (a *API) archive(c *gin.Context, name string, date time.Time, ext string, content []byte) {
	if a.reports == nil || len(content) == 0 {
		return
	}
	key, err := a.reports.Save(c.Request.Context(), name, date, ext, content)
	if err != nil {
		a.logger.Warn("archive report failed", zap.String("report", name), zap.Error(err))
		return
	}
	a.logger.Info("report archived", zap.String("report", name), zap.String("key", key))
}

// ingredientsMissing 当天食材未确认时跳回确认页
func (a *API) ingredientsMissing(c *gin.Context, err error, date time.Time) bool {
	if !errors.Is(err, service.ErrIngredientsMissing) {
		return false
	}
	redirectWithFlash(c,
		"Please check main dish and confirm all ingredients before proceeding to kitchen count",
		mealConfirmationPath,
		url.Values{"delivery_date": []string{date.Format(service.DateLayout)}})
	return true
}

func dayMealPayload(meal *service.DayMeal) gin.H {
	mainDishes := make([]gin.H, 0, len(meal.MainDishes))
	for _, comp := range meal.MainDishes {
		mainDishes = append(mainDishes, componentPayload(comp))
	}
	return gin.H{
		"date":               meal.Date.Format(service.DateLayout),
		"mainDish":           componentPayload(meal.MainDish),
		"mainDishes":         mainDishes,
		"sides":              componentPayload(meal.Sides),
		"recipeIngredients":  ingredientsPayload(meal.RecipeIngredients),
		"dishIngredients":    ingredientsPayload(meal.DishIngredients),
		"sidesIngredients":   ingredientsPayload(meal.SidesIngredients),
		"recipeChanged":      meal.RecipeChanged,
		"ingredientsChanged": meal.IngredientsChanged,
	}
}

// GetDayMeal 返回某天主菜与配菜的食材确认数据。
// 传入 mainDishId 表示改选主菜，会清除当天已确认的主菜食材。
func (a *API) GetDayMeal(c *gin.Context) {
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}
	var mainDishID *uint
	if raw := c.Query("mainDishId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的主菜ID")
			return
		}
		v := uint(id)
		mainDishID = &v
	}
	meal, err := a.menus.DayMeal(date, mainDishID)
	if err != nil {
		a.respondServiceError(c, err, "获取当天菜单失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"meal": dayMealPayload(meal)})
}

type confirmIngredientsRequest struct {
	Date               string `json:"date" binding:"required"`
	MainDishID         uint   `json:"mainDishId" binding:"required"`
	IngredientIDs      []uint `json:"ingredientIds"`
	SidesIngredientIDs []uint `json:"sidesIngredientIds"`
}

// ConfirmDayIngredients 确认当天主菜与配菜的实际食材
func (a *API) ConfirmDayIngredients(c *gin.Context) {
	var req confirmIngredientsRequest
	if !bindJSON(c, &req, "请提供日期与主菜") {
		return
	}
	date, err := service.ParseDay(req.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}
	if _, err := a.menus.ConfirmIngredients(date, req.MainDishID, req.IngredientIDs, req.SidesIngredientIDs); err != nil {
		a.respondServiceError(c, err, "确认食材失败")
		return
	}
	meal, err := a.menus.DayMeal(date, nil)
	if err != nil {
		a.respondServiceError(c, err, "获取当天菜单失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "食材已确认", "meal": dayMealPayload(meal)})
}

// RestoreDayRecipe 丢弃当天主菜的确认食材，回到配方
func (a *API) RestoreDayRecipe(c *gin.Context) {
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}
	if err := a.menus.RestoreRecipe(date); err != nil {
		a.respondServiceError(c, err, "恢复配方失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已恢复配方"})
}

func componentLinesPayload(lines []service.ComponentLine) []gin.H {
	out := make([]gin.H, 0, len(lines))
	for _, line := range lines {
		out = append(out, gin.H{
			"componentGroup": line.Group,
			"label":          line.ComponentGroup,
			"name":           line.Name,
			"ingredients":    line.Ingredients,
			"rQty":           line.RQty,
			"lQty":           line.LQty,
			"portions":       service.FormatPortions(line.Portions()),
		})
	}
	return out
}

func mealLinesPayload(lines []service.MealLine) []gin.H {
	out := make([]gin.H, 0, len(lines))
	for _, line := range lines {
		if line.IsBlank() {
			continue
		}
		out = append(out, gin.H{
			"client":    line.Client,
			"rQty":      line.RQty,
			"lQty":      line.LQty,
			"ingrClash": line.IngrClash,
			"restIngr":  line.RestIngr,
			"restItem":  line.RestItem,
			"foodPrep":  line.FoodPrep,
			"span":      line.Span,
		})
	}
	return out
}

func preparationLinesPayload(lines []service.PreparationLine) []gin.H {
	out := make([]gin.H, 0, len(lines))
	for _, line := range lines {
		out = append(out, gin.H{"method": line.Method, "quantity": line.Quantity, "clients": line.ClientNames})
	}
	return out
}

// KitchenCount 厨房统计。format=pdf 时下载 PDF 并归档
func (a *API) KitchenCount(c *gin.Context) {
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}
	kitchen, err := a.kitchen.KitchenReport(date)
	if err != nil {
		if a.ingredientsMissing(c, err, date) {
			return
		}
		a.respondServiceError(c, err, "生成厨房统计失败")
		return
	}

	if c.Query("format") == "pdf" {
		content, err := report.KitchenCountPDF(kitchen, a.now())
		if err != nil {
			a.respondServiceError(c, err, "生成厨房统计 PDF 失败")
			return
		}
		a.archive(c, "kitchen_count", date, "pdf", content)
		sendFile(c, "kitchen_count_"+date.Format(service.DateLayout)+".pdf", "application/pdf", content)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":                       date.Format(service.DateLayout),
		"componentLines":             componentLinesPayload(kitchen.ComponentLines),
		"mealLines":                  mealLinesPayload(kitchen.MealLines),
		"preparationsWithClashes":    preparationLinesPayload(kitchen.PreparationsWithClashes),
		"preparationsWithoutClashes": preparationLinesPayload(kitchen.PreparationsWithoutClashes),
		"labelCount":                 len(kitchen.Labels),
		"warnings":                   kitchen.Warnings,
	})
}

// MealLabels 餐品标签。默认下载 PDF；format=png 时返回第 page 页的预览图
func (a *API) MealLabels(c *gin.Context) {
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}
	kitchen, err := a.kitchen.KitchenReport(date)
	if err != nil {
		if a.ingredientsMissing(c, err, date) {
			return
		}
		a.respondServiceError(c, err, "生成标签失败")
		return
	}

	if c.Query("format") == "png" {
		page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的页码")
			return
		}
		content, err := report.MealLabelsPNG(kitchen.Labels, page)
		if err != nil {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		c.Data(http.StatusOK, "image/png", content)
		return
	}

	content, err := report.MealLabelsPDF(kitchen.Labels, a.now())
	if err != nil {
		a.respondServiceError(c, err, "生成标签 PDF 失败")
		return
	}
	if content == nil {
		respondError(c, http.StatusNotFound, "当天没有需要打印的标签")
		return
	}
	a.archive(c, "labels", date, "pdf", content)
	sendFile(c, "labels_"+date.Format(service.DateLayout)+".pdf", "application/pdf", content)
}
