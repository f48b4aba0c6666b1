package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/souschef/internal/db"
)

type ingredientRequest struct {
	Name  string `json:"name" binding:"required"`
	Group string `json:"group"`
}

type componentRequest struct {
	Name          string `json:"name" binding:"required"`
	Group         string `json:"group" binding:"required"`
	IngredientIDs []uint `json:"ingredientIds"`
}

func componentPayload(comp db.Component) gin.H {
	return gin.H{
		"id":         comp.ID,
		"name":       comp.Name,
		"group":      comp.ComponentGroup,
		"groupLabel": comp.ComponentGroup.Label(),
	}
}

func ingredientsPayload(ingredients []db.Ingredient) []gin.H {
	out := make([]gin.H, 0, len(ingredients))
	for _, ing := range ingredients {
		out = append(out, gin.H{"id": ing.ID, "name": ing.Name, "group": ing.IngredientGroup})
	}
	return out
}

// ListComponents 列出菜品，可按类别过滤
func (a *API) ListComponents(c *gin.Context) {
	comps, err := a.menus.ListComponents(db.ComponentGroup(c.Query("group")))
	if err != nil {
		a.respondServiceError(c, err, "获取菜品失败")
		return
	}
	response := make([]gin.H, 0, len(comps))
	for _, comp := range comps {
		response = append(response, componentPayload(comp))
	}
	c.JSON(http.StatusOK, gin.H{"components": response})
}

// CreateComponent 新建菜品及配方
func (a *API) CreateComponent(c *gin.Context) {
	var req componentRequest
	if !bindJSON(c, &req, "菜品名称与类别不能为空") {
		return
	}
	comp, err := a.menus.CreateComponent(req.Name, db.ComponentGroup(req.Group), req.IngredientIDs)
	if err != nil {
		a.respondServiceError(c, err, "创建菜品失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "菜品创建成功", "component": componentPayload(*comp)})
}

// CreateIngredient 新建食材，同名时返回已有的
func (a *API) CreateIngredient(c *gin.Context) {
	var req ingredientRequest
	if !bindJSON(c, &req, "食材名称不能为空") {
		return
	}
	ing, err := a.menus.CreateIngredient(req.Name, req.Group)
	if err != nil {
		a.respondServiceError(c, err, "创建食材失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "食材已保存", "ingredient": ingredientsPayload([]db.Ingredient{*ing})[0]})
}
