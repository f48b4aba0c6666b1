package service

import (
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/souschef/internal/db"
)

// MealComponent 客户当天订购的某类餐品
type MealComponent struct {
	ComponentID uint
	Name        string
	Qty         int
}

// KitchenItem 汇总一个客户当天的订餐与饮食限制
type KitchenItem struct {
	ClientID  uint
	LastName  string
	FirstName string
	RouteName string
	MealQty   int
	MealSize  db.MealSize

	// IncompatibleIngredients 当天主菜中客户必须避开的食材
	IncompatibleIngredients []string
	// SidesClashes 与配菜冲突的食材或限制类别名称
	SidesClashes     []string
	AvoidIngredients []string
	RestrictedItems  []string
	Preparations     []string

	MealComponents map[db.ComponentGroup]MealComponent
}

// HasClashes 主菜中存在冲突食材
func (k KitchenItem) HasClashes() bool {
	return len(k.IncompatibleIngredients) > 0
}

// FormatClientName 返回 "Last, Fi." 形式的简称
func FormatClientName(firstName, lastName string) string {
	runes := []rune(firstName)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return lastName + ", " + string(runes) + "."
}

// ComponentLine 厨房统计表中每类餐品的汇总行
type ComponentLine struct {
	ComponentGroup string
	Group          db.ComponentGroup
	Name           string
	Ingredients    string
	RQty           int
	LQty           int
}

// Portions 大份按 1.5 份常规计算
func (l ComponentLine) Portions() float64 {
	return Portions(l.RQty, l.LQty)
}

// Portions 返回 r + 1.5×l
func Portions(regular, large int) float64 {
	return float64(regular) + 1.5*float64(large)
}

// FormatPortions 没有小数部分时按整数输出
func FormatPortions(p float64) string {
	if p == float64(int64(p)) {
		return strconv.FormatInt(int64(p), 10)
	}
	return strconv.FormatFloat(p, 'f', -1, 64)
}

const (
	SubtotalLabel         = "SUBTOTAL"
	TotalSpecialsLabel    = "TOTAL SPECIALS"
	TotalSideClashesLabel = "TOTAL SIDE CLASHES"
)

// MealLine 厨房统计表中特殊餐的一行。
// Span > 1 为小计行，值为该组的行数；-1 为组内客户行；空行与合计行为 1。
type MealLine struct {
	Client    string
	RQty      int
	LQty      int
	IngrClash string
	RestIngr  string
	RestItem  string
	Span      int
	FoodPrep  string
}

func blankMealLine() MealLine {
	return MealLine{Span: 1}
}

// IsBlank 分隔空行
func (l MealLine) IsBlank() bool {
	return l == blankMealLine()
}

func clientMealLine(item KitchenItem) MealLine {
	line := MealLine{
		Client:   FormatClientName(item.FirstName, item.LastName),
		RestIngr: strings.Join(setDifference(item.AvoidIngredients, item.IncompatibleIngredients), ", "),
		RestItem: strings.Join(item.RestrictedItems, ", "),
		Span:     1,
		FoodPrep: strings.Join(sortedCopy(item.Preparations), ", "),
	}
	switch item.MealSize {
	case db.MealSizeRegular:
		line.RQty = item.MealQty
	case db.MealSizeLarge:
		line.LQty = item.MealQty
	}
	return line
}

// MakeMealLines 按冲突食材组合分组，生成小计块以及两行合计
func MakeMealLines(items []KitchenItem) []MealLine {
	var clashing []KitchenItem
	for _, item := range items {
		if item.HasClashes() {
			clashing = append(clashing, item)
		}
	}
	sort.SliceStable(clashing, func(i, j int) bool {
		return slices.Compare(clashing[i].IncompatibleIngredients, clashing[j].IncompatibleIngredients) < 0
	})

	var lines []MealLine
	specialsR, specialsL := 0, 0
	sidesR, sidesL := 0, 0
	for start := 0; start < len(clashing); {
		end := start
		for end < len(clashing) && slices.Equal(clashing[end].IncompatibleIngredients, clashing[start].IncompatibleIngredients) {
			end++
		}

		header := len(lines)
		lines = append(lines, blankMealLine())
		subR, subL := 0, 0
		for _, item := range clashing[start:end] {
			line := clientMealLine(item)
			line.Span = -1
			lines = append(lines, line)
			subR += line.RQty
			subL += line.LQty
			// 配菜冲突只统计主菜冲突块内的客户
			if len(item.SidesClashes) > 0 {
				sidesR += line.RQty
				sidesL += line.LQty
			}
		}
		lines[header] = MealLine{
			Client:    SubtotalLabel,
			RQty:      subR,
			LQty:      subL,
			IngrClash: strings.Join(clashing[start].IncompatibleIngredients, ", "),
			Span:      len(lines) - header,
		}
		specialsR += subR
		specialsL += subL
		lines = append(lines, blankMealLine())
		start = end
	}

	lines = append(lines,
		MealLine{RQty: specialsR, LQty: specialsL, IngrClash: TotalSpecialsLabel, Span: 1},
		MealLine{RQty: sidesR, LQty: sidesL, IngrClash: TotalSideClashesLabel, Span: 1},
	)
	return lines
}

// MakeComponentLines 生成餐品汇总：主菜在首行，配菜第二行，其余按类别名称排序。
// dayIngredients 为组件 ID 到当天确认食材的映射。
func MakeComponentLines(items []KitchenItem, dayIngredients map[uint][]string, sides db.Component) []ComponentLine {
	byGroup := map[db.ComponentGroup]*ComponentLine{}
	for _, item := range items {
		for group, comp := range item.MealComponents {
			line, ok := byGroup[group]
			if !ok {
				line = &ComponentLine{ComponentGroup: group.Label(), Group: group}
				byGroup[group] = line
			}
			if group == db.ComponentGroupMainDish && line.Name == "" {
				line.Name = comp.Name
				line.Ingredients = strings.Join(dayIngredients[comp.ComponentID], ", ")
			}
			if group == db.ComponentGroupMainDish {
				switch item.MealSize {
				case db.MealSizeLarge:
					line.LQty += comp.Qty
				case db.MealSizeRegular:
					line.RQty += comp.Qty
				}
				continue
			}
			line.RQty += comp.Qty
		}
	}
	if len(byGroup) == 0 {
		return nil
	}

	main, ok := byGroup[db.ComponentGroupMainDish]
	if !ok {
		main = &ComponentLine{ComponentGroup: db.ComponentGroupMainDish.Label(), Group: db.ComponentGroupMainDish}
	}
	var others []ComponentLine
	for group, line := range byGroup {
		if group != db.ComponentGroupMainDish {
			others = append(others, *line)
		}
	}
	sort.Slice(others, func(i, j int) bool {
		return others[i].ComponentGroup < others[j].ComponentGroup
	})

	lines := make([]ComponentLine, 0, len(others)+2)
	lines = append(lines, *main, ComponentLine{
		ComponentGroup: sides.Name,
		Group:          db.ComponentGroupSides,
		Name:           sides.Name,
		Ingredients:    strings.Join(dayIngredients[sides.ID], ", "),
	})
	return append(lines, others...)
}

// PreparationLine 某种特殊处理方式的份数与客户
type PreparationLine struct {
	Method      string
	Quantity    int
	ClientNames []string
}

// MakePreparationLines 按处理方式汇总，withClashes 选择有或没有冲突食材的客户
func MakePreparationLines(items []KitchenItem, withClashes bool) []PreparationLine {
	perMethod := map[string][]KitchenItem{}
	for _, item := range items {
		if item.HasClashes() != withClashes {
			continue
		}
		for _, prep := range item.Preparations {
			perMethod[prep] = append(perMethod[prep], item)
		}
	}

	methods := make([]string, 0, len(perMethod))
	for method := range perMethod {
		methods = append(methods, method)
	}
	sort.Strings(methods)

	lines := make([]PreparationLine, 0, len(methods))
	for _, method := range methods {
		line := PreparationLine{Method: method}
		for _, item := range perMethod[method] {
			name := FormatClientName(item.FirstName, item.LastName)
			if item.MealQty > 1 {
				name += " (x " + strconv.Itoa(item.MealQty) + ")"
			}
			line.ClientNames = append(line.ClientNames, name)
			line.Quantity += item.MealQty
		}
		sort.Strings(line.ClientNames)
		lines = append(lines, line)
	}
	return lines
}

const (
	labelWideWidth    = 74
	labelNarrowWidth  = 65
	labelBlankDish    = "_______________________________________"
	sidesClashPrefix  = "Sides: _______________________ Clashes: "
	preparationPrefix = "Preparation: "
)

// MealLabel 一份餐对应的一张标签
type MealLabel struct {
	Route             string
	Date              string
	MainDishName      string
	Name              string
	Size              string
	DishClashes       []string
	OtherRestrictions []string
	Ingredients       []string
	Preparations      []string
	SidesClashes      []string
	Sides             []string
}

func (l MealLabel) sortGroup() int {
	switch {
	case len(l.DishClashes) > 0:
		return 1
	case len(l.SidesClashes) > 0:
		return 2
	case len(l.Preparations) > 0:
		return 3
	default:
		return 4
	}
}

// OtherRestrictions 标签上 "Other restr." 一栏：限制类别与忌口食材，去掉已显示过的冲突
func OtherRestrictions(item KitchenItem) []string {
	union := append(append([]string{}, item.RestrictedItems...), item.AvoidIngredients...)
	rest := setDifference(union, item.IncompatibleIngredients)
	return setDifference(rest, item.SidesClashes)
}

// MakeMealLabels 为每份主菜生成一张标签，按分组排序：
// 主菜冲突、配菜冲突、特殊处理（按姓名），普通标签按路线再按姓名。
func MakeMealLabels(date time.Time, items []KitchenItem, mainDishName, mainDishIngredients, sidesIngredients string) []MealLabel {
	var labels []MealLabel
	for _, item := range items {
		label := MealLabel{
			Route:        strings.ToUpper(item.RouteName),
			Date:         date.Format("Mon, Jan-02"),
			MainDishName: mainDishName,
			Name:         FormatClientName(item.FirstName, item.LastName),
		}
		if item.MealSize == db.MealSizeLarge {
			label.Size = "LARGE"
		}

		switch {
		case item.HasClashes():
			label.MainDishName = labelBlankDish
			label.DishClashes = WrapText("Restrictions: "+strings.Join(item.IncompatibleIngredients, ", ")+".", labelNarrowWidth)
			if other := OtherRestrictions(item); len(other) > 0 {
				label.OtherRestrictions = WrapText("Other restr.: "+strings.Join(other, ", ")+".", labelNarrowWidth)
			}
		case len(item.SidesClashes) == 0:
			label.Ingredients = WrapText("Ingredients: "+mainDishIngredients, labelWideWidth)
		}

		if len(item.Preparations) > 0 {
			label.Preparations = wrapWithPrefix(preparationPrefix, strings.Join(item.Preparations, " , "), labelNarrowWidth)
		}
		if len(item.SidesClashes) > 0 {
			label.SidesClashes = wrapWithPrefix(sidesClashPrefix, strings.Join(item.SidesClashes, ", "), labelNarrowWidth)
		} else {
			label.Sides = WrapText("Sides: "+sidesIngredients, labelWideWidth)
		}

		for i := 0; i < item.MealQty; i++ {
			labels = append(labels, label)
		}
	}

	sort.SliceStable(labels, func(i, j int) bool {
		gi, gj := labels[i].sortGroup(), labels[j].sortGroup()
		if gi != gj {
			return gi < gj
		}
		if gi == 4 && labels[i].Route != labels[j].Route {
			return labels[i].Route < labels[j].Route
		}
		return labels[i].Name < labels[j].Name
	})
	return labels
}

// wrapWithPrefix 连同前缀一起折行，然后把前缀单独作为第一行
func wrapWithPrefix(prefix, text string, width int) []string {
	wrapped := WrapText(prefix+text, width)
	if len(wrapped) == 0 {
		return []string{prefix}
	}
	first := wrapped[0]
	if len(first) >= len(prefix) {
		wrapped[0] = strings.TrimSpace(first[len(prefix):])
	} else {
		wrapped[0] = ""
	}
	return append([]string{prefix}, wrapped...)
}

// WrapText 按单词贪心折行，超长单词不拆分
func WrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len([]rune(current))+1+len([]rune(word)) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}

// KitchenReport 厨房统计与标签所需的全部数据
type KitchenReport struct {
	Date                       time.Time
	Items                      []KitchenItem
	ComponentLines             []ComponentLine
	MealLines                  []MealLine
	PreparationsWithClashes    []PreparationLine
	PreparationsWithoutClashes []PreparationLine
	Labels                     []MealLabel
	Warnings                   []string
}

// Empty 当天没有任何需要准备的餐品
func (r KitchenReport) Empty() bool {
	return len(r.ComponentLines) == 0
}

// BuildKitchenReport 基于已加载的数据生成报表，不访问数据库
func BuildKitchenReport(data KitchenData) KitchenReport {
	report := KitchenReport{
		Date:     data.Date,
		Items:    data.Items,
		Warnings: data.Warnings,
	}
	report.ComponentLines = MakeComponentLines(data.Items, data.DayIngredients, data.Sides)
	report.MealLines = MakeMealLines(data.Items)
	report.PreparationsWithClashes = MakePreparationLines(data.Items, true)
	report.PreparationsWithoutClashes = MakePreparationLines(data.Items, false)
	if !report.Empty() {
		main, sides := report.ComponentLines[0], report.ComponentLines[1]
		report.Labels = MakeMealLabels(data.Date, data.Items, main.Name, main.Ingredients, sides.Ingredients)
	}
	return report
}

// sortedSet 去重并排序
func sortedSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := sortedCopy(values)
	return slices.Compact(out)
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

func setDifference(values, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, v := range remove {
		drop[v] = struct{}{}
	}
	var out []string
	for _, v := range sortedSet(values) {
		if _, ok := drop[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
