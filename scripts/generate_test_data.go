package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/souschef/internal/config"
	"github.com/souschef/internal/db"
	"gorm.io/gorm"
)

// 演示数据生成器
func main() {
	// 初始化数据库
	cfg := config.Load()
	if err := db.Init(db.Options{Driver: cfg.DatabaseDriver, Path: cfg.DatabasePath, DSN: cfg.DatabaseURL}); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成演示数据...")
	if err := seedDemoData(db.DB, os.Stdout); err != nil {
		log.Fatal("生成演示数据失败:", err)
	}

	fmt.Println("演示数据生成完成！")
	fmt.Println("用户: admin (密码: admin123)")
	fmt.Println("路线: Mile End、Plateau、Centre-ville")
}

type demoClient struct {
	first, last string
	number      string
	street      string
	lat, lon    float64
	route       string
	rate        db.RateType
	size        db.MealSize
	weekdays    []time.Weekday
	avoid       []string
	restrict    []string
	prepare     []string
}

var demoClients = []demoClient{
	{"Marie", "Tremblay", "3700", "rue Saint-Urbain", 45.5160, -73.5780, "Mile End", db.RateTypeDefault, db.MealSizeRegular,
		[]time.Weekday{time.Monday, time.Wednesday, time.Friday}, []string{"ginger"}, nil, nil},
	{"Jean", "Gagnon", "5240", "avenue du Parc", 45.5235, -73.6001, "Mile End", db.RateTypeLowIncome, db.MealSizeLarge,
		[]time.Weekday{time.Monday, time.Tuesday}, nil, []string{"Gluten"}, []string{"Cut up meat"}},
	{"Louise", "Roy", "4410", "rue de Bullion", 45.5212, -73.5840, "Plateau", db.RateTypeSolidary, db.MealSizeRegular,
		[]time.Weekday{time.Monday, time.Thursday}, nil, nil, []string{"Puree all"}},
	{"Pierre", "Côté", "1250", "rue Sanguinet", 45.5108, -73.5610, "Centre-ville", db.RateTypeDefault, db.MealSizeLarge,
		[]time.Weekday{time.Tuesday, time.Friday}, []string{"pork"}, nil, nil},
	{"Huguette", "Bouchard", "88", "rue Rachel Est", 45.5190, -73.5770, "Plateau", db.RateTypeDefault, db.MealSizeRegular,
		[]time.Weekday{time.Monday, time.Wednesday}, nil, nil, nil},
}

// seedDemoData 写入路线、菜品、食材、饮食限制与客户。已存在的数据会跳过
func seedDemoData(gdb *gorm.DB, out io.Writer) error {
	steps := []struct {
		name string
		fn   func(*gorm.DB) error
	}{
		{"管理员用户", func(*gorm.DB) error { return db.EnsureUser("admin", "admin123") }},
		{"路线", createDemoRoutes},
		{"食材与菜品", createDemoMenu},
		{"饮食限制", createDemoRestrictions},
		{"客户", createDemoClients},
	}
	for _, step := range steps {
		if err := step.fn(gdb); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		fmt.Fprintf(out, "✅ %s创建完成\n", step.name)
	}
	return nil
}

func createDemoRoutes(gdb *gorm.DB) error {
	routes := []db.Route{
		{Name: "Mile End", Vehicle: db.VehicleCycling},
		{Name: "Plateau", Vehicle: db.VehicleWalking},
		{Name: "Centre-ville", Vehicle: db.VehicleDriving},
	}
	for _, route := range routes {
		if err := gdb.Where(db.Route{Name: route.Name}).FirstOrCreate(&route).Error; err != nil {
			return err
		}
	}
	return nil
}

func ingredientIDs(gdb *gorm.DB, names ...string) ([]uint, error) {
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		ing := db.Ingredient{Name: name}
		if err := gdb.Where(db.Ingredient{Name: name}).FirstOrCreate(&ing).Error; err != nil {
			return nil, err
		}
		ids = append(ids, ing.ID)
	}
	return ids, nil
}

func createDemoMenu(gdb *gorm.DB) error {
	components := []struct {
		name        string
		group       db.ComponentGroup
		ingredients []string
	}{
		{"Ginger pork", db.ComponentGroupMainDish, []string{"ginger", "pork", "soy sauce"}},
		{"Lentil stew", db.ComponentGroupMainDish, []string{"lentils", "carrot", "onion"}},
		{"Sides", db.ComponentGroupSides, []string{"rice", "broccoli"}},
		{"Brownie", db.ComponentGroupDessert, []string{"flour", "chocolate"}},
		{"Diabetic dessert", db.ComponentGroupDiabetic, []string{"apple"}},
		{"Fruit salad", db.ComponentGroupFruitSalad, []string{"apple", "grapes"}},
		{"Green salad", db.ComponentGroupGreenSalad, []string{"lettuce"}},
		{"Pudding", db.ComponentGroupPudding, []string{"milk"}},
		{"Compote", db.ComponentGroupCompote, []string{"apple"}},
	}

	for _, c := range components {
		var count int64
		if err := gdb.Model(&db.Component{}).Where("name = ?", c.name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		ids, err := ingredientIDs(gdb, c.ingredients...)
		if err != nil {
			return err
		}
		comp := db.Component{Name: c.name, ComponentGroup: c.group}
		if err := gdb.Create(&comp).Error; err != nil {
			return err
		}
		for _, id := range ids {
			if err := gdb.Create(&db.ComponentIngredient{ComponentID: comp.ID, IngredientID: id}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func createDemoRestrictions(gdb *gorm.DB) error {
	restrictions := map[string][]string{
		"Gluten": {"flour", "soy sauce"},
		"Nuts":   {"peanuts"},
	}
	for name, ingredients := range restrictions {
		var item db.RestrictedItem
		if err := gdb.Where(db.RestrictedItem{Name: name}).FirstOrCreate(&item).Error; err != nil {
			return err
		}
		ids, err := ingredientIDs(gdb, ingredients...)
		if err != nil {
			return err
		}
		var linked []db.Ingredient
		if err := gdb.Find(&linked, ids).Error; err != nil {
			return err
		}
		if err := gdb.Model(&item).Association("Ingredients").Replace(linked); err != nil {
			return err
		}
	}
	for _, name := range []string{"Cut up meat", "Puree all"} {
		if err := gdb.Where(db.FoodPreparation{Name: name}).FirstOrCreate(&db.FoodPreparation{}).Error; err != nil {
			return err
		}
	}
	return nil
}

func createDemoClients(gdb *gorm.DB) error {
	var count int64
	if err := gdb.Model(&db.Client{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	one := 1
	for _, demo := range demoClients {
		var route db.Route
		if err := gdb.Where("name = ?", demo.route).First(&route).Error; err != nil {
			return err
		}
		lat, lon := demo.lat, demo.lon
		client := db.Client{
			FirstName:     demo.first,
			LastName:      demo.last,
			BillingEmail:  fmt.Sprintf("%s.%s@example.org", demo.first, demo.last),
			AddressNumber: demo.number,
			AddressStreet: demo.street,
			Latitude:      &lat,
			Longitude:     &lon,
			Status:        db.ClientStatusActive,
			DeliveryType:  db.DeliveryTypeOngoing,
			RateType:      demo.rate,
			RouteID:       &route.ID,
		}
		if err := gdb.Create(&client).Error; err != nil {
			return err
		}

		for _, weekday := range demo.weekdays {
			if err := gdb.Create(&db.ClientDaySchedule{
				ClientID: client.ID, Weekday: weekday, Scheduled: true, Size: demo.size,
			}).Error; err != nil {
				return err
			}
			for _, group := range []db.ComponentGroup{db.ComponentGroupMainDish, db.ComponentGroupDessert} {
				if err := gdb.Create(&db.ClientMealDefault{
					ClientID: client.ID, Weekday: weekday, ComponentGroup: group, Quantity: &one,
				}).Error; err != nil {
					return err
				}
			}
		}

		if len(demo.avoid) > 0 {
			var avoid []db.Ingredient
			if err := gdb.Where("name IN ?", demo.avoid).Find(&avoid).Error; err != nil {
				return err
			}
			if err := gdb.Model(&client).Association("AvoidIngredients").Replace(avoid); err != nil {
				return err
			}
		}
		if len(demo.restrict) > 0 {
			var items []db.RestrictedItem
			if err := gdb.Where("name IN ?", demo.restrict).Find(&items).Error; err != nil {
				return err
			}
			if err := gdb.Model(&client).Association("Restrictions").Replace(items); err != nil {
				return err
			}
		}
		if len(demo.prepare) > 0 {
			var preps []db.FoodPreparation
			if err := gdb.Where("name IN ?", demo.prepare).Find(&preps).Error; err != nil {
				return err
			}
			if err := gdb.Model(&client).Association("Preparations").Replace(preps); err != nil {
				return err
			}
		}
	}
	return nil
}
