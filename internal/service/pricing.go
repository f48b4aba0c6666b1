package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/souschef/internal/db"
)

var (
	// ErrUnknownRateType 客户计价类型不在价目表中
	ErrUnknownRateType = errors.New("unknown rate type")
	// ErrUnknownMealSize 主菜份量不是 R/L
	ErrUnknownMealSize = errors.New("unknown meal size")
)

// Prices 一个客户的单价：主菜（常规份量）与配菜
type Prices struct {
	Main decimal.Decimal
	Side decimal.Decimal
}

type rateRow struct {
	main decimal.Decimal
	side decimal.Decimal
}

var rateTable = map[db.RateType]rateRow{
	db.RateTypeDefault:   {main: decimal.RequireFromString("6.00"), side: decimal.RequireFromString("1.00")},
	db.RateTypeLowIncome: {main: decimal.RequireFromString("4.50"), side: decimal.RequireFromString("0.75")},
	db.RateTypeSolidary:  {main: decimal.RequireFromString("3.50"), side: decimal.RequireFromString("0.50")},
}

// SideUnitPrice 返回配菜单价
func SideUnitPrice(rate db.RateType) (decimal.Decimal, error) {
	row, ok := rateTable[rate]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownRateType, rate)
	}
	return row.side, nil
}

// MainDishUnitPrice 返回主菜单价，大份等于常规价格再加一份配菜
func MainDishUnitPrice(rate db.RateType, size db.MealSize) (decimal.Decimal, error) {
	row, ok := rateTable[rate]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownRateType, rate)
	}
	switch size {
	case db.MealSizeRegular:
		return row.main, nil
	case db.MealSizeLarge:
		return row.main.Add(row.side), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownMealSize, size)
	}
}

// ClientPrices 返回某计价类型的常规主菜价与配菜价
func ClientPrices(rate db.RateType) (Prices, error) {
	row, ok := rateTable[rate]
	if !ok {
		return Prices{}, fmt.Errorf("%w: %q", ErrUnknownRateType, rate)
	}
	return Prices{Main: row.main, Side: row.side}, nil
}
