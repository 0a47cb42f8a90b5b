package model

import (
	"github.com/shopspring/decimal"
)

// 金额列为 DECIMAL(36,18)，费率列为 DECIMAL(10,6)
const (
	MoneyScale   int32 = 18
	FeeRateScale int32 = 6
)

// maxMoney 金额列整数部分上限 (不含)
var maxMoney = decimal.New(1, 18)

// FitsMoney 判断金额能否无损写入金额列
func FitsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale)) && d.Abs().LessThan(maxMoney)
}
