package helper

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FloorToPrecision обрезает вниз до prec знаков после запятой.
func FloorToPrecision(v float64, prec int32) decimal.Decimal {
	return decimal.NewFromFloat(v).RoundFloor(prec)
}

// SnapToTick округляет к ближайшему кратному tick, потом до prec знаков.
func SnapToTick(px, tick float64, prec int32) decimal.Decimal {
	d := decimal.NewFromFloat(px)
	if tick > 0 {
		t := decimal.NewFromFloat(tick)
		d = d.Div(t).Round(0).Mul(t)
	}
	return d.Round(prec)
}

// FormatQty строка количества ровно с prec знаками, как ждёт биржа.
func FormatQty(v float64, prec int32) string {
	return FloorToPrecision(v, prec).StringFixed(prec)
}

func FormatPrice(v float64, prec int32) string {
	return decimal.NewFromFloat(v).Round(prec).StringFixed(prec)
}

// FormatCountdown 3725000 -> "01:02:05", отрицательное значение с минусом.
func FormatCountdown(ms int64) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	sec := ms / 1000
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, sec/3600, (sec%3600)/60, sec%60)
}
