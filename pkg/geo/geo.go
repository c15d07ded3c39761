// Package geo 提供大圆距离计算与半径单位换算。
package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// EarthRadiusMeters 是 haversine 公式使用的地球半径。
const EarthRadiusMeters = 6371000.0

var (
	ErrLatitudeOutOfRange  = errors.New("latitude must be within [-90, 90]")
	ErrLongitudeOutOfRange = errors.New("longitude must be within [-180, 180]")
	ErrUnknownUnit         = errors.New("unknown distance unit")
)

// Unit 是半径的长度单位，取值集合是封闭的。
type Unit string

const (
	Meter     Unit = "m"
	Kilometer Unit = "km"
	Mile      Unit = "mi"
)

var metersPerUnit = map[Unit]float64{
	Meter:     1,
	Kilometer: 1000,
	Mile:      1609.344,
}

var unitAliases = map[string]Unit{
	"":           Meter,
	"m":          Meter,
	"meter":      Meter,
	"meters":     Meter,
	"km":         Kilometer,
	"kilometer":  Kilometer,
	"kilometers": Kilometer,
	"mi":         Mile,
	"mile":       Mile,
	"miles":      Mile,
}

// ParseUnit 解析单位名称，空字符串视为米。
func ParseUnit(s string) (Unit, error) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
	return u, nil
}

// ToMeters 把以 u 为单位的长度换算成米。
func ToMeters(value float64, u Unit) (float64, error) {
	factor, ok := metersPerUnit[u]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, string(u))
	}
	return value * factor, nil
}

// Point 是以度为单位的经纬度坐标。
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate 检查坐标是否落在合法范围内。NaN 一律视为越界。
func (p Point) Validate() error {
	if !(p.Latitude >= -90 && p.Latitude <= 90) {
		return fmt.Errorf("%w: %v", ErrLatitudeOutOfRange, p.Latitude)
	}
	if !(p.Longitude >= -180 && p.Longitude <= 180) {
		return fmt.Errorf("%w: %v", ErrLongitudeOutOfRange, p.Longitude)
	}
	return nil
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance 用 haversine 公式计算两点间的大圆距离，单位为米。
func Distance(a, b Point) float64 {
	lat1, lat2 := radians(a.Latitude), radians(b.Latitude)
	dLat := lat2 - lat1
	dLon := radians(b.Longitude) - radians(a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// 浮点误差可能让 h 略大于 1
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Within 判断 p 是否位于以 center 为圆心、radiusMeters 为半径的圆内，边界包含在内。
func Within(center Point, radiusMeters float64, p Point) bool {
	return Distance(center, p) <= radiusMeters
}
