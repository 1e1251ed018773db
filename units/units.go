// Package units converts between the canonical storage units (centimeters,
// kilograms, meters) and the display units of a user's measurement system.
//
// Every conversion funnels through the canonical units, so callers never
// special-case locale: store cm/kg/m, format at render time.
package units

import (
	"fmt"
	"math"
	"strings"
)

// System is a user's preferred measurement system.
type System int

const (
	Metric System = iota
	Imperial
)

func (s System) String() string {
	if s == Imperial {
		return "imperial"
	}
	return "metric"
}

// ParseSystem accepts "metric" or "imperial" (case-insensitive).
func ParseSystem(s string) (System, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "metric":
		return Metric, true
	case "imperial":
		return Imperial, true
	}
	return Metric, false
}

// Unit identifies the unit a raw value was entered in.
type Unit int

const (
	Centimeter Unit = iota
	Inch
	Kilogram
	Pound
	Meter
)

const (
	cmPerInch     = 2.54
	lbsPerKg      = 2.205
	metersPerMile = 1609.344
)

// CmToFeetInches converts centimeters to whole feet and inches.
// Inches are rounded; a rounded value of 12 carries into feet.
func CmToFeetInches(cm float64) (feet, inches int) {
	totalInches := cm / cmPerInch
	feet = int(math.Floor(totalInches / 12))
	inches = int(math.Round(totalInches - float64(feet)*12))
	if inches == 12 {
		feet++
		inches = 0
	}
	return feet, inches
}

// FeetInchesToCm rounds to the nearest whole centimeter.
func FeetInchesToCm(feet, inches int) int {
	return int(math.Round(float64(feet*12+inches) * cmPerInch))
}

// KgToLbs and LbsToKg both round to whole numbers, so a round trip is not
// guaranteed to return the original value (KgToLbs(100) = 221, but
// LbsToKg(220) = 100 too). This is accepted: weights are stored in kg and
// the pound value is for display only.
func KgToLbs(kg float64) int {
	return int(math.Round(kg * lbsPerKg))
}

func LbsToKg(lbs float64) int {
	return int(math.Round(lbs / lbsPerKg))
}

// toCm normalises a height to centimeters.
func toCm(value float64, from Unit) float64 {
	if from == Inch {
		return value * cmPerInch
	}
	return value
}

// toKg normalises a weight to kilograms.
func toKg(value float64, from Unit) float64 {
	if from == Pound {
		return value / lbsPerKg
	}
	return value
}

// FormatHeight renders a height given in source unit as "180 cm" or 5'11".
func FormatHeight(value float64, from Unit, to System) string {
	cm := toCm(value, from)
	if to == Imperial {
		feet, inches := CmToFeetInches(cm)
		return fmt.Sprintf("%d'%d\"", feet, inches)
	}
	return fmt.Sprintf("%d cm", int(math.Round(cm)))
}

// FormatWeight renders a weight given in source unit as "70 kg" or "154 lbs".
func FormatWeight(value float64, from Unit, to System) string {
	kg := toKg(value, from)
	if to == Imperial {
		return fmt.Sprintf("%d lbs", KgToLbs(kg))
	}
	return fmt.Sprintf("%d kg", int(math.Round(kg)))
}

// FormatDistance renders meters as kilometers or miles with one decimal.
func FormatDistance(meters float64, to System) string {
	if to == Imperial {
		return fmt.Sprintf("%.1f mi", roundTenth(meters/metersPerMile))
	}
	return fmt.Sprintf("%.1f km", roundTenth(meters/1000))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
