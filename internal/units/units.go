// Package units converts between the temperature scales and sensor units
// used by Flair and by the host.
package units

import "math"

// CToF converts Celsius to whole-degree Fahrenheit. Halves round to even,
// so 22.5 °C shows as 72 °F.
func CToF(c float64) float64 {
	return math.RoundToEven(c*9/5 + 32)
}

// FToC converts Fahrenheit to Celsius with two decimal places, the
// precision Flair stores set points with.
func FToC(f float64) float64 {
	return Round((f-32)*5/9, 2)
}

// Lux converts a raw light-sensor count to lux. A nil reading stays nil.
func Lux(raw *float64) *float64 {
	if raw == nil {
		return nil
	}
	v := *raw / 100 * 200
	return &v
}

// Round rounds v to the given number of decimal places, halves to even.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}

// ToScale converts a Celsius value into the given scale code ("F" or "C").
func ToScale(c float64, scale string) float64 {
	if scale == "F" {
		return CToF(c)
	}
	return c
}

// FromScale converts a value in the given scale code to Celsius.
func FromScale(v float64, scale string) float64 {
	if scale == "F" {
		return FToC(v)
	}
	return v
}
