package sales

import "math"

// Package identifies one of the fixed support package offerings.
type Package string

const (
	PackageStarter   Package = "Стартовый набор"
	PackageExpansion Package = "Расширение"
	PackageScale     Package = "Масштаб"
	PackageAbsolute  Package = "Абсолют"
)

// PackageInfo carries the commission rate and the lowercase display name
// used inside generated summaries.
type PackageInfo struct {
	Rate        float64
	DisplayName string
}

var packageRates = map[Package]PackageInfo{
	PackageStarter:   {Rate: 0.07, DisplayName: "стартовый набор"},
	PackageExpansion: {Rate: 0.08, DisplayName: "расширение"},
	PackageScale:     {Rate: 0.10, DisplayName: "масштаб"},
	PackageAbsolute:  {Rate: 0.12, DisplayName: "абсолют"},
}

// AllPackages lists the offerings in presentation order.
var AllPackages = []Package{PackageStarter, PackageExpansion, PackageScale, PackageAbsolute}

// RateFor returns rate details for a package.
func RateFor(p Package) (PackageInfo, bool) {
	info, ok := packageRates[p]
	return info, ok
}

// Percent returns the commission rate of a package as a whole percentage.
func (p Package) Percent() int {
	info, ok := packageRates[p]
	if !ok {
		return 0
	}
	return int(math.Round(info.Rate * 100))
}

// Valid reports whether p is one of the known package identifiers.
func (p Package) Valid() bool {
	_, ok := packageRates[p]
	return ok
}

// Commission computes the master's cut of a paid amount,
// rounded half away from zero.
func Commission(paidAmount float64, p Package) int64 {
	info, ok := packageRates[p]
	if !ok {
		return 0
	}
	return int64(math.Round(paidAmount * info.Rate))
}
