package domain

import "strings"

// NutrientCriteria carries the numeric nutrient thresholds assigned to a
// nutrient watershed region.
type NutrientCriteria struct {
	TotalNitrogen   float64 `json:"tn_nnc"`
	TotalPhosphorus float64 `json:"tp_nnc"`
}

// Fixed regulatory lookup tables. Values are reproduced verbatim from the
// adopted criteria; an unmatched category is a data-quality signal and yields
// null annotations, never an error.
var nutrientCriteriaByRegion = map[string]NutrientCriteria{
	"PANHANDLE EAST": {TotalNitrogen: 1.03, TotalPhosphorus: 0.18},
	"PANHANDLE WEST": {TotalNitrogen: 0.67, TotalPhosphorus: 0.06},
	"PENINSULAR":     {TotalNitrogen: 1.54, TotalPhosphorus: 0.12},
	"NORTH CENTRAL":  {TotalNitrogen: 1.87, TotalPhosphorus: 0.30},
	"WEST CENTRAL":   {TotalNitrogen: 1.65, TotalPhosphorus: 0.49},
}

var dissolvedOxygenByBioregion = map[string]float64{
	"BIG BEND":   34,
	"PANHANDLE":  67,
	"PENINSULA":  38,
	"NORTHEAST":  34,
	"EVERGLADES": 38,
}

// CanonicalCategory trims and upper-cases a categorical value for exact
// lookup against the criteria tables.
func CanonicalCategory(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// LookupNutrientCriteria resolves a nutrient region to its thresholds.
func LookupNutrientCriteria(region string) (NutrientCriteria, bool) {
	c, ok := nutrientCriteriaByRegion[CanonicalCategory(region)]
	return c, ok
}

// LookupDissolvedOxygen resolves a bioregion to its dissolved-oxygen
// criterion.
func LookupDissolvedOxygen(bioregion string) (float64, bool) {
	v, ok := dissolvedOxygenByBioregion[CanonicalCategory(bioregion)]
	return v, ok
}
