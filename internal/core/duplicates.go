package core

import "watercolumn/pkg/domain"

// PartitionDuplicates splits rows over the (station, date, parameter) key:
// rows whose key occurs more than once all land in duplicates, singleton
// rows land in uniques. Input order is preserved on both sides and the two
// outputs partition the input exactly. Nothing is resolved automatically;
// the duplicates set is exported wholesale for manual correction.
func PartitionDuplicates(rows []Measurement) (uniques, duplicates []Measurement) {
	counts := make(map[domain.SampleParamKey]int, len(rows))
	for _, m := range rows {
		counts[domain.SampleParamKeyOf(m)]++
	}
	for _, m := range rows {
		if counts[domain.SampleParamKeyOf(m)] > 1 {
			duplicates = append(duplicates, m)
			continue
		}
		uniques = append(uniques, m)
	}
	return uniques, duplicates
}
