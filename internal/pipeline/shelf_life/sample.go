package shelf_life

// SampleRecords returns the three-product planning table used for demos and smoke tests.
// Daily sales trail demand by two units.
func SampleRecords() []ProductStockRecord {
	base := []struct {
		product string
		demand  float64
		stdDev  float64
		lead    float64
	}{
		{"Product A", 20, 5, 15},
		{"Product B", 30, 3, 25},
		{"Product C", 40, 6, 17},
	}

	records := make([]ProductStockRecord, len(base))
	for i, b := range base {
		sales := b.demand - 2
		records[i] = ProductStockRecord{
			Product:        b.product,
			DailyDemand:    b.demand,
			DemandStdDev:   b.stdDev,
			LeadTimeDays:   b.lead,
			ReviewTimeDays: 7,
			ServiceFactor:  1.96,
			DailySales:     &sales,
		}
	}
	return records
}
