package models

import "time"

// DailyBar is one trading day as stored in the bars table.
type DailyBar struct {
	Timestamp     time.Time
	Symbol        string
	Open          float64
	High          float64
	Low           float64
	Close         float64
	AdjustedClose float64
	Volume        float64
}
