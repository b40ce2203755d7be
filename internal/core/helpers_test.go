package core

import (
	"time"
)

func f64(v float64) *float64 { return &v }

func str(s string) *string { return &s }

var fixtureDate = time.Date(2020, 5, 6, 0, 0, 0, 0, time.UTC)

// trendRow builds a measurement keyed the way the trend pipeline pivots:
// station + sample + date + type + matrix.
func trendRow(station, sample, param string, value *float64, qualifier string) Measurement {
	return Measurement{
		StationID:      station,
		SampleID:       str(sample),
		WaterResource:  str("IWR12"),
		CollectionDate: fixtureDate,
		SampleType:     "SAMP",
		Matrix:         "WATER",
		ParameterName:  param,
		Value:          value,
		ValueQualifier: qualifier,
	}
}

type captureLogger struct {
	debugs []string
	infos  []string
	warns  []string
	errors []string
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.debugs = append(c.debugs, msg) }

func (c *captureLogger) Info(msg string, _ ...any) { c.infos = append(c.infos, msg) }

func (c *captureLogger) Warn(msg string, _ ...any) { c.warns = append(c.warns, msg) }

func (c *captureLogger) Error(msg string, _ ...any) { c.errors = append(c.errors, msg) }
