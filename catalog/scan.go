package catalog

import "github.com/arloliu/remotesim/sampler"

// ScanOutcome is the modeled result of a device scan.
type ScanOutcome string

const (
	// ScanSuccess returns the full device list.
	ScanSuccess ScanOutcome = "success"
	// ScanFailure returns no devices.
	ScanFailure ScanOutcome = "failure"
	// ScanPartial returns one or two devices.
	ScanPartial ScanOutcome = "partial"
	// ScanTimeout returns stale cached devices with degraded signal.
	ScanTimeout ScanOutcome = "timeout"
)

// ScanOutcomes lists every outcome in table order.
var ScanOutcomes = []ScanOutcome{ScanSuccess, ScanFailure, ScanPartial, ScanTimeout}

// ScanTable returns ScanWeights as a weighted table in a fixed order.
func (c *Catalog) ScanTable() []sampler.Weighted[ScanOutcome] {
	table := make([]sampler.Weighted[ScanOutcome], 0, len(ScanOutcomes))
	for _, o := range ScanOutcomes {
		if w, ok := c.ScanWeights[o]; ok {
			table = append(table, sampler.W(w, o))
		}
	}

	return table
}
