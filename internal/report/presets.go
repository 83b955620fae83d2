package report

// BackendConfig returns the report labels and optional columns for a
// backend. QRadar gets the aggregated and unparsed columns because
// Ariel coalesces records and flags unparsed events; the other backends
// have no equivalent.
func BackendConfig(backend string) Config {
	switch backend {
	case "qradar":
		return Config{
			SIEMName:          "qradar",
			DisplayName:       "IBM QRadar",
			SourceLabel:       "Log Source",
			TypeLabel:         "Log Source Type",
			IncludeAggregated: true,
			IncludeUnparsed:   true,
		}
	case "splunk":
		return Config{
			SIEMName:    "splunk",
			DisplayName: "Splunk",
			SourceLabel: "Source [Index]",
			TypeLabel:   "Sourcetype",
		}
	case "secops":
		return Config{
			SIEMName:    "secops",
			DisplayName: "Google SecOps",
			SourceLabel: "Product (Vendor)",
			TypeLabel:   "Log Type",
		}
	default:
		return Config{SIEMName: backend, DisplayName: "SIEM"}
	}
}
