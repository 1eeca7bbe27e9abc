package reports

import (
	"github.com/reportkit/splitcsv/internal/core"
)

func init() {
	registerMonthly()
}

// registerMonthly wires up the monthly development report. The group column
// header really does end in two question marks; that is how the upstream
// export emits it, and matching is exact.
func registerMonthly() {
	core.Register(core.ReportDefinition{
		Key:         "monthly",
		Label:       "Monthly Development Report",
		Description: "Splits the monthly export into one CSV per development",
		GroupColumn: "Development Name??",
	})
}
