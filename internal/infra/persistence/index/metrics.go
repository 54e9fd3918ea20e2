package index

import "github.com/prometheus/client_golang/prometheus"

var EntryWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "addrstore",
	Subsystem: "index_manager",
	Name:      "entry_writes_total",
	Help:      "Index entries staged for write, by index and operation.",
}, []string{"index", "op"})

var UniqueViolations = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "addrstore",
	Subsystem: "index_manager",
	Name:      "unique_violations_total",
	Help:      "Writes rejected because the zip code was already taken.",
})

var Lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "addrstore",
	Subsystem: "index_manager",
	Name:      "lookups_total",
	Help:      "Secondary index lookups, by index.",
}, []string{"index"})

// Collectors returns the index metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{EntryWrites, UniqueViolations, Lookups}
}
