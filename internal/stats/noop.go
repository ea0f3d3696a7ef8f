package stats

// Noop discards every metric. Readers, caches, and decompressors use it
// when no collector is configured.
type Noop struct{}

var _ Collector = Noop{}

// NewNoop returns a Noop collector.
func NewNoop() Noop {
	return Noop{}
}

func (Noop) IncCounter(string, int64)         {}
func (Noop) SetGauge(string, int64)           {}
func (Noop) ObserveHistogram(string, float64) {}
