package sim

// ErlangB returns the blocking probability of an M/M/c/c loss system with
// the given number of servers and offered load in Erlangs. A single-link
// bus (NodeCount == 2) is exactly such a system with c = WavelengthCount,
// so the value serves as an analytic reference for those runs.
//
// Uses the stable recurrence B(0) = 1, B(k) = A·B(k-1) / (k + A·B(k-1)).
func ErlangB(servers int, load float64) float64 {
	if servers < 0 || load < 0 {
		return 0
	}
	b := 1.0
	for k := 1; k <= servers; k++ {
		b = load * b / (float64(k) + load*b)
	}
	return b
}

// AnalyticBlocking returns the Erlang-B reference for cfg and whether it is
// exact. It is exact only for a single-link bus, where every mode reduces to
// c = WavelengthCount parallel servers.
func AnalyticBlocking(cfg Config) (float64, bool) {
	if cfg.NodeCount != 2 {
		return 0, false
	}
	return ErlangB(cfg.WavelengthCount, cfg.OfferedLoad()), true
}
