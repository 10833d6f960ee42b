package orchestrator

// Waiters is the number of callers attached to key's in-flight run.
func (o *Orchestrator) Waiters(key string) int {
	o.flight.mu.Lock()
	defer o.flight.mu.Unlock()
	if c, ok := o.flight.calls[key]; ok {
		return c.waiters
	}
	return 0
}

func (o *Orchestrator) InFlight(key string) bool {
	o.flight.mu.Lock()
	defer o.flight.mu.Unlock()
	_, ok := o.flight.calls[key]
	return ok
}
