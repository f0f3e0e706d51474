package fleet

import "sync"

// vehicleLocks hands out one mutex per vehicle id so transitions on
// the same vehicle serialize while unrelated vehicles proceed in
// parallel. Locks are never removed; the fleet size bounds the map.
type vehicleLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newVehicleLocks() *vehicleLocks {
	return &vehicleLocks{locks: map[string]*sync.Mutex{}}
}

func (l *vehicleLocks) acquire(vehicleID string) *sync.Mutex {
	l.mu.Lock()
	m, ok := l.locks[vehicleID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[vehicleID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m
}
