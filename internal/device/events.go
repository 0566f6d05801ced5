package device

// Subscribe returns a channel that receives every registry event from now
// on, and a function that ends the subscription and closes the channel.
//
// Delivery never blocks a mutation: when the channel buffer is full the
// event is dropped and counted in DroppedEvents. A buffer below one is
// treated as one.
func (r *Registry) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.subMu.Unlock()

	var done bool
	cancel := func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		if done {
			return
		}
		done = true
		delete(r.subs, id)
		close(ch)
	}
	return ch, cancel
}

// DroppedEvents returns how many events were discarded for slow subscribers.
func (r *Registry) DroppedEvents() uint64 {
	return r.dropped.Load()
}

// publish fans ev out to all subscribers without blocking.
func (r *Registry) publish(ev Event) {
	r.subMu.RLock()
	defer r.subMu.RUnlock()

	for _, ch := range r.subs {
		select {
		case ch <- ev:
		default:
			n := r.dropped.Add(1)
			if n == 1 || n%100 == 0 {
				r.logger.Warn("registry event dropped for slow subscriber", "dropped_total", n, "type", string(ev.Type))
			}
		}
	}
}
