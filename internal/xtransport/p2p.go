package xtransport

// Send delivers data to world rank `to`, tagged, asynchronously queued
// (the reference transport never blocks a sender on a slow receiver).
func (w *World) Send(to, tag, from int, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	w.units[to].mailbox.push(mailMsg{from: from, tag: tag, data: cp})
	return nil
}

// Recv blocks until a message tagged `tag` from `from` (or any sender,
// if from < 0) is available at world rank `self`, and returns the
// sender's world rank alongside the payload.
func (w *World) Recv(self, tag, from int) (int, []byte) {
	return w.units[self].mailbox.pop(tag, from)
}

// Iprobe reports whether a matching message is already queued, without
// consuming it (spec §4.G: flush "pokes transport progress" via Iprobe).
func (w *World) Iprobe(self, tag, from int) bool {
	return w.units[self].mailbox.probe(tag, from)
}
