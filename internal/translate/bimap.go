package translate

// Pair is one Flair value and the host value it maps to.
type Pair struct {
	Flair string
	Host  string
}

// BiMap is an immutable two-way lookup between Flair attribute values and
// host values. The reverse direction is built once from the forward pairs;
// when two Flair values share a host value, the later pair wins.
type BiMap struct {
	forward map[string]string
	reverse map[string]string
	flair   []string
	host    []string
}

// NewBiMap builds a BiMap from pairs in declaration order.
func NewBiMap(pairs ...Pair) *BiMap {
	m := &BiMap{
		forward: make(map[string]string, len(pairs)),
		reverse: make(map[string]string, len(pairs)),
	}

	for _, p := range pairs {
		if _, seen := m.forward[p.Flair]; !seen {
			m.flair = append(m.flair, p.Flair)
		}
		m.forward[p.Flair] = p.Host
	}

	// Inversion runs as a separate pass so a duplicate host value keeps
	// the last Flair value declared for it.
	seenHost := make(map[string]bool, len(pairs))
	for _, f := range m.flair {
		h := m.forward[f]
		m.reverse[h] = f
		if !seenHost[h] {
			seenHost[h] = true
			m.host = append(m.host, h)
		}
	}

	return m
}

// Forward translates a Flair value to its host value.
func (m *BiMap) Forward(flair string) (string, bool) {
	h, ok := m.forward[flair]
	return h, ok
}

// ForwardOr translates a Flair value, returning fallback when unknown.
func (m *BiMap) ForwardOr(flair, fallback string) string {
	if h, ok := m.forward[flair]; ok {
		return h
	}
	return fallback
}

// Reverse translates a host value to the Flair value that produces it.
func (m *BiMap) Reverse(host string) (string, bool) {
	f, ok := m.reverse[host]
	return f, ok
}

// ReverseOr translates a host value, returning fallback when unknown.
func (m *BiMap) ReverseOr(host, fallback string) string {
	if f, ok := m.reverse[host]; ok {
		return f
	}
	return fallback
}

// HostValues returns the distinct host values in declaration order.
func (m *BiMap) HostValues() []string {
	out := make([]string, len(m.host))
	copy(out, m.host)
	return out
}

// FlairValues returns the Flair values in declaration order.
func (m *BiMap) FlairValues() []string {
	out := make([]string, len(m.flair))
	copy(out, m.flair)
	return out
}

// Len returns the number of forward entries.
func (m *BiMap) Len() int {
	return len(m.forward)
}
