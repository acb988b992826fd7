// Package view holds the per-session state of each screen: the cached
// collections a screen renders, its selection, pending work and the alert or
// confirmation it is showing. Everything here is pure; persistence lives
// behind ports.ViewStore.
package view

// RequestState tracks the in-flight status of one entity or action.
type RequestState string

const (
	Idle    RequestState = "idle"
	Pending RequestState = "pending"
	Failed  RequestState = "error"
)

// Alert is a blocking modal message shown once.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Success bool   `json:"success,omitempty"`
}

// Confirmation is a destructive action waiting for the user to confirm it.
type Confirmation struct {
	Action   string `json:"action"`
	TargetID string `json:"target_id"`
	Prompt   string `json:"prompt"`
}

// Matches reports whether c asks about action on target.
func (c *Confirmation) Matches(action, target string) bool {
	return c != nil && c.Action == action && c.TargetID == target
}

// Meta is the bookkeeping shared by every screen.
type Meta struct {
	// Generation is bumped each time the screen is mounted. A mutation that
	// started under another generation is discarded.
	Generation uint64 `json:"generation"`
	// Fresh marks a cache that was just spliced by a mutation and can be
	// rendered without fetching again.
	Fresh    bool                    `json:"fresh"`
	Alert    *Alert                  `json:"alert,omitempty"`
	Confirm  *Confirmation           `json:"confirm,omitempty"`
	Requests map[string]RequestState `json:"requests,omitempty"`
}

// Base exposes the embedded Meta of any screen.
func (m *Meta) Base() *Meta { return m }

// Mounted resets the bookkeeping after a full fetch.
func (m *Meta) Mounted() {
	m.Generation++
	m.Fresh = false
	m.Confirm = nil
	m.Requests = nil
}

// IsMounted reports whether the screen was ever mounted.
func (m *Meta) IsMounted() bool { return m.Generation > 0 }

// Request returns the state of key, Idle when unknown.
func (m *Meta) Request(key string) RequestState {
	if s, ok := m.Requests[key]; ok {
		return s
	}
	return Idle
}

func (m *Meta) SetRequest(key string, s RequestState) {
	if s == Idle {
		delete(m.Requests, key)
		return
	}
	if m.Requests == nil {
		m.Requests = make(map[string]RequestState)
	}
	m.Requests[key] = s
}

// Settle marks the cache renderable after a mutation. A screen that was never
// mounted still has to fetch.
func (m *Meta) Settle() {
	m.Fresh = m.IsMounted()
}

// Fail records a failed action and raises an alert.
func (m *Meta) Fail(key string, a Alert) {
	m.SetRequest(key, Failed)
	m.Alert = &a
	m.Settle()
}

// Ask stores a confirmation prompt for a destructive action.
func (m *Meta) Ask(c Confirmation) {
	m.Confirm = &c
	m.Settle()
}

// Dismiss clears the alert and any pending confirmation.
func (m *Meta) Dismiss() {
	m.Alert = nil
	m.Confirm = nil
	m.Settle()
}

// Key builds a request-state key for one entity.
func Key(kind, id string) string {
	return kind + ":" + id
}

func removeFunc[T any](items []T, drop func(T) bool) []T {
	out := items[:0:0]
	for _, it := range items {
		if !drop(it) {
			out = append(out, it)
		}
	}
	return out
}

func replaceFunc[T any](items []T, match func(T) bool, next T) []T {
	out := make([]T, len(items))
	for i, it := range items {
		if match(it) {
			out[i] = next
		} else {
			out[i] = it
		}
	}
	return out
}

func prepend[T any](items []T, head T) []T {
	return append([]T{head}, items...)
}
