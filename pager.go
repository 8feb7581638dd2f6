package pdftl

// Pager translates directional intents into bounds-checked page numbers.
// A zero Total means the page count is not known yet.
type Pager struct {
	Current int
	Total   int
}

// NewPager returns a pager positioned at start (at least 1).
func NewPager(start, total int) Pager {
	if start < 1 {
		start = 1
	}
	p := Pager{Current: start}
	p.SetTotal(total)
	return p
}

// IsFirst reports whether the current page is the first one.
func (p Pager) IsFirst() bool {
	return p.Current == 1
}

// IsLast reports whether the current page is the last one. An unknown page
// count counts as last, so forward navigation waits for the backend.
func (p Pager) IsLast() bool {
	return p.Current == p.Total || p.Total == 0
}

// InRange reports whether n is a navigable page.
func (p Pager) InRange(n int) bool {
	if n < 1 {
		return false
	}
	return p.Total <= 0 || n <= p.Total
}

// Next returns the following page; ok is false on the last page.
func (p Pager) Next() (int, bool) {
	if p.IsLast() {
		return p.Current, false
	}
	return p.Jump(p.Current + 1)
}

// Previous returns the preceding page; ok is false on the first page.
func (p Pager) Previous() (int, bool) {
	if p.Current <= 1 {
		return p.Current, false
	}
	return p.Jump(p.Current - 1)
}

// First returns page 1.
func (p Pager) First() (int, bool) {
	return p.Jump(1)
}

// Last returns the last page; ok is false while the page count is unknown.
func (p Pager) Last() (int, bool) {
	if p.Total <= 0 {
		return p.Current, false
	}
	return p.Jump(p.Total)
}

// Jump returns n if it is in range; otherwise the current page and false.
func (p Pager) Jump(n int) (int, bool) {
	if !p.InRange(n) {
		return p.Current, false
	}
	return n, true
}

// SetTotal records the page count, clamping the current page down into range.
func (p *Pager) SetTotal(total int) {
	if total < 0 {
		total = 0
	}
	p.Total = total
	if p.Total > 0 && p.Current > p.Total {
		p.Current = p.Total
	}
}

// State returns the navigation state for display.
func (p Pager) State() NavigationState {
	return NavigationState{
		CurrentPage: p.Current,
		TotalPages:  p.Total,
		IsFirstPage: p.IsFirst(),
		IsLastPage:  p.IsLast(),
	}
}
