package monitor

// Tracker holds the "to add" and "added" URL sets.
// Invariant: every added URL is also in the to-add set.
type Tracker struct {
	order []string
	toAdd map[string]struct{}
	added map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		toAdd: make(map[string]struct{}),
		added: make(map[string]struct{}),
	}
}

// Track adds url to the to-add set.
func (t *Tracker) Track(url string) {
	if _, ok := t.toAdd[url]; ok {
		return
	}
	t.toAdd[url] = struct{}{}
	t.order = append(t.order, url)
}

// MarkAdded moves url to the added set. It refuses untracked or already added URLs.
func (t *Tracker) MarkAdded(url string) bool {
	if _, ok := t.toAdd[url]; !ok {
		return false
	}
	if _, ok := t.added[url]; ok {
		return false
	}
	t.added[url] = struct{}{}
	return true
}

func (t *Tracker) IsAdded(url string) bool {
	_, ok := t.added[url]
	return ok
}

// Done reports whether the added set equals the to-add set.
func (t *Tracker) Done() bool {
	return len(t.added) == len(t.toAdd)
}

// Pending returns the URLs still waiting, in tracking order.
func (t *Tracker) Pending() []string {
	var pending []string
	for _, url := range t.order {
		if !t.IsAdded(url) {
			pending = append(pending, url)
		}
	}
	return pending
}

// Added returns the added URLs, in tracking order.
func (t *Tracker) Added() []string {
	var added []string
	for _, url := range t.order {
		if t.IsAdded(url) {
			added = append(added, url)
		}
	}
	return added
}

func (t *Tracker) Len() int {
	return len(t.toAdd)
}
