package checkout

import "sync"

// Element is a mount point on a checkout page.
type Element interface {
	ID() string
	SetContent(html string)
}

// Document resolves elements by id.
type Document interface {
	ElementByID(id string) (Element, bool)
}

// Page is the server-rendered checkout page: a fixed set of named slots
// that widgets can be mounted into before the page is written out.
type Page struct {
	mu    sync.RWMutex
	slots map[string]*Slot
}

func NewPage(slotIDs ...string) *Page {
	p := &Page{slots: make(map[string]*Slot, len(slotIDs))}
	for _, id := range slotIDs {
		if id == "" {
			continue
		}
		p.slots[id] = &Slot{id: id}
	}
	return p
}

func (p *Page) ElementByID(id string) (Element, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.slots[id]
	if !ok {
		return nil, false
	}
	return s, true
}

// Content returns what has been mounted into slot id ("" when empty or absent).
func (p *Page) Content(id string) string {
	p.mu.RLock()
	s, ok := p.slots[id]
	p.mu.RUnlock()
	if !ok {
		return ""
	}
	return s.Content()
}

type Slot struct {
	id      string
	mu      sync.Mutex
	content string
}

func (s *Slot) ID() string { return s.id }

func (s *Slot) SetContent(html string) {
	s.mu.Lock()
	s.content = html
	s.mu.Unlock()
}

func (s *Slot) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}
