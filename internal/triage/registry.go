package triage

import "sync"

// Registry keeps one Board per staff member so paging and filters survive
// between requests
type Registry struct {
	newBoard func() *Board

	mu     sync.Mutex
	boards map[string]*Board
}

// NewRegistry creates a registry whose boards come from newBoard
func NewRegistry(newBoard func() *Board) *Registry {
	return &Registry{
		newBoard: newBoard,
		boards:   make(map[string]*Board),
	}
}

// For returns the board of username, creating it on first use. The second
// result is true when the board was just created.
func (r *Registry) For(username string) (*Board, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.boards[username]; ok {
		return b, false
	}
	b := r.newBoard()
	r.boards[username] = b
	return b, true
}

// Forget drops the board of username
func (r *Registry) Forget(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.boards, username)
}

// Len returns the number of boards held
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}
