package games

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InputKind distinguishes the pointer/keyboard events a game cares about.
type InputKind int

const (
	InputTap InputKind = iota
	InputKeyDown
	InputKeyUp
)

type Input struct {
	Kind InputKind
	Key  string
	X, Y float64
}

// Game is the capability boundary between game rules and whatever engine
// renders them. Rules live behind it; physics and drawing do not.
type Game interface {
	LoadAssets(ctx context.Context) error
	Tick(dt time.Duration)
	HandleInput(in Input)
	Score() int
}

// Registry maps game names to constructors so the HTTP surface can list and
// instantiate them.
type Registry struct {
	mu    sync.RWMutex
	games map[string]func() Game
}

func NewRegistry() *Registry {
	return &Registry{games: make(map[string]func() Game)}
}

func (r *Registry) Register(name string, ctor func() Game) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[name] = ctor
}

func (r *Registry) New(name string) (Game, error) {
	r.mu.RLock()
	ctor, ok := r.games[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown game %q", name)
	}
	return ctor(), nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.games))
	for n := range r.games {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
