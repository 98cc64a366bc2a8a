package app

import (
	"sync"

	"github.com/Arideno/quiz-time/internal/domain"
)

// announcer fans newly published quiz summaries out to in-process subscribers
// (the websocket transport). Slow subscribers get stale updates dropped rather
// than blocking the publishing call.
type announcer struct {
	mu          sync.Mutex
	subscribers map[chan domain.QuizSummary]struct{}
}

func (a *announcer) init() {
	a.subscribers = make(map[chan domain.QuizSummary]struct{})
}

// Subscribe returns a channel receiving each quiz as it is published. The
// caller must invoke the returned cancel function to avoid leaks.
func (a *announcer) Subscribe() (<-chan domain.QuizSummary, func()) {
	ch := make(chan domain.QuizSummary, 8)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *announcer) announce(summary domain.QuizSummary) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for ch := range a.subscribers {
		select {
		case ch <- summary:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- summary
		}
	}
}
