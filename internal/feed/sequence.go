package feed

import "sync/atomic"

// Sequencer numbers feed events; the first value is 1.
type Sequencer struct{ n atomic.Uint64 }

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 { return s.n.Add(1) }

// Last returns the most recently issued number, or 0.
func (s *Sequencer) Last() uint64 { return s.n.Load() }
