package prober

// Stream yields candidate ids from start upward, one at a time. It stops once
// the next id passes the stop bound or needs more digits than the target
// allows. A Stream is not restartable and not safe for concurrent use.
type Stream struct {
	next      int64
	stop      int64
	maxDigits int
	exhausted bool
}

// NewStream builds a stream over [start, stop]. Pass Unbounded as stop to run
// until the digit limit is reached.
func NewStream(start, stop int64, maxDigits int) *Stream {
	return &Stream{
		next:      start,
		stop:      stop,
		maxDigits: maxDigits,
	}
}

// Next returns the next candidate id, or false once the stream is exhausted.
func (s *Stream) Next() (int64, bool) {
	if s.exhausted {
		return 0, false
	}
	id := s.next
	if (s.stop != Unbounded && id > s.stop) || Digits(id) > s.maxDigits {
		s.exhausted = true
		return 0, false
	}
	s.next++
	return id, true
}

// Exhausted reports whether Next has already signalled the end of the stream.
func (s *Stream) Exhausted() bool {
	return s.exhausted
}

// Digits returns the number of decimal digits in id. Zero and negative values
// count as a single digit.
func Digits(id int64) int {
	if id < 10 {
		return 1
	}
	n := 0
	for id > 0 {
		id /= 10
		n++
	}
	return n
}
