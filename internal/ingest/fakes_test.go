package ingest

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	domain "github.com/Camillus83/eventmanager/internal/domain/event"
	"github.com/Camillus83/eventmanager/internal/logging"
)

func TestMain(m *testing.M) {
	logging.InitTestLogger()
	os.Exit(m.Run())
}

// fakeStore отдаёт ошибки из script по порядку вызовов, дальше — успех.
type fakeStore struct {
	mu     sync.Mutex
	calls  []domain.Input
	script []error
	always error
	events []domain.Event
	onCall func(n int, in domain.Input)
}

func (s *fakeStore) CreateEvent(_ context.Context, in domain.Input) (domain.Event, error) {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, in)
	hook := s.onCall
	var err error
	switch {
	case s.always != nil:
		err = s.always
	case n < len(s.script):
		err = s.script[n]
	}
	var ev domain.Event
	if err == nil {
		ev = domain.Event{
			ID:          int64(len(s.events) + 1),
			UUID:        uuid.NewString(),
			Name:        in.Name,
			Source:      in.Source,
			Description: in.Description,
			CreatedAt:   time.Now().UTC(),
		}
		s.events = append(s.events, ev)
	}
	s.mu.Unlock()

	if hook != nil {
		hook(n, in)
	}
	return ev, err
}

func (s *fakeStore) callNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.Name)
	}
	return out
}

func (s *fakeStore) created() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

var errCommitLost = errors.New("commit lost")

// memStream — разделённый на партиции лог с явными коммитами.
type memStream struct {
	mu         sync.Mutex
	msgs       []Message
	pos        int
	block      bool
	committed  map[int]int64
	commits    []Message
	failCommit func(Message) bool
}

func newMemStream(msgs ...Message) *memStream {
	return &memStream{msgs: msgs, committed: map[int]int64{}}
}

func (s *memStream) Fetch(ctx context.Context) (Message, error) {
	s.mu.Lock()
	if s.pos < len(s.msgs) {
		m := s.msgs[s.pos]
		s.pos++
		s.mu.Unlock()
		return m, nil
	}
	block := s.block
	s.mu.Unlock()

	if !block {
		return Message{}, ErrStreamClosed
	}
	<-ctx.Done()
	return Message{}, ctx.Err()
}

func (s *memStream) Commit(_ context.Context, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		if s.failCommit != nil && s.failCommit(m) {
			return errCommitLost
		}
		if next := m.Offset + 1; next > s.committed[m.Partition] {
			s.committed[m.Partition] = next
		}
		s.commits = append(s.commits, m)
	}
	return nil
}

// restart is what a new process sees: everything from the committed offsets on.
func (s *memStream) restart() *memStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := &memStream{committed: map[int]int64{}}
	for p, o := range s.committed {
		next.committed[p] = o
	}
	for _, m := range s.msgs {
		if m.Offset >= s.committed[m.Partition] {
			next.msgs = append(next.msgs, m)
		}
	}
	return next
}

func (s *memStream) fetched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *memStream) commitLog() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.commits...)
}

type recordingSink struct {
	mu       sync.Mutex
	failures []Failure
}

func (r *recordingSink) Record(_ context.Context, f Failure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
	return nil
}

func (r *recordingSink) recorded() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Failure(nil), r.failures...)
}

func msg(partition int, offset int64, value string) Message {
	return Message{Topic: "events", Partition: partition, Offset: offset, Value: []byte(value)}
}

func noWait(ctx context.Context, _ time.Duration) error { return ctx.Err() }
