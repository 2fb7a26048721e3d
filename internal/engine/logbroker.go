package engine

import "sync"

const (
	// subscriberBufferSize is the channel buffer for each log subscriber.
	// Lines are dropped if a subscriber falls this far behind.
	subscriberBufferSize = 64

	// backlogSize is how many recent lines a running topic keeps for
	// subscribers that join mid-execution.
	backlogSize = subscriberBufferSize

	// closedMarkerLimit bounds how many finished executions are remembered.
	closedMarkerLimit = 1024
)

// LogBroker fans out execution output lines to live subscribers.
// It is safe for concurrent use.
//
// A subscriber that joins while an execution is running first receives the
// most recent lines. A subscriber that joins after the execution finished
// receives a closed channel; the persisted history covers that case.
type LogBroker struct {
	mu     sync.Mutex
	topics map[string]*logTopic
	closed []string
}

type logTopic struct {
	subs    map[int]chan string
	nextID  int
	backlog []string
	closed  bool
}

// NewLogBroker creates a new log broker.
func NewLogBroker() *LogBroker {
	return &LogBroker{
		topics: make(map[string]*logTopic),
	}
}

func (b *LogBroker) topic(executionID string) *logTopic {
	t, ok := b.topics[executionID]
	if !ok {
		t = &logTopic{subs: make(map[int]chan string)}
		b.topics[executionID] = t
	}
	return t
}

// Subscribe returns a channel of output lines for the given execution and an
// unsubscribe function. The channel is closed when the execution finishes.
func (b *LogBroker) Subscribe(executionID string) (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(executionID)
	ch := make(chan string, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	for _, line := range t.backlog {
		ch <- line
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends a line to all subscribers of the given execution. Lines are
// dropped for subscribers whose buffers are full.
func (b *LogBroker) Publish(executionID string, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(executionID)
	if t.closed {
		return
	}

	if len(t.backlog) == backlogSize {
		t.backlog = t.backlog[1:]
	}
	t.backlog = append(t.backlog, line)

	for _, ch := range t.subs {
		select {
		case ch <- line:
		default:
			// Never block execution on a slow subscriber.
		}
	}
}

// Close signals that no more lines will be published for the execution. All
// subscriber channels are closed and future Subscribe calls get a closed
// channel until the marker is evicted.
func (b *LogBroker) Close(executionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(executionID)
	if t.closed {
		return
	}
	t.closed = true
	t.backlog = nil
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}

	b.closed = append(b.closed, executionID)
	if len(b.closed) > closedMarkerLimit {
		delete(b.topics, b.closed[0])
		b.closed = b.closed[1:]
	}
}

// Topics returns the number of executions the broker currently tracks.
func (b *LogBroker) Topics() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics)
}
