// Package query lets a running Job or Handler body pause and ask a
// question of whatever is supervising the Commander, without blocking
// the Commander's own scheduling loop: only the asking goroutine
// blocks, on its own channel, while a separately-registered AnswerFunc
// computes the reply on its own goroutine.
package query

import (
	"context"
)

// Question is one outstanding ask from a TaskNode.
type Question struct {
	NodeID     string
	Content    string
	responseCh chan Answer
}

// Answer is the reply to a Question, or the error that prevented one.
type Answer struct {
	Content string
	Error   error
}

// AnswerFunc computes a reply to a question raised by the node
// identified by nodeID, using whatever context the supervisor
// maintains (the rest of the task tree, an LLM call, a human prompt).
type AnswerFunc func(ctx context.Context, nodeID string, question string) (string, error)

// Channel pairs a buffered question queue with a single AnswerFunc.
// One Channel is shared by every node wired to the same supervisor.
type Channel struct {
	questionCh chan Question
	answerFn   AnswerFunc
	done       chan struct{}
}

// NewChannel creates a Channel with the given buffer size and
// answering function. Size the buffer to comfortably exceed the
// number of nodes that might ask concurrently, so Ask's send never
// has to wait on handleQuestions draining the queue.
func NewChannel(bufferSize int, answerFn AnswerFunc) *Channel {
	return &Channel{
		questionCh: make(chan Question, bufferSize),
		answerFn:   answerFn,
		done:       make(chan struct{}),
	}
}

// Start launches the question handler goroutine. It drains questions
// until ctx is cancelled.
func (c *Channel) Start(ctx context.Context) {
	go c.handleQuestions(ctx)
}

func (c *Channel) handleQuestions(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case q := <-c.questionCh:
			content, err := c.answerFn(ctx, q.NodeID, q.Content)

			select {
			case <-ctx.Done():
				q.responseCh <- Answer{Error: ctx.Err()}
				return
			default:
				q.responseCh <- Answer{Content: content, Error: err}
			}
		}
	}
}

// Ask sends a question on behalf of nodeID and blocks the calling
// goroutine until an answer arrives or ctx is cancelled. It is safe to
// call from inside a Job or Handler body: only the calling goroutine
// blocks, so the Commander's scheduling loop and every other node keep
// running.
func (c *Channel) Ask(ctx context.Context, nodeID string, question string) (string, error) {
	responseCh := make(chan Answer, 1)
	q := Question{NodeID: nodeID, Content: question, responseCh: responseCh}

	select {
	case c.questionCh <- q:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case answer := <-responseCh:
		if answer.Error != nil {
			return "", answer.Error
		}
		return answer.Content, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Stop blocks until the handler goroutine started by Start has
// exited. Call it after the owning context has been cancelled.
func (c *Channel) Stop() {
	<-c.done
}
