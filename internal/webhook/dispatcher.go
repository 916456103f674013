package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/morris-shopline/shopline-tw-lab/internal/logging"
)

const (
	resultOK           = "ok"
	resultUnhandled    = "unhandled"
	resultHandlerError = "handler_error"
	resultError        = "error"
	resultRejected     = "rejected"

	ackMessage = "Webhook processed successfully"
)

// Handler reacts to an event. Handlers are best-effort: their failures
// are logged and do not change the reply.
type Handler interface {
	Handle(ctx context.Context, e *Event) error
}

type HandlerFunc func(ctx context.Context, e *Event) error

func (f HandlerFunc) Handle(ctx context.Context, e *Event) error {
	return f(ctx, e)
}

// Responder produces the whole reply for an event instead of the
// standard acknowledgment.
type Responder func(ctx context.Context, e *Event) (*Reply, error)

type Reply struct {
	ContentType string
	Body        []byte
}

// Dispatcher routes events by topic. Registration happens at startup;
// Dispatch is safe for concurrent use afterwards.
type Dispatcher struct {
	handlers   map[Topic]Handler
	responders map[Topic]Responder
	fallback   Handler
	events     *prometheus.CounterVec
}

func NewDispatcher(promRegisterer prometheus.Registerer) *Dispatcher {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total number of webhook deliveries by topic and result",
	}, []string{"topic", "result"})
	promRegisterer.MustRegister(events)

	return &Dispatcher{
		handlers:   make(map[Topic]Handler),
		responders: make(map[Topic]Responder),
		fallback: HandlerFunc(func(ctx context.Context, e *Event) error {
			logging.FromContext(ctx).WithField("topic", e.Topic).Info("unhandled webhook event")
			return nil
		}),
		events: events,
	}
}

func (d *Dispatcher) Register(topic Topic, h Handler) {
	d.handlers[topic] = h
}

func (d *Dispatcher) Respond(topic Topic, r Responder) {
	d.responders[topic] = r
}

// Fallback sets the handler of topics with no registered handler.
func (d *Dispatcher) Fallback(h Handler) {
	d.fallback = h
}

// Rejected counts a delivery turned away before dispatch.
func (d *Dispatcher) Rejected(topic Topic) {
	d.events.WithLabelValues(topic.metricLabel(), resultRejected).Inc()
}

// Dispatch runs the responder or handler of the event topic. The error is
// always a *DispatchError.
func (d *Dispatcher) Dispatch(ctx context.Context, e *Event) (reply *Reply, err error) {
	l := logging.FromContext(ctx).WithField("topic", e.Topic).WithField("eventID", e.ID)
	label := e.Topic.metricLabel()

	defer func() {
		if r := recover(); r != nil {
			reply = nil
			err = &DispatchError{Topic: e.Topic, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			l.WithError(err).Error("webhook dispatch failed")
			d.events.WithLabelValues(label, resultError).Inc()
		}
	}()

	if respond, ok := d.responders[e.Topic]; ok {
		r, rerr := respond(ctx, e)
		if rerr != nil {
			return nil, &DispatchError{Topic: e.Topic, Err: rerr}
		}
		d.events.WithLabelValues(label, resultOK).Inc()
		return r, nil
	}

	result := resultOK
	h, ok := d.handlers[e.Topic]
	if !ok {
		h = d.fallback
		result = resultUnhandled
	}
	if herr := runHandler(ctx, h, e); herr != nil {
		l.WithError(herr).Error("webhook handler failed")
		result = resultHandlerError
	}

	reply, err = ack(e)
	if err != nil {
		return nil, &DispatchError{Topic: e.Topic, Err: err}
	}
	d.events.WithLabelValues(label, result).Inc()
	return reply, nil
}

func runHandler(ctx context.Context, h Handler, e *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, e)
}

func ack(e *Event) (*Reply, error) {
	b, err := json.Marshal(map[string]any{
		"success":    true,
		"message":    ackMessage,
		"event_type": e.Topic,
		"event_id":   e.ID,
	})
	if err != nil {
		return nil, err
	}
	return &Reply{ContentType: "application/json", Body: b}, nil
}
