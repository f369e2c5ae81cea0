package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-crm/pkg/serrors"
)

type EventBus interface {
	Publish(args ...interface{})
	PublishE(args ...interface{}) error
	Subscribe(handler interface{})
	Unsubscribe(handler interface{})
	Clear()
	SubscribersCount() int
}

var (
	ErrNoSubscribers        = serrors.NewError("EVENTBUS_NO_SUBSCRIBERS", "no matching subscribers", "")
	ErrInvalidHandlerReturn = serrors.NewError("EVENTBUS_INVALID_HANDLER_RETURN", "invalid handler return signature", "")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// publisherImpl dispatches synchronously to every handler whose parameter list accepts the
// published arguments. Subscriptions may change concurrently with publishing.
type publisherImpl struct {
	log         *logrus.Logger
	mu          sync.RWMutex
	subscribers []reflect.Value
}

func NewEventPublisher(log *logrus.Logger) EventBus {
	return &publisherImpl{log: log}
}

func MatchSignature(handler interface{}, args []interface{}) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}

	for i, arg := range args {
		paramType := t.In(i)
		if arg == nil {
			if paramType.Kind() != reflect.Interface && paramType.Kind() != reflect.Ptr {
				return false
			}
			continue
		}
		if !reflect.TypeOf(arg).AssignableTo(paramType) {
			return false
		}
	}
	return true
}

func argValues(handler reflect.Type, args []interface{}) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(handler.In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	return in
}

func (p *publisherImpl) matching(args []interface{}) []reflect.Value {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]reflect.Value, 0, len(p.subscribers))
	for _, s := range p.subscribers {
		if MatchSignature(s.Interface(), args) {
			out = append(out, s)
		}
	}
	return out
}

// call invokes handler and converts a panic or a non-nil error return into an error.
func call(handler reflect.Value, args []interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler %s panicked: %v", handler.Type().String(), r)
		}
	}()

	out := handler.Call(argValues(handler.Type(), args))
	switch {
	case len(out) == 0:
		return nil
	case len(out) > 1:
		return fmt.Errorf("%w: handler %s returned %d values", ErrInvalidHandlerReturn, handler.Type().String(), len(out))
	case out[0].Type() != errorType:
		return fmt.Errorf("%w: handler %s return type is %s", ErrInvalidHandlerReturn, handler.Type().String(), out[0].Type().String())
	case out[0].IsNil():
		return nil
	default:
		return out[0].Interface().(error)
	}
}

// Publish logs handler failures instead of returning them.
func (p *publisherImpl) Publish(args ...interface{}) {
	if err := p.PublishE(args...); err != nil && p.log != nil {
		if errors.Is(err, ErrNoSubscribers) {
			p.log.Warnf("eventbus.Publish: no matching subscribers for event with args: %v", args)
			return
		}
		p.log.WithError(err).Error("eventbus.Publish: handler failed")
	}
}

func (p *publisherImpl) PublishE(args ...interface{}) error {
	handlers := p.matching(args)
	if len(handlers) == 0 {
		return ErrNoSubscribers
	}
	var errs []error
	for _, h := range handlers {
		if err := call(h, args); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *publisherImpl) Subscribe(handler interface{}) {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		panic("handler must be a function")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, v)
}

// Unsubscribe removes the first subscription of the same function value.
func (p *publisherImpl) Unsubscribe(handler interface{}) {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.subscribers {
		if s.Pointer() == v.Pointer() {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			return
		}
	}
}

func (p *publisherImpl) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = nil
}

func (p *publisherImpl) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}
