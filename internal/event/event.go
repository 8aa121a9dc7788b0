// Event names for the download pipeline and a small coordinator for
// routing them. Services communicate through the coordinator rather
// than holding references to one another.
package event

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/hbomb79/Hermes/pkg/logger"
)

var log = logger.Get("Events")

type (
	Event         string
	Payload       any
	HandlerMethod func(Event, Payload)

	HandlerChannel chan HandlerEvent
	HandlerEvent   struct {
		Event   Event
		Payload Payload
	}

	// ProgressSignal is the payload carried by DownloadProgressEvent. It is
	// a single correlated progress sample from yt-dlp: a percentage while
	// downloading, or the Finished marker once yt-dlp's own retrieval is
	// done (post-processing may still follow).
	ProgressSignal struct {
		DownloadID uuid.UUID
		Percent    float64
		Finished   bool
	}

	EventDispatcher interface {
		Dispatch(Event, Payload)
	}

	EventHandler interface {
		RegisterAsyncHandlerFunction(Event, HandlerMethod)
		RegisterHandlerFunction(Event, HandlerMethod)
		RegisterHandlerChannel(HandlerChannel, ...Event)
	}

	EventCoordinator interface {
		EventDispatcher
		EventHandler
	}

	eventHandler struct {
		fnHandlers   map[Event][]handlerMethod
		chanHandlers map[Event][]HandlerChannel
	}

	handlerMethod struct {
		handle HandlerMethod
		async  bool
	}
)

// DownloadUpdateEvent and DownloadCompleteEvent carry the download ID
// whose state changed; DownloadProgressEvent carries a ProgressSignal.
const (
	DownloadUpdateEvent   Event = "download:update"
	DownloadCompleteEvent Event = "download:complete"
	DownloadProgressEvent Event = "download:update:progress"
)

func New() EventCoordinator {
	return &eventHandler{
		fnHandlers:   make(map[Event][]handlerMethod),
		chanHandlers: make(map[Event][]HandlerChannel),
	}
}

// RegisterHandlerChannel subscribes the given channel to each of the
// events listed. A channel may be subscribed to many events, and an
// event may feed many channels.
//
// A subscribed channel that is full when Dispatch tries to send on it
// has that message DROPPED (progress delivery is best-effort), so
// buffer handler channels appropiately to avoid message loss.
func (handler *eventHandler) RegisterHandlerChannel(handle HandlerChannel, events ...Event) {
	for _, event := range events {
		handler.chanHandlers[event] = append(handler.chanHandlers[event], handle)
	}
}

// RegisterHandlerFunction subscribes a function which is invoked inline
// by Dispatch. Handlers registered this way must return promptly as
// they stall the dispatching goroutine while running.
func (handler *eventHandler) RegisterHandlerFunction(event Event, handle HandlerMethod) {
	handler.fnHandlers[event] = append(handler.fnHandlers[event], handlerMethod{handle, false})
}

// RegisterAsyncHandlerFunction subscribes a function which is invoked
// on its own goroutine per dispatch, so slow handlers cannot hold up
// the dispatcher.
func (handler *eventHandler) RegisterAsyncHandlerFunction(event Event, handle HandlerMethod) {
	handler.fnHandlers[event] = append(handler.fnHandlers[event], handlerMethod{handle, true})
}

// Dispatch validates the payload against the event and delivers it to
// every subscribed function and channel. Synchronous function handlers
// run inline; channel handlers whose buffers are full are skipped.
func (handler *eventHandler) Dispatch(event Event, payload Payload) {
	if err := handler.validatePayload(event, payload); err != nil {
		log.Emit(logger.FATAL, "Dispatch for event %v FAILED validation: %v\n", event, err)
		return
	}

	for _, handle := range handler.fnHandlers[event] {
		if handle.async {
			go handle.handle(event, payload)
		} else {
			handle.handle(event, payload)
		}
	}

	if handles, ok := handler.chanHandlers[event]; ok {
		message := HandlerEvent{event, payload}
		for _, handle := range handles {
			select {
			case handle <- message:
			default:
				log.Emit(logger.WARNING, "Handler channel for event %v is full, message dropped\n", event)
			}
		}
	}
}

// validatePayload checks the payload is of the type the event promises
// to its subscribers. Dispatch refuses to deliver a mistyped payload.
func (handler *eventHandler) validatePayload(event Event, payload Payload) error {
	var expected string
	switch event {
	case DownloadUpdateEvent, DownloadCompleteEvent:
		if _, ok := payload.(uuid.UUID); ok {
			return nil
		}

		expected = "uuid.UUID"
	case DownloadProgressEvent:
		if _, ok := payload.(ProgressSignal); ok {
			return nil
		}

		expected = "ProgressSignal"
	default:
		return errors.New("event type not recognized for validation")
	}

	return fmt.Errorf("illegal payload (type %s) for %s event. Expected %s payload", payloadTypeName(payload), event, expected)
}

func payloadTypeName(payload Payload) string {
	if t := reflect.TypeOf(payload); t != nil {
		return t.Name()
	}

	return "Nil"
}
