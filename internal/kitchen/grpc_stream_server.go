package kitchen

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/kds/internal/logger"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	feedServiceName     = "kds.TicketFeed"
	feedSubscribeMethod = "/kds.TicketFeed/Subscribe"

	// EventTicketSnapshot marks the open tickets sent when a stream opens.
	EventTicketSnapshot EventType = "ticket.snapshot"
)

// feedService is implemented by EventStreamServer. Messages are
// google.protobuf.Struct so the service needs no generated stubs.
type feedService interface {
	subscribe(req *structpb.Struct, stream grpc.ServerStream) error
}

var feedServiceDesc = grpc.ServiceDesc{
	ServiceName: feedServiceName,
	HandlerType: (*feedService)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       feedSubscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "kds/feed",
}

func feedSubscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(feedService).subscribe(req, stream)
}

// EventStreamServer serves the change feed over a gRPC server stream.
type EventStreamServer struct {
	service TicketService
	logger  logger.Logger
}

func NewEventStreamServer(service TicketService, log logger.Logger) *EventStreamServer {
	if log == nil {
		log = logger.NewNoop()
	}
	return &EventStreamServer{
		service: service,
		logger:  log.With("component", "grpc_feed"),
	}
}

// RegisterGRPCService registers the feed with a gRPC server.
func (s *EventStreamServer) RegisterGRPCService(server grpc.ServiceRegistrar) {
	server.RegisterService(&feedServiceDesc, s)
}

// subscribe sends every open ticket as a ticket.snapshot event, then streams
// feed events until the client goes away. The optional request field
// "event_types" (list of strings) restricts which feed events are sent.
func (s *EventStreamServer) subscribe(req *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()
	allowed := eventTypeFilter(req)

	events, board, subscriberID := s.service.SubscribeBoard(ctx)
	s.logger.Info("new kitchen feed subscriber", "subscriber_id", subscriberID)
	defer s.logger.Info("kitchen feed subscriber disconnected", "subscriber_id", subscriberID)

	for i := range board.Tickets {
		view := board.Tickets[i]
		snapshot := Event{
			Type:       EventTicketSnapshot,
			OccurredAt: board.At,
			Ticket:     &view.Ticket,
			Evaluation: &view.Evaluation,
		}
		if err := sendFeedEvent(stream, snapshot); err != nil {
			s.logger.Errorf("failed to send initial ticket: %v", err)
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return fmt.Errorf("feed closed for subscriber %s", subscriberID)
			}
			if allowed != nil && !allowed[evt.Type] {
				continue
			}
			if err := sendFeedEvent(stream, evt); err != nil {
				s.logger.Errorf("failed to send event: %v", err)
				return err
			}
		}
	}
}

func eventTypeFilter(req *structpb.Struct) map[EventType]bool {
	if req == nil {
		return nil
	}
	list := req.GetFields()["event_types"].GetListValue()
	if list == nil || len(list.GetValues()) == 0 {
		return nil
	}
	allowed := make(map[EventType]bool, len(list.GetValues()))
	for _, v := range list.GetValues() {
		allowed[EventType(v.GetStringValue())] = true
	}
	return allowed
}

func sendFeedEvent(stream grpc.ServerStream, evt Event) error {
	msg, err := EventToStruct(evt)
	if err != nil {
		return err
	}
	return stream.SendMsg(msg)
}

// EventToStruct converts an event to its wire form: the JSON encoding of the
// event as a google.protobuf.Struct.
func EventToStruct(evt Event) (*structpb.Struct, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("cannot encode event: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("cannot decode event: %w", err)
	}
	return structpb.NewStruct(fields)
}

// EventFromStruct is the inverse of EventToStruct.
func EventFromStruct(msg *structpb.Struct) (Event, error) {
	data, err := msg.MarshalJSON()
	if err != nil {
		return Event{}, fmt.Errorf("cannot encode message: %w", err)
	}
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("cannot decode event: %w", err)
	}
	return evt, nil
}

// FeedStream is the client side of a feed subscription.
type FeedStream struct {
	stream grpc.ClientStream
}

// SubscribeFeed opens a feed stream on cc. eventTypes optionally restricts
// the live events received.
func SubscribeFeed(ctx context.Context, cc grpc.ClientConnInterface, eventTypes ...EventType) (*FeedStream, error) {
	stream, err := cc.NewStream(ctx, &feedServiceDesc.Streams[0], feedSubscribeMethod)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if len(eventTypes) > 0 {
		types := make([]interface{}, len(eventTypes))
		for i, t := range eventTypes {
			types[i] = string(t)
		}
		fields["event_types"] = types
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}

	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &FeedStream{stream: stream}, nil
}

// Recv blocks for the next event.
func (f *FeedStream) Recv() (Event, error) {
	msg := new(structpb.Struct)
	if err := f.stream.RecvMsg(msg); err != nil {
		return Event{}, err
	}
	return EventFromStruct(msg)
}
