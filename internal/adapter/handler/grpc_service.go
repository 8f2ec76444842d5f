package handler

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// Messages travel as JSON; clients select the codec with the "json" content
// subtype, which NewScheduleClient does by default.
const (
	jsonCodecName       = "json"
	scheduleServiceName = "productionschedule.v1.ScheduleService"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

type CreateScheduleRequest struct {
	RequestID     string `json:"request_id"`
	ProductID     string `json:"product_id"`
	ScheduledDate string `json:"scheduled_date"`
	Quantity      int32  `json:"quantity"`
}

type SetScheduleStatusRequest struct {
	ScheduleID string `json:"schedule_id"`
	Status     string `json:"status"`
}

type GetScheduleRequest struct {
	ScheduleID string `json:"schedule_id"`
}

type DeleteScheduleRequest struct {
	ScheduleID string `json:"schedule_id"`
}

type DeleteScheduleResponse struct{}

type ListSchedulesRequest struct {
	ScheduledDate string `json:"scheduled_date"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Status        string `json:"status"`
	Limit         int32  `json:"limit"`
	Offset        int32  `json:"offset"`
}

type ListSchedulesResponse struct {
	Schedules []ScheduleMessage `json:"schedules"`
}

type ScheduleServiceServer interface {
	CreateOrAccumulateSchedule(context.Context, *CreateScheduleRequest) (*ScheduleMessage, error)
	SetScheduleStatus(context.Context, *SetScheduleStatusRequest) (*ScheduleMessage, error)
	GetSchedule(context.Context, *GetScheduleRequest) (*ScheduleMessage, error)
	DeleteSchedule(context.Context, *DeleteScheduleRequest) (*DeleteScheduleResponse, error)
	ListSchedules(context.Context, *ListSchedulesRequest) (*ListSchedulesResponse, error)
}

func RegisterScheduleServiceServer(s grpc.ServiceRegistrar, srv ScheduleServiceServer) {
	s.RegisterService(&scheduleServiceDesc, srv)
}

var scheduleServiceDesc = grpc.ServiceDesc{
	ServiceName: scheduleServiceName,
	HandlerType: (*ScheduleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateOrAccumulateSchedule",
			Handler:    unaryHandler("CreateOrAccumulateSchedule", ScheduleServiceServer.CreateOrAccumulateSchedule),
		},
		{
			MethodName: "SetScheduleStatus",
			Handler:    unaryHandler("SetScheduleStatus", ScheduleServiceServer.SetScheduleStatus),
		},
		{
			MethodName: "GetSchedule",
			Handler:    unaryHandler("GetSchedule", ScheduleServiceServer.GetSchedule),
		},
		{
			MethodName: "DeleteSchedule",
			Handler:    unaryHandler("DeleteSchedule", ScheduleServiceServer.DeleteSchedule),
		},
		{
			MethodName: "ListSchedules",
			Handler:    unaryHandler("ListSchedules", ScheduleServiceServer.ListSchedules),
		},
	},
	Streams: []grpc.StreamDesc{},
}

func unaryHandler[Req, Resp any](method string, call func(ScheduleServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(ScheduleServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + scheduleServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ScheduleClient calls ScheduleService over a gRPC connection.
type ScheduleClient struct {
	cc grpc.ClientConnInterface
}

func NewScheduleClient(cc grpc.ClientConnInterface) *ScheduleClient {
	return &ScheduleClient{cc: cc}
}

func (c *ScheduleClient) CreateOrAccumulateSchedule(ctx context.Context, in *CreateScheduleRequest, opts ...grpc.CallOption) (*ScheduleMessage, error) {
	out := new(ScheduleMessage)
	if err := c.invoke(ctx, "CreateOrAccumulateSchedule", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScheduleClient) SetScheduleStatus(ctx context.Context, in *SetScheduleStatusRequest, opts ...grpc.CallOption) (*ScheduleMessage, error) {
	out := new(ScheduleMessage)
	if err := c.invoke(ctx, "SetScheduleStatus", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScheduleClient) GetSchedule(ctx context.Context, in *GetScheduleRequest, opts ...grpc.CallOption) (*ScheduleMessage, error) {
	out := new(ScheduleMessage)
	if err := c.invoke(ctx, "GetSchedule", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScheduleClient) DeleteSchedule(ctx context.Context, in *DeleteScheduleRequest, opts ...grpc.CallOption) (*DeleteScheduleResponse, error) {
	out := new(DeleteScheduleResponse)
	if err := c.invoke(ctx, "DeleteSchedule", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScheduleClient) ListSchedules(ctx context.Context, in *ListSchedulesRequest, opts ...grpc.CallOption) (*ListSchedulesResponse, error) {
	out := new(ListSchedulesResponse)
	if err := c.invoke(ctx, "ListSchedules", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScheduleClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsonCodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+scheduleServiceName+"/"+method, in, out, opts...)
}
