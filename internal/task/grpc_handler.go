package task

import (
	"context"

	"github.com/CognitionIES/teamsync/internal/auth"
	"github.com/CognitionIES/teamsync/internal/dto"
	"github.com/CognitionIES/teamsync/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "teamsync.tracker.v1.TaskService"

// TaskServiceServer - gRPC API движка; сообщения - те же DTO, что и в HTTP, в JSON кодеке
type TaskServiceServer interface {
	AssignItems(ctx context.Context, req *dto.AssignItemsRequest) (*dto.TaskResponse, error)
	AssignPID(ctx context.Context, req *dto.AssignPIDRequest) (*dto.AssignPIDResponse, error)
	MarkPIDItem(ctx context.Context, req *dto.MarkPIDItemRequest) (*dto.MarkItemResponse, error)
	CompleteWorkItem(ctx context.Context, req *dto.CompleteWorkItemRequest) (*dto.MarkItemResponse, error)
	UpdateTaskStatus(ctx context.Context, req *dto.UpdateTaskStatusRequest) (*dto.TaskResponse, error)
	GetTask(ctx context.Context, req *dto.GetTaskRequest) (*dto.TaskResponse, error)
}

var TaskServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TaskServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("AssignItems", TaskServiceServer.AssignItems),
		unary("AssignPID", TaskServiceServer.AssignPID),
		unary("MarkPIDItem", TaskServiceServer.MarkPIDItem),
		unary("CompleteWorkItem", TaskServiceServer.CompleteWorkItem),
		unary("UpdateTaskStatus", TaskServiceServer.UpdateTaskStatus),
		unary("GetTask", TaskServiceServer.GetTask),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "teamsync/tracker/v1/task.json",
}

func RegisterTaskServiceServer(s grpc.ServiceRegistrar, srv TaskServiceServer) {
	s.RegisterService(&TaskServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(TaskServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(TaskServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(server, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// GrpcHandler реализует TaskServiceServer поверх Service
type GrpcHandler struct {
	service Service
}

func NewGrpcHandler(service Service) *GrpcHandler {
	return &GrpcHandler{service: service}
}

func grpcPrincipal(ctx context.Context) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return auth.Principal{}, status.Error(codes.Unauthenticated, "authorization required")
	}
	return p, nil
}

func (h *GrpcHandler) AssignItems(ctx context.Context, req *dto.AssignItemsRequest) (*dto.TaskResponse, error) {
	actor, err := grpcPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	in, err := assignItemsInput(*req)
	if err != nil {
		return nil, rpc.Error("AssignItems", err)
	}
	details, err := h.service.AssignItems(ctx, actor, in)
	if err != nil {
		return nil, rpc.Error("AssignItems", err)
	}
	resp := toDetailsResponse(details)
	return &resp, nil
}

func (h *GrpcHandler) AssignPID(ctx context.Context, req *dto.AssignPIDRequest) (*dto.AssignPIDResponse, error) {
	actor, err := grpcPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	in, err := assignPIDInput(*req)
	if err != nil {
		return nil, rpc.Error("AssignPID", err)
	}
	result, err := h.service.AssignPID(ctx, actor, in)
	if err != nil {
		return nil, rpc.Error("AssignPID", err)
	}
	resp := toAssignPIDResponse(result)
	return &resp, nil
}

func (h *GrpcHandler) MarkPIDItem(ctx context.Context, req *dto.MarkPIDItemRequest) (*dto.MarkItemResponse, error) {
	actor, err := grpcPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	in, err := markInput(*req)
	if err != nil {
		return nil, rpc.Error("MarkPIDItem", err)
	}
	result, err := h.service.MarkPIDItem(ctx, actor, in)
	if err != nil {
		return nil, rpc.Error("MarkPIDItem", err)
	}
	resp := toMarkResponse(result)
	return &resp, nil
}

func (h *GrpcHandler) CompleteWorkItem(ctx context.Context, req *dto.CompleteWorkItemRequest) (*dto.MarkItemResponse, error) {
	actor, err := grpcPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(req.ID, "id")
	if err != nil {
		return nil, rpc.Error("CompleteWorkItem", err)
	}
	result, err := h.service.CompleteWorkItem(ctx, actor, id, req.Blocks)
	if err != nil {
		return nil, rpc.Error("CompleteWorkItem", err)
	}
	resp := toCompleteResponse(result)
	return &resp, nil
}

func (h *GrpcHandler) UpdateTaskStatus(ctx context.Context, req *dto.UpdateTaskStatusRequest) (*dto.TaskResponse, error) {
	actor, err := grpcPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(req.ID, "id")
	if err != nil {
		return nil, rpc.Error("UpdateTaskStatus", err)
	}
	t, err := h.service.UpdateTaskStatus(ctx, actor, id, Status(req.Status))
	if err != nil {
		return nil, rpc.Error("UpdateTaskStatus", err)
	}
	resp := toTaskResponse(t)
	return &resp, nil
}

func (h *GrpcHandler) GetTask(ctx context.Context, req *dto.GetTaskRequest) (*dto.TaskResponse, error) {
	actor, err := grpcPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(req.ID, "id")
	if err != nil {
		return nil, rpc.Error("GetTask", err)
	}
	details, err := h.service.GetTask(ctx, actor, id)
	if err != nil {
		return nil, rpc.Error("GetTask", err)
	}
	resp := toDetailsResponse(details)
	return &resp, nil
}

// TaskServiceClient - клиент для сервисов, вызывающих движок по gRPC
type TaskServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTaskServiceClient(cc grpc.ClientConnInterface) *TaskServiceClient {
	return &TaskServiceClient{cc: cc}
}

func (c *TaskServiceClient) invoke(ctx context.Context, method string, in, out interface{}, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(rpc.CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *TaskServiceClient) AssignItems(ctx context.Context, in *dto.AssignItemsRequest, opts ...grpc.CallOption) (*dto.TaskResponse, error) {
	out := new(dto.TaskResponse)
	if err := c.invoke(ctx, "AssignItems", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TaskServiceClient) AssignPID(ctx context.Context, in *dto.AssignPIDRequest, opts ...grpc.CallOption) (*dto.AssignPIDResponse, error) {
	out := new(dto.AssignPIDResponse)
	if err := c.invoke(ctx, "AssignPID", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TaskServiceClient) MarkPIDItem(ctx context.Context, in *dto.MarkPIDItemRequest, opts ...grpc.CallOption) (*dto.MarkItemResponse, error) {
	out := new(dto.MarkItemResponse)
	if err := c.invoke(ctx, "MarkPIDItem", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TaskServiceClient) CompleteWorkItem(ctx context.Context, in *dto.CompleteWorkItemRequest, opts ...grpc.CallOption) (*dto.MarkItemResponse, error) {
	out := new(dto.MarkItemResponse)
	if err := c.invoke(ctx, "CompleteWorkItem", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TaskServiceClient) UpdateTaskStatus(ctx context.Context, in *dto.UpdateTaskStatusRequest, opts ...grpc.CallOption) (*dto.TaskResponse, error) {
	out := new(dto.TaskResponse)
	if err := c.invoke(ctx, "UpdateTaskStatus", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TaskServiceClient) GetTask(ctx context.Context, in *dto.GetTaskRequest, opts ...grpc.CallOption) (*dto.TaskResponse, error) {
	out := new(dto.TaskResponse)
	if err := c.invoke(ctx, "GetTask", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
