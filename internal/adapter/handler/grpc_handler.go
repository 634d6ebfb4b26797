package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/obesho/internal/core/domain"
	"github.com/rl1809/obesho/internal/core/service"
)

const (
	orderServiceName = "obesho.v1.OrderService"

	addItemMethod    = "/" + orderServiceName + "/AddItem"
	getOrderMethod   = "/" + orderServiceName + "/GetOrder"
	getCatalogMethod = "/" + orderServiceName + "/GetCatalog"

	// MetadataIdempotencyKey plays the role of the Idempotency-Key HTTP header.
	MetadataIdempotencyKey = "idempotency-key"
	MetadataRequestID      = "x-request-id"
)

type OrderServiceServer interface {
	AddItem(context.Context, *AddItemRequest) (*AddItemResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*OrderDTO, error)
	GetCatalog(context.Context, *GetCatalogRequest) (*CatalogResponse, error)
}

type GRPCHandler struct {
	orders  *service.OrderComposer
	catalog *service.CatalogService
}

func NewGRPCHandler(orders *service.OrderComposer, catalog *service.CatalogService) *GRPCHandler {
	return &GRPCHandler{orders: orders, catalog: catalog}
}

func (h *GRPCHandler) AddItem(ctx context.Context, req *AddItemRequest) (*AddItemResponse, error) {
	dreq, err := req.toDomain()
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := h.orders.AddItemOnce(ctx, firstMetadata(ctx, MetadataIdempotencyKey), dreq)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := newAddItemResponse(res)
	return &resp, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderDTO, error) {
	order, err := h.orders.Order(ctx, domain.OrderID(req.OrderID))
	if err != nil {
		return nil, toStatus(err)
	}
	resp := newOrderDTO(order)
	return &resp, nil
}

func (h *GRPCHandler) GetCatalog(ctx context.Context, _ *GetCatalogRequest) (*CatalogResponse, error) {
	catalog, err := h.catalog.Catalog(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := newCatalogResponse(catalog)
	return &resp, nil
}

func toStatus(err error) error {
	code, msg := grpcCode(err)
	return status.Error(code, msg)
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

// NewGRPCServer returns a server with the order service registered and request logging installed.
func NewGRPCServer(h OrderServiceServer, log *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(RequestLoggingInterceptor(log)))
	s := grpc.NewServer(opts...)
	RegisterOrderServiceServer(s, h)
	return s
}

// RequestLoggingInterceptor tags every call with a request id, echoed back in the response header.
func RequestLoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		requestID := firstMetadata(ctx, MetadataRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(MetadataRequestID, requestID))

		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestID),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		log.Info("rpc", fields...)
		return resp, err
	}
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

// OrderServiceDesc describes obesho.v1.OrderService for messages encoded with jsonCodec.
var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: orderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddItem", Handler: addItemHandler},
		{MethodName: "GetOrder", Handler: getOrderHandler},
		{MethodName: "GetCatalog", Handler: getCatalogHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func addItemHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AddItemRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).AddItem(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: addItemMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderServiceServer).AddItem(ctx, req.(*AddItemRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).GetOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getOrderMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderServiceServer).GetOrder(ctx, req.(*GetOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getCatalogHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetCatalogRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).GetCatalog(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getCatalogMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderServiceServer).GetCatalog(ctx, req.(*GetCatalogRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// OrderServiceClient calls obesho.v1.OrderService with the json content subtype.
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) AddItem(ctx context.Context, in *AddItemRequest, opts ...grpc.CallOption) (*AddItemResponse, error) {
	out := new(AddItemResponse)
	if err := c.cc.Invoke(ctx, addItemMethod, in, out, c.callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*OrderDTO, error) {
	out := new(OrderDTO)
	if err := c.cc.Invoke(ctx, getOrderMethod, in, out, c.callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) GetCatalog(ctx context.Context, in *GetCatalogRequest, opts ...grpc.CallOption) (*CatalogResponse, error) {
	out := new(CatalogResponse)
	if err := c.cc.Invoke(ctx, getCatalogMethod, in, out, c.callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
}

// WithIdempotencyKey attaches key to outgoing AddItem calls made with ctx.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, MetadataIdempotencyKey, key)
}
