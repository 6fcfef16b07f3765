package handler

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/rl1809/stockcanon/internal/core/domain"
	"github.com/rl1809/stockcanon/internal/core/service"
)

// JSONCodecName is the gRPC content-subtype the canon service speaks.
const JSONCodecName = "json"

const canonServiceName = "stockcanon.v1.CanonService"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type NormalizeRequest struct {
	Code string `json:"code"`
}

type CanonServiceServer interface {
	Normalize(context.Context, *NormalizeRequest) (*LocationResponse, error)
	ToFlatUnits(context.Context, *FlatUnitsRequest) (*QuantityResponse, error)
	ToTriple(context.Context, *TripleRequest) (*QuantityResponse, error)
}

var CanonServiceDesc = grpc.ServiceDesc{
	ServiceName: canonServiceName,
	HandlerType: (*CanonServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Normalize", Handler: unaryHandler("Normalize", CanonServiceServer.Normalize)},
		{MethodName: "ToFlatUnits", Handler: unaryHandler("ToFlatUnits", CanonServiceServer.ToFlatUnits)},
		{MethodName: "ToTriple", Handler: unaryHandler("ToTriple", CanonServiceServer.ToTriple)},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterCanonServiceServer(s grpc.ServiceRegistrar, srv CanonServiceServer) {
	s.RegisterService(&CanonServiceDesc, srv)
}

func unaryHandler[Req, Resp any](method string, call func(CanonServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + canonServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CanonServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CanonServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type GRPCHandler struct {
	conversion *service.ConversionService
}

func NewGRPCHandler(conversion *service.ConversionService) *GRPCHandler {
	return &GRPCHandler{conversion: conversion}
}

func (h *GRPCHandler) Normalize(ctx context.Context, req *NormalizeRequest) (*LocationResponse, error) {
	res := domain.CanonicalizeLocation(req.Code)
	return &LocationResponse{
		Input:    res.Input,
		Location: res.Value,
		Status:   string(res.Status),
		Valid:    res.Valid(),
	}, nil
}

func (h *GRPCHandler) ToFlatUnits(ctx context.Context, req *FlatUnitsRequest) (*QuantityResponse, error) {
	if req.ProductID == "" {
		return nil, status.Error(codes.InvalidArgument, "missing product_id")
	}
	flat, err := h.conversion.ToFlatUnits(ctx, req.ProductID, req.Quantity, req.Fallback)
	if err != nil {
		return nil, grpcError(err)
	}
	return &QuantityResponse{ProductID: req.ProductID, Quantity: req.Quantity, FlatUnits: flat}, nil
}

func (h *GRPCHandler) ToTriple(ctx context.Context, req *TripleRequest) (*QuantityResponse, error) {
	if req.ProductID == "" {
		return nil, status.Error(codes.InvalidArgument, "missing product_id")
	}
	q, err := h.conversion.ToTriple(ctx, req.ProductID, req.FlatUnits)
	if err != nil {
		return nil, grpcError(err)
	}
	return &QuantityResponse{ProductID: req.ProductID, Quantity: q, FlatUnits: req.FlatUnits}, nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, domain.ErrRange),
		errors.Is(err, domain.ErrDivision),
		errors.Is(err, domain.ErrMissingRate):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrRateNotFound):
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}

// CanonClient calls the canon service over an existing connection.
type CanonClient struct {
	cc grpc.ClientConnInterface
}

func NewCanonClient(cc grpc.ClientConnInterface) *CanonClient {
	return &CanonClient{cc: cc}
}

func (c *CanonClient) Normalize(ctx context.Context, in *NormalizeRequest, opts ...grpc.CallOption) (*LocationResponse, error) {
	out := new(LocationResponse)
	if err := c.invoke(ctx, "Normalize", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CanonClient) ToFlatUnits(ctx context.Context, in *FlatUnitsRequest, opts ...grpc.CallOption) (*QuantityResponse, error) {
	out := new(QuantityResponse)
	if err := c.invoke(ctx, "ToFlatUnits", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CanonClient) ToTriple(ctx context.Context, in *TripleRequest, opts ...grpc.CallOption) (*QuantityResponse, error) {
	out := new(QuantityResponse)
	if err := c.invoke(ctx, "ToTriple", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CanonClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+canonServiceName+"/"+method, in, out, opts...)
}
