package grpc

// proto.go describes the MicroLoan service by hand. Messages are the
// application DTOs carried by the JSON codec, so no generated code is needed.

import (
	"context"

	grpclib "google.golang.org/grpc"

	"github.com/bibbank/microloan/internal/application/dto"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "microloan.v1.MicroLoanService"

// Empty is the request of parameterless queries.
type Empty struct{}

// MicroLoanServiceServer is the server API for MicroLoanService.
type MicroLoanServiceServer interface {
	Initialize(context.Context, *dto.InitializeRequest) (*dto.ProgramResponse, error)
	SetPaused(context.Context, *dto.SetPausedRequest) (*dto.ProgramResponse, error)
	RegisterUser(context.Context, *dto.RegisterUserRequest) (*dto.UserProfileResponse, error)
	UpdateUserProfile(context.Context, *dto.UpdateUserProfileRequest) (*dto.UserProfileResponse, error)
	CreateLoan(context.Context, *dto.CreateLoanRequest) (*dto.LoanResponse, error)
	RecordPayment(context.Context, *dto.RecordPaymentRequest) (*dto.RecordPaymentResponse, error)
	MarkLoanDefaulted(context.Context, *dto.CloseLoanRequest) (*dto.LoanResponse, error)
	MarkLoanCompleted(context.Context, *dto.CloseLoanRequest) (*dto.LoanResponse, error)
	WaiveFine(context.Context, *dto.WaiveFineRequest) (*dto.PaymentResponse, error)
	UpdateRiskScore(context.Context, *dto.UpdateRiskScoreRequest) (*dto.RiskProfileResponse, error)
	GetCreditScore(context.Context, *dto.GetUserRequest) (*dto.CreditScoreResponse, error)
	GetProgramState(context.Context, *Empty) (*dto.ProgramResponse, error)
	GetUserProfile(context.Context, *dto.GetUserRequest) (*dto.UserProfileResponse, error)
	GetLoan(context.Context, *dto.LoanRef) (*dto.LoanResponse, error)
	GetPaymentRecord(context.Context, *dto.GetPaymentRequest) (*dto.PaymentResponse, error)
	GetRiskProfile(context.Context, *dto.GetUserRequest) (*dto.RiskProfileResponse, error)
	GetAmortizationSchedule(context.Context, *dto.LoanRef) (*dto.AmortizationScheduleResponse, error)
}

// RegisterMicroLoanServiceServer registers srv with the gRPC server.
func RegisterMicroLoanServiceServer(s grpclib.ServiceRegistrar, srv MicroLoanServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// FullMethod returns the "/service/method" path of a method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

var serviceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MicroLoanServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		unary("Initialize", MicroLoanServiceServer.Initialize),
		unary("SetPaused", MicroLoanServiceServer.SetPaused),
		unary("RegisterUser", MicroLoanServiceServer.RegisterUser),
		unary("UpdateUserProfile", MicroLoanServiceServer.UpdateUserProfile),
		unary("CreateLoan", MicroLoanServiceServer.CreateLoan),
		unary("RecordPayment", MicroLoanServiceServer.RecordPayment),
		unary("MarkLoanDefaulted", MicroLoanServiceServer.MarkLoanDefaulted),
		unary("MarkLoanCompleted", MicroLoanServiceServer.MarkLoanCompleted),
		unary("WaiveFine", MicroLoanServiceServer.WaiveFine),
		unary("UpdateRiskScore", MicroLoanServiceServer.UpdateRiskScore),
		unary("GetCreditScore", MicroLoanServiceServer.GetCreditScore),
		unary("GetProgramState", MicroLoanServiceServer.GetProgramState),
		unary("GetUserProfile", MicroLoanServiceServer.GetUserProfile),
		unary("GetLoan", MicroLoanServiceServer.GetLoan),
		unary("GetPaymentRecord", MicroLoanServiceServer.GetPaymentRecord),
		unary("GetRiskProfile", MicroLoanServiceServer.GetRiskProfile),
		unary("GetAmortizationSchedule", MicroLoanServiceServer.GetAmortizationSchedule),
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "microloan/v1/microloan.proto",
}

// unary builds the method descriptor protoc-gen-go-grpc would generate for
// a unary method.
func unary[Req, Resp any](name string, call func(MicroLoanServiceServer, context.Context, *Req) (*Resp, error)) grpclib.MethodDesc {
	fullMethod := FullMethod(name)
	return grpclib.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MicroLoanServiceServer), ctx, in)
			}
			info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(MicroLoanServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
