package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/microloan/internal/domain/ledgererr"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/port"
	"github.com/bibbank/microloan/pkg/auth"
)

// kindCodes maps each ledger failure kind to a gRPC status code. Kinds not
// listed are argument errors.
var kindCodes = map[ledgererr.Kind]codes.Code{
	ledgererr.KindUnauthorized:           codes.PermissionDenied,
	ledgererr.KindUserNotFound:           codes.NotFound,
	ledgererr.KindLoanNotFound:           codes.NotFound,
	ledgererr.KindUserAlreadyRegistered:  codes.AlreadyExists,
	ledgererr.KindInstallmentAlreadyPaid: codes.AlreadyExists,
	ledgererr.KindProgramPaused:          codes.FailedPrecondition,
	ledgererr.KindActiveLoanExists:       codes.FailedPrecondition,
	ledgererr.KindLoanNotActive:          codes.FailedPrecondition,
	ledgererr.KindLoanAlreadyCompleted:   codes.FailedPrecondition,
	ledgererr.KindLoanAlreadyDefaulted:   codes.FailedPrecondition,
	ledgererr.KindPaymentTooEarly:        codes.FailedPrecondition,
	ledgererr.KindLowCreditScore:         codes.FailedPrecondition,
	ledgererr.KindHighRiskUser:           codes.FailedPrecondition,
	ledgererr.KindIncomeTooLow:           codes.FailedPrecondition,
	ledgererr.KindMathOverflow:           codes.OutOfRange,
}

// toStatus converts an application error to a gRPC status. Ledger kinds
// keep their name and numeric code in the message.
func toStatus(err error) *status.Status {
	if st, ok := status.FromError(err); ok {
		return st
	}
	if kind, ok := ledgererr.KindOf(err); ok {
		code, found := kindCodes[kind]
		if !found {
			code = codes.InvalidArgument
		}
		return status.New(code, fmt.Sprintf("%s (%d): %v", kind, kind.Code(), err))
	}

	switch {
	case errors.Is(err, auth.ErrNoIdentity):
		return status.New(codes.Unauthenticated, err.Error())
	case errors.Is(err, port.ErrRecordNotFound):
		return status.New(codes.NotFound, err.Error())
	case errors.Is(err, model.ErrCorruptRecord):
		return status.New(codes.DataLoss, err.Error())
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, err.Error())
	default:
		return status.New(codes.Internal, "internal error")
	}
}

// ErrorInterceptor converts handler errors to statuses. Internal failures
// are logged in full since the client only sees a generic message.
func ErrorInterceptor(logger *slog.Logger) grpclib.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpclib.UnaryServerInfo, handler grpclib.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		st := toStatus(err)
		if st.Code() == codes.Internal || st.Code() == codes.DataLoss {
			logger.ErrorContext(ctx, "request failed",
				slog.String("method", info.FullMethod),
				slog.String("error", err.Error()),
			)
		} else {
			logger.DebugContext(ctx, "request rejected",
				slog.String("method", info.FullMethod),
				slog.String("code", st.Code().String()),
				slog.String("error", err.Error()),
			)
		}
		return nil, st.Err()
	}
}
