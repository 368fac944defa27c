package grpc

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bibbank/microloan/internal/application/dto"
	"github.com/bibbank/microloan/internal/application/usecase"
	"github.com/bibbank/microloan/pkg/auth"
)

// UseCases groups the application operations the handler exposes.
type UseCases struct {
	Initialize        *usecase.InitializeProgramUseCase
	SetPaused         *usecase.SetPausedUseCase
	RegisterUser      *usecase.RegisterUserUseCase
	UpdateUserProfile *usecase.UpdateUserProfileUseCase
	CreateLoan        *usecase.CreateLoanUseCase
	RecordPayment     *usecase.RecordPaymentUseCase
	MarkDefaulted     *usecase.MarkLoanDefaultedUseCase
	MarkCompleted     *usecase.MarkLoanCompletedUseCase
	WaiveFine         *usecase.WaiveFineUseCase
	UpdateRiskScore   *usecase.UpdateRiskScoreUseCase

	GetCreditScore   *usecase.GetCreditScoreUseCase
	GetProgramState  *usecase.GetProgramStateUseCase
	GetUserProfile   *usecase.GetUserProfileUseCase
	GetLoan          *usecase.GetLoanUseCase
	GetPaymentRecord *usecase.GetPaymentRecordUseCase
	GetRiskProfile   *usecase.GetRiskProfileUseCase
	GetSchedule      *usecase.GetAmortizationScheduleUseCase
}

// MicroLoanHandler implements MicroLoanServiceServer. Mutating calls take
// the caller from the authenticated token, never from the request body.
// Errors are returned as-is; the error interceptor maps them to statuses.
type MicroLoanHandler struct {
	uc     UseCases
	logger *slog.Logger
}

var _ MicroLoanServiceServer = (*MicroLoanHandler)(nil)

// NewMicroLoanHandler creates a handler over the given use cases.
func NewMicroLoanHandler(uc UseCases, logger *slog.Logger) *MicroLoanHandler {
	return &MicroLoanHandler{uc: uc, logger: logger}
}

// result adapts a use case's value return to the generated-style pointer.
func result[T any](resp T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (h *MicroLoanHandler) caller(ctx context.Context) (uuid.UUID, error) {
	return auth.IdentityFromContext(ctx)
}

func (h *MicroLoanHandler) Initialize(ctx context.Context, req *dto.InitializeRequest) (*dto.ProgramResponse, error) {
	var err error
	if req.Caller, err = h.caller(ctx); err != nil {
		return nil, err
	}
	h.logger.InfoContext(ctx, "initializing program", slog.String("authority", req.Caller.String()))
	return result(h.uc.Initialize.Execute(ctx, *req))
}

func (h *MicroLoanHandler) SetPaused(ctx context.Context, req *dto.SetPausedRequest) (*dto.ProgramResponse, error) {
	var err error
	if req.Caller, err = h.caller(ctx); err != nil {
		return nil, err
	}
	return result(h.uc.SetPaused.Execute(ctx, *req))
}

func (h *MicroLoanHandler) RegisterUser(ctx context.Context, req *dto.RegisterUserRequest) (*dto.UserProfileResponse, error) {
	var err error
	if req.Caller, err = h.caller(ctx); err != nil {
		return nil, err
	}
	return result(h.uc.RegisterUser.Execute(ctx, *req))
}

func (h *MicroLoanHandler) UpdateUserProfile(ctx context.Context, req *dto.UpdateUserProfileRequest) (*dto.UserProfileResponse, error) {
	var err error
	if req.Caller, err = h.caller(ctx); err != nil {
		return nil, err
	}
	return result(h.uc.UpdateUserProfile.Execute(ctx, *req))
}

func (h *MicroLoanHandler) CreateLoan(ctx context.Context, req *dto.CreateLoanRequest) (*dto.LoanResponse, error) {
	var err error
	if req.Caller, err = h.caller(ctx); err != nil {
		return nil, err
	}
	return result(h.uc.CreateLoan.Execute(ctx, *req))
}

func (h *MicroLoanHandler) RecordPayment(ctx context.Context, req *dto.RecordPaymentRequest) (*dto.RecordPaymentResponse, error) {
	var err error
	if req.Caller, err = h.caller(ctx); err != nil {
		return nil, err
	}
	return result(h.uc.RecordPayment.Execute(ctx, *req))
}

func (h *MicroLoanHandler) MarkLoanDefaulted(ctx context.Context, req *dto.CloseLoanRequest) (*dto.LoanResponse, error) {
	var err error
	if req.Caller, err = h.caller(ctx); err != nil {
		return nil, err
	}
	return result(h.uc.MarkDefaulted.Execute(ctx, *req))
}

func (h *MicroLoanHandler) MarkLoanCompleted(ctx context.Context, req *dto.CloseLoanRequest) (*dto.LoanResponse, error) {
	var err error
	if req.Caller, err = h.caller(ctx); err != nil {
		return nil, err
	}
	return result(h.uc.MarkCompleted.Execute(ctx, *req))
}

func (h *MicroLoanHandler) WaiveFine(ctx context.Context, req *dto.WaiveFineRequest) (*dto.PaymentResponse, error) {
	var err error
	if req.Caller, err = h.caller(ctx); err != nil {
		return nil, err
	}
	return result(h.uc.WaiveFine.Execute(ctx, *req))
}

func (h *MicroLoanHandler) UpdateRiskScore(ctx context.Context, req *dto.UpdateRiskScoreRequest) (*dto.RiskProfileResponse, error) {
	var err error
	if req.Caller, err = h.caller(ctx); err != nil {
		return nil, err
	}
	return result(h.uc.UpdateRiskScore.Execute(ctx, *req))
}

// Queries are open to any authenticated caller.

func (h *MicroLoanHandler) GetCreditScore(ctx context.Context, req *dto.GetUserRequest) (*dto.CreditScoreResponse, error) {
	return result(h.uc.GetCreditScore.Execute(ctx, *req))
}

func (h *MicroLoanHandler) GetProgramState(ctx context.Context, _ *Empty) (*dto.ProgramResponse, error) {
	return result(h.uc.GetProgramState.Execute(ctx))
}

func (h *MicroLoanHandler) GetUserProfile(ctx context.Context, req *dto.GetUserRequest) (*dto.UserProfileResponse, error) {
	return result(h.uc.GetUserProfile.Execute(ctx, *req))
}

func (h *MicroLoanHandler) GetLoan(ctx context.Context, req *dto.LoanRef) (*dto.LoanResponse, error) {
	return result(h.uc.GetLoan.Execute(ctx, *req))
}

func (h *MicroLoanHandler) GetPaymentRecord(ctx context.Context, req *dto.GetPaymentRequest) (*dto.PaymentResponse, error) {
	return result(h.uc.GetPaymentRecord.Execute(ctx, *req))
}

func (h *MicroLoanHandler) GetRiskProfile(ctx context.Context, req *dto.GetUserRequest) (*dto.RiskProfileResponse, error) {
	return result(h.uc.GetRiskProfile.Execute(ctx, *req))
}

func (h *MicroLoanHandler) GetAmortizationSchedule(ctx context.Context, req *dto.LoanRef) (*dto.AmortizationScheduleResponse, error) {
	return result(h.uc.GetSchedule.Execute(ctx, *req))
}
