package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bibbank/microloan/internal/application/dto"
	presentation "github.com/bibbank/microloan/internal/presentation/grpc"
	"github.com/bibbank/microloan/pkg/money"
)

type app struct {
	dial        Dialer
	profilePath string
	addr        string
	token       string
	timeout     time.Duration
}

// NewRootCommand builds the microloanctl command tree. dial is replaced in
// tests.
func NewRootCommand(dial Dialer) *cobra.Command {
	a := &app{dial: dial}

	root := &cobra.Command{
		Use:           "microloanctl",
		Short:         "Operate a MicroLoan ledger over gRPC",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.profilePath, "profile", DefaultProfilePath(), "Connection profile (YAML)")
	root.PersistentFlags().StringVar(&a.addr, "addr", "", "Server address, overrides the profile")
	root.PersistentFlags().StringVar(&a.token, "token", "", "Bearer token, overrides the profile and MICROLOAN_TOKEN")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "Per-call timeout, overrides the profile")

	root.AddCommand(a.programCmd(), a.userCmd(), a.loanCmd(), a.riskCmd(), devCmd())
	return root
}

// call runs one RPC and prints the response as indented JSON.
func (a *app) call(cmd *cobra.Command, method string, req, resp any) error {
	p, err := LoadProfile(a.profilePath)
	if err != nil {
		return err
	}
	if a.addr != "" {
		p.Addr = a.addr
	}
	if a.token != "" {
		p.Token = a.token
	}
	if a.timeout > 0 {
		p.Timeout = a.timeout
	}

	conn, err := a.dial(p)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), p.Timeout)
	defer cancel()
	if err := conn.Invoke(ctx, method, req, resp); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// amountValue is a pflag.Value reading major units, e.g. "1250.50".
type amountValue struct{ a *money.Amount }

func (v amountValue) String() string {
	if v.a == nil {
		return "0"
	}
	return v.a.String()
}
func (v amountValue) Set(s string) error { return v.a.UnmarshalText([]byte(s)) }
func (amountValue) Type() string         { return "amount" }

func parseIdentity(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid identity %q: %w", s, err)
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// program
// ---------------------------------------------------------------------------

func (a *app) programCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "program", Short: "Program state and administration"}

	var fee uint16
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the program with the caller as administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.call(cmd, "Initialize", &dto.InitializeRequest{FeePercentage: fee}, &dto.ProgramResponse{})
		},
	}
	initCmd.Flags().Uint16Var(&fee, "fee", 0, "Fee in basis points (at most 1000)")

	pause := func(paused bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			return a.call(cmd, "SetPaused", &dto.SetPausedRequest{Paused: paused}, &dto.ProgramResponse{})
		}
	}

	cmd.AddCommand(
		initCmd,
		&cobra.Command{Use: "pause", Short: "Stop new registrations and loans", Args: cobra.NoArgs, RunE: pause(true)},
		&cobra.Command{Use: "resume", Short: "Lift a pause", Args: cobra.NoArgs, RunE: pause(false)},
		&cobra.Command{
			Use:   "get",
			Short: "Show program totals",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.call(cmd, "GetProgramState", &presentation.Empty{}, &dto.ProgramResponse{})
			},
		},
	)
	return cmd
}

// ---------------------------------------------------------------------------
// user
// ---------------------------------------------------------------------------

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Borrower profiles"}

	var (
		name       string
		employment string
		income     money.Amount
	)
	register := &cobra.Command{
		Use:   "register",
		Short: "Register the caller as a borrower",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.call(cmd, "RegisterUser", &dto.RegisterUserRequest{
				FullName:       name,
				EmploymentType: employment,
				MonthlyIncome:  uint64(income),
			}, &dto.UserProfileResponse{})
		},
	}
	register.Flags().StringVar(&name, "name", "", "Full name")
	register.Flags().StringVar(&employment, "employment", "SALARIED", "SALARIED, SELF_EMPLOYED, BUSINESS_OWNER, DAILY_WAGE or UNEMPLOYED")
	register.Flags().Var(amountValue{&income}, "income", "Monthly income in major units")
	_ = register.MarkFlagRequired("name")

	var (
		newEmployment string
		newIncome     money.Amount
	)
	update := &cobra.Command{
		Use:   "update",
		Short: "Change the caller's income or employment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := &dto.UpdateUserProfileRequest{}
			if cmd.Flags().Changed("income") {
				v := uint64(newIncome)
				req.MonthlyIncome = &v
			}
			if cmd.Flags().Changed("employment") {
				req.EmploymentType = &newEmployment
			}
			return a.call(cmd, "UpdateUserProfile", req, &dto.UserProfileResponse{})
		},
	}
	update.Flags().StringVar(&newEmployment, "employment", "", "New employment type")
	update.Flags().Var(amountValue{&newIncome}, "income", "New monthly income in major units")

	byUser := func(method string, resp any) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			user, err := parseIdentity(args[0])
			if err != nil {
				return err
			}
			return a.call(cmd, method, &dto.GetUserRequest{User: user}, resp)
		}
	}

	cmd.AddCommand(
		register,
		update,
		&cobra.Command{Use: "get <user>", Short: "Show a borrower profile", Args: cobra.ExactArgs(1),
			RunE: byUser("GetUserProfile", &dto.UserProfileResponse{})},
		&cobra.Command{Use: "credit-score <user>", Short: "Show a borrower's credit standing", Args: cobra.ExactArgs(1),
			RunE: byUser("GetCreditScore", &dto.CreditScoreResponse{})},
	)
	return cmd
}

// ---------------------------------------------------------------------------
// loan
// ---------------------------------------------------------------------------

func (a *app) loanCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "loan", Short: "Loans, payments and fines"}

	var loanID uint64
	loanRef := func(args []string) (dto.LoanRef, error) {
		borrower, err := parseIdentity(args[0])
		if err != nil {
			return dto.LoanRef{}, err
		}
		return dto.LoanRef{Borrower: borrower, LoanID: loanID}, nil
	}
	withLoan := func(c *cobra.Command) *cobra.Command {
		c.Args = cobra.ExactArgs(1)
		c.Flags().Uint64Var(&loanID, "loan-id", 0, "Per-borrower loan sequence number")
		return c
	}

	var (
		principal money.Amount
		rate      uint16
		tenure    uint8
		start     string
	)
	create := &cobra.Command{
		Use:   "create <borrower>",
		Short: "Originate a loan (administrator)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			borrower, err := parseIdentity(args[0])
			if err != nil {
				return err
			}
			req := &dto.CreateLoanRequest{
				Borrower:        borrower,
				PrincipalAmount: uint64(principal),
				InterestRate:    rate,
				TenureMonths:    tenure,
			}
			if start != "" {
				at, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				req.StartTimestamp = at.Unix()
			}
			return a.call(cmd, "CreateLoan", req, &dto.LoanResponse{})
		},
	}
	create.Flags().Var(amountValue{&principal}, "principal", "Principal in major units")
	create.Flags().Uint16Var(&rate, "rate", 0, "Annual interest rate in basis points")
	create.Flags().Uint8Var(&tenure, "tenure", 12, "Tenure in months")
	create.Flags().StringVar(&start, "start", "", "Start time (RFC 3339), default now")
	_ = create.MarkFlagRequired("principal")
	_ = create.MarkFlagRequired("rate")

	var (
		installment uint8
		amount      money.Amount
		proof       string
	)
	pay := withLoan(&cobra.Command{
		Use:   "pay <borrower>",
		Short: "Record an installment payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := loanRef(args)
			if err != nil {
				return err
			}
			return a.call(cmd, "RecordPayment", &dto.RecordPaymentRequest{
				Loan:              ref,
				InstallmentNumber: installment,
				Amount:            uint64(amount),
				PaymentProof:      proof,
			}, &dto.RecordPaymentResponse{})
		},
	})
	pay.Flags().Uint8Var(&installment, "installment", 1, "Installment number")
	pay.Flags().Var(amountValue{&amount}, "amount", "Amount paid in major units")
	pay.Flags().StringVar(&proof, "proof", "", "Payment reference")
	_ = pay.MarkFlagRequired("amount")

	waive := withLoan(&cobra.Command{
		Use:   "waive-fine <borrower>",
		Short: "Forgive part of an installment's fine (administrator)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := loanRef(args)
			if err != nil {
				return err
			}
			return a.call(cmd, "WaiveFine", &dto.WaiveFineRequest{
				Loan:              ref,
				InstallmentNumber: installment,
				WaivedAmount:      uint64(amount),
			}, &dto.PaymentResponse{})
		},
	})
	waive.Flags().Uint8Var(&installment, "installment", 1, "Installment number")
	waive.Flags().Var(amountValue{&amount}, "amount", "Amount to waive in major units")
	_ = waive.MarkFlagRequired("amount")

	payment := withLoan(&cobra.Command{
		Use:   "payment <borrower>",
		Short: "Show one installment payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := loanRef(args)
			if err != nil {
				return err
			}
			return a.call(cmd, "GetPaymentRecord",
				&dto.GetPaymentRequest{Loan: ref, InstallmentNumber: installment}, &dto.PaymentResponse{})
		},
	})
	payment.Flags().Uint8Var(&installment, "installment", 1, "Installment number")

	byLoan := func(method string, closing bool, resp func() any) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ref, err := loanRef(args)
			if err != nil {
				return err
			}
			if closing {
				return a.call(cmd, method, &dto.CloseLoanRequest{Loan: ref}, resp())
			}
			return a.call(cmd, method, &ref, resp())
		}
	}
	loanResp := func() any { return &dto.LoanResponse{} }

	cmd.AddCommand(
		create,
		pay,
		waive,
		payment,
		withLoan(&cobra.Command{Use: "get <borrower>", Short: "Show a loan",
			RunE: byLoan("GetLoan", false, loanResp)}),
		withLoan(&cobra.Command{Use: "schedule <borrower>", Short: "Show the amortization schedule",
			RunE: byLoan("GetAmortizationSchedule", false, func() any { return &dto.AmortizationScheduleResponse{} })}),
		withLoan(&cobra.Command{Use: "default <borrower>", Short: "Mark a loan defaulted (administrator)",
			RunE: byLoan("MarkLoanDefaulted", true, loanResp)}),
		withLoan(&cobra.Command{Use: "complete <borrower>", Short: "Close a fully repaid loan",
			RunE: byLoan("MarkLoanCompleted", true, loanResp)}),
	)
	return cmd
}

// ---------------------------------------------------------------------------
// risk
// ---------------------------------------------------------------------------

func (a *app) riskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "risk", Short: "Risk assessments"}

	var (
		score       uint16
		level       string
		probability uint16
	)
	update := &cobra.Command{
		Use:   "update <user>",
		Short: "Record a risk assessment (administrator)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := parseIdentity(args[0])
			if err != nil {
				return err
			}
			return a.call(cmd, "UpdateRiskScore", &dto.UpdateRiskScoreRequest{
				User:               user,
				RiskScore:          score,
				RiskLevel:          level,
				DefaultProbability: probability,
			}, &dto.RiskProfileResponse{})
		},
	}
	update.Flags().Uint16Var(&score, "score", 0, "Risk score, 0 to 1000")
	update.Flags().StringVar(&level, "level", "MEDIUM", "LOW, MEDIUM, HIGH or CRITICAL")
	update.Flags().Uint16Var(&probability, "probability", 0, "Default probability in basis points")
	_ = update.MarkFlagRequired("score")

	get := &cobra.Command{
		Use:   "get <user>",
		Short: "Show a risk profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := parseIdentity(args[0])
			if err != nil {
				return err
			}
			return a.call(cmd, "GetRiskProfile", &dto.GetUserRequest{User: user}, &dto.RiskProfileResponse{})
		},
	}

	cmd.AddCommand(update, get)
	return cmd
}
