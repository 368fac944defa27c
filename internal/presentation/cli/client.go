package cli

import (
	"context"
	"fmt"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	presentation "github.com/bibbank/microloan/internal/presentation/grpc"
	"github.com/bibbank/microloan/pkg/tlsutil"
)

// Conn invokes MicroLoanService methods by short name.
type Conn interface {
	Invoke(ctx context.Context, method string, req, resp any) error
	Close() error
}

// Dialer opens a Conn for a profile.
type Dialer func(p Profile) (Conn, error)

type grpcConn struct {
	cc    *grpclib.ClientConn
	token string
}

// Dial connects to the service described by p using the JSON codec.
func Dial(p Profile) (Conn, error) {
	creds := insecure.NewCredentials()
	if p.TLS() {
		tlsCreds, err := tlsutil.ClientCredentials(p.CAFile, p.ServerName)
		if err != nil {
			return nil, err
		}
		creds = tlsCreds
	}

	cc, err := grpclib.NewClient(p.Addr,
		grpclib.WithTransportCredentials(creds),
		grpclib.WithDefaultCallOptions(grpclib.CallContentSubtype(presentation.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", p.Addr, err)
	}
	return &grpcConn{cc: cc, token: p.Token}, nil
}

func (c *grpcConn) Invoke(ctx context.Context, method string, req, resp any) error {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	return c.cc.Invoke(ctx, presentation.FullMethod(method), req, resp)
}

func (c *grpcConn) Close() error { return c.cc.Close() }
