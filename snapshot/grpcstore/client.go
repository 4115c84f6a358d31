// Package grpcstore serves and consumes snapshot stores over gRPC.
package grpcstore

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/pngme/cidutil"
	"xdao.co/pngme/snapshot"
)

// Client is a snapshot.Store backed by a remote Snapshots service.
//
// Every snapshot crossing the wire is re-hashed on arrival, so a server that
// returns the wrong bytes or the wrong CID is reported as ErrCIDMismatch.
type Client struct {
	conn    *grpc.ClientConn
	rpc     SnapshotsClient
	timeout time.Duration
}

var _ snapshot.Store = (*Client)(nil)

type dialConfig struct {
	timeout time.Duration
	maxMsg  int
}

// DialOption configures Dial.
type DialOption func(*dialConfig)

// WithTimeout bounds the dial and every later call.
func WithTimeout(d time.Duration) DialOption {
	return func(c *dialConfig) { c.timeout = d }
}

// WithMaxMessageSize caps snapshot size in both directions.
func WithMaxMessageSize(n int) DialOption {
	return func(c *dialConfig) { c.maxMsg = n }
}

// Dial connects to a Snapshots service at target without transport security.
func Dial(target string, opts ...DialOption) (*Client, error) {
	var cfg dialConfig
	for _, o := range opts {
		o(&cfg)
	}

	grpcOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if cfg.maxMsg > 0 {
		grpcOpts = append(grpcOpts, grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(cfg.maxMsg),
			grpc.MaxCallRecvMsgSize(cfg.maxMsg),
		))
	}

	ctx, cancel := bounded(cfg.timeout)
	defer cancel()
	conn, err := grpc.DialContext(ctx, target, grpcOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(conn, cfg.timeout), nil
}

// NewClient uses an existing connection. A zero timeout leaves calls unbounded.
func NewClient(conn *grpc.ClientConn, timeout time.Duration) *Client {
	return &Client{conn: conn, rpc: NewSnapshotsClient(conn), timeout: timeout}
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) Put(data []byte) (cid.Cid, error) {
	if err := snapshot.Check(data); err != nil {
		return cid.Undef, err
	}
	reply, err := call(c, c.rpc.Put, wrapperspb.Bytes(data))
	if err != nil {
		return cid.Undef, err
	}
	id, err := cidutil.Parse(reply.GetValue())
	if err != nil {
		return cid.Undef, snapshot.ErrInvalidCID
	}
	if err := verify(id, data); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

func (c *Client) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, snapshot.ErrInvalidCID
	}
	reply, err := call(c, c.rpc.Get, wrapperspb.String(id.String()))
	if err != nil {
		return nil, err
	}
	data := reply.GetValue()
	if err := verify(id, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Has reports false for any transport failure.
func (c *Client) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	reply, err := call(c, c.rpc.Has, wrapperspb.String(id.String()))
	return err == nil && reply.GetValue()
}

// call runs one RPC under the client's deadline and maps a failed status
// back onto the snapshot sentinel errors.
func call[Req, Resp any](c *Client, rpc func(context.Context, Req, ...grpc.CallOption) (Resp, error), req Req) (Resp, error) {
	ctx, cancel := bounded(c.timeout)
	defer cancel()
	resp, err := rpc(ctx, req)
	if err != nil {
		return resp, errorFor(err)
	}
	return resp, nil
}

func bounded(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), d)
}

// verify checks that data hashes to id.
func verify(id cid.Cid, data []byte) error {
	got, err := cidutil.Of(data)
	if err != nil {
		return err
	}
	if got != id {
		return snapshot.ErrCIDMismatch
	}
	return nil
}
