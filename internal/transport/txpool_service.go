package transport

import (
	"context"

	"google.golang.org/grpc"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

const txPoolServiceName = "blockinsight7000.txpool.v1.TxPoolService"

type SubmitRequest struct {
	Transaction model.TransactionDTO `json:"transaction"`
}

type SubmitResponse struct {
	TxID     string `json:"txid"`
	Admitted bool   `json:"admitted"`
	Squeezed bool   `json:"squeezed,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type QueryRequest struct {
	TxIDs       []string `json:"txids,omitempty"`
	Owner       string   `json:"owner,omitempty"`
	MinGasPrice uint64   `json:"min_gas_price,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

type SelectRequest struct {
	MaxWeight uint64 `json:"max_weight"`
}

type TransactionsResponse struct {
	Transactions []model.TransactionDTO `json:"transactions"`
}

// TxPoolServiceServer is the server API for the transaction pool.
type TxPoolServiceServer interface {
	Submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
	Query(context.Context, *QueryRequest) (*TransactionsResponse, error)
	Select(context.Context, *SelectRequest) (*TransactionsResponse, error)
}

// RegisterTxPoolServiceServer attaches srv to s.
func RegisterTxPoolServiceServer(s grpc.ServiceRegistrar, srv TxPoolServiceServer) {
	s.RegisterService(&txPoolServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(TxPoolServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TxPoolServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + txPoolServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TxPoolServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var txPoolServiceDesc = grpc.ServiceDesc{
	ServiceName: txPoolServiceName,
	HandlerType: (*TxPoolServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Submit", TxPoolServiceServer.Submit),
		unaryHandler("Query", TxPoolServiceServer.Query),
		unaryHandler("Select", TxPoolServiceServer.Select),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "txpool/v1/txpool.proto",
}

// TxPoolServiceClient calls TxPoolService with the JSON codec.
type TxPoolServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTxPoolServiceClient(cc grpc.ClientConnInterface) *TxPoolServiceClient {
	return &TxPoolServiceClient{cc: cc}
}

func (c *TxPoolServiceClient) Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error) {
	out := new(SubmitResponse)
	if err := c.invoke(ctx, "Submit", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TxPoolServiceClient) Query(ctx context.Context, in *QueryRequest, opts ...grpc.CallOption) (*TransactionsResponse, error) {
	out := new(TransactionsResponse)
	if err := c.invoke(ctx, "Query", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TxPoolServiceClient) Select(ctx context.Context, in *SelectRequest, opts ...grpc.CallOption) (*TransactionsResponse, error) {
	out := new(TransactionsResponse)
	if err := c.invoke(ctx, "Select", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TxPoolServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+txPoolServiceName+"/"+method, in, out, opts...)
}
