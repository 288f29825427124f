package financeserver

import (
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/pkg/metricskey"
	"github.com/effective-security/xlog"
	mcp "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport"
	"github.com/metoro-io/mcp-golang/transport/stdio"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/finrecon", "financeserver")

const (
	// ServerName is the MCP name of the server
	ServerName = "FinanceServer"
	// ServerVersion is the MCP version of the server
	ServerVersion = "1.0.0"

	// ToolGetExchangeRate is the name of the exchange rate tool
	ToolGetExchangeRate = "get_exchange_rate"
	// ToolGetFeeDescription is the name of the fee description tool
	ToolGetFeeDescription = "get_fee_description"
)

// ExchangeRateArgs is the input of get_exchange_rate
type ExchangeRateArgs struct {
	Currency string `json:"currency" jsonschema:"required,description=Currency code such as USD or EUR"`
}

// FeeDescriptionArgs is the input of get_fee_description
type FeeDescriptionArgs struct {
	Amount float64 `json:"amount" jsonschema:"required,description=Transaction amount"`
}

// Registrator is the subset of the MCP server used to register tools
type Registrator interface {
	RegisterTool(name string, description string, handler any) error
}

// Register registers the finance tools on the server
func Register(server Registrator) error {
	err := server.RegisterTool(ToolGetExchangeRate, "Get the exchange rate for a currency.",
		func(args ExchangeRateArgs) (*mcp.ToolResponse, error) {
			rate := GetExchangeRate(args.Currency)
			metricskey.StatsFinanceServerRequests.IncrCounter(1, ToolGetExchangeRate)
			logger.KV(xlog.DEBUG,
				"tool", ToolGetExchangeRate,
				"currency", args.Currency,
				"rate", rate,
			)
			return mcp.NewToolResponse(mcp.NewTextContent(FormatFloat(rate))), nil
		})
	if err != nil {
		return errors.Wrapf(err, "failed to register %s", ToolGetExchangeRate)
	}

	err = server.RegisterTool(ToolGetFeeDescription, "Get description for potential fees based on amount.",
		func(args FeeDescriptionArgs) (*mcp.ToolResponse, error) {
			desc := GetFeeDescription(args.Amount)
			metricskey.StatsFinanceServerRequests.IncrCounter(1, ToolGetFeeDescription)
			logger.KV(xlog.DEBUG,
				"tool", ToolGetFeeDescription,
				"amount", args.Amount,
				"description", desc,
			)
			return mcp.NewToolResponse(mcp.NewTextContent(desc)), nil
		})
	if err != nil {
		return errors.Wrapf(err, "failed to register %s", ToolGetFeeDescription)
	}
	return nil
}

// New returns MCP server with registered finance tools
func New(t transport.Transport, opts ...mcp.ServerOptions) (*mcp.Server, error) {
	opts = append([]mcp.ServerOptions{
		mcp.WithName(ServerName),
		mcp.WithVersion(ServerVersion),
	}, opts...)

	server := mcp.NewServer(t, opts...)
	if err := Register(server); err != nil {
		return nil, err
	}
	return server, nil
}

// Serve serves the finance tools over the transport until ctx is done
func Serve(ctx context.Context, t transport.Transport) error {
	server, err := New(t)
	if err != nil {
		return err
	}
	if err = server.Serve(); err != nil {
		return errors.Wrap(err, "failed to start MCP server")
	}

	logger.KV(xlog.INFO, "status", "serving", "name", ServerName)
	<-ctx.Done()
	logger.KV(xlog.INFO, "status", "stopped", "name", ServerName)

	_ = t.Close()
	return nil
}

// ServeStdio serves over the input and output streams,
// it returns when ctx is done or the input is closed.
func ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &eofReader{r: in, onEOF: cancel}
	return Serve(ctx, stdio.NewStdioServerTransportWithIO(r, out))
}

// eofReader invokes onEOF once the underlying reader is exhausted
type eofReader struct {
	r     io.Reader
	onEOF func()
	once  sync.Once
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil {
		e.once.Do(e.onEOF)
	}
	return n, err
}
