package core

import (
	"context"
	"encoding/json"
	"fmt"

	"counterstrike/pkg/domain"
)

// Command enumerates the invocable operations.
type Command string

const (
	CommandInitLedger      Command = "initLedger"
	CommandCreateProduct   Command = "createProduct"
	CommandListProducts    Command = "listProducts"
	CommandGetProduct      Command = "getProduct"
	CommandReportProduct   Command = "reportProduct"
	CommandTransferProduct Command = "transferProduct"
	CommandSellProduct     Command = "sellProduct"
)

// Response status codes, matching the ledger platform's shim.
const (
	StatusOK    int32 = 200
	StatusError int32 = 500
)

// Response is the success/failure envelope returned for an invocation.
type Response struct {
	Status  int32
	Message string
	Payload []byte
	// Code classifies a failure; empty on success or for unclassified errors.
	Code domain.ErrorCode
}

// OK reports whether the invocation succeeded.
func (r Response) OK() bool { return r.Status == StatusOK }

type handler func(ctx context.Context, svc *Service, args []string) ([]byte, error)

var handlers = map[Command]handler{
	CommandInitLedger:      handleInitLedger,
	CommandCreateProduct:   handleCreateProduct,
	CommandListProducts:    handleListProducts,
	CommandGetProduct:      handleGetProduct,
	CommandReportProduct:   handleReportProduct,
	CommandTransferProduct: handleTransferProduct,
	CommandSellProduct:     handleSellProduct,
}

// Commands returns every known command in declaration order.
func Commands() []Command {
	return []Command{
		CommandInitLedger,
		CommandCreateProduct,
		CommandListProducts,
		CommandGetProduct,
		CommandReportProduct,
		CommandTransferProduct,
		CommandSellProduct,
	}
}

// ParseCommand resolves an operation name.
func ParseCommand(name string) (Command, error) {
	cmd := Command(name)
	if _, ok := handlers[cmd]; !ok {
		return "", domain.NewError(domain.CodeUnknownOperation, fmt.Sprintf("Received unknown function %s invocation", name))
	}
	return cmd, nil
}

// Dispatcher maps named invocations with string arguments onto the Service.
type Dispatcher struct {
	svc *Service
}

// NewDispatcher binds a dispatcher to svc.
func NewDispatcher(svc *Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

// Service returns the bound lifecycle service.
func (d *Dispatcher) Service() *Service { return d.svc }

// Init is invoked once when the service is instantiated.
func (d *Dispatcher) Init(ctx context.Context) Response {
	if err := d.svc.Init(ctx); err != nil {
		return Failure(err)
	}
	return Success(nil)
}

// Invoke runs the named operation. Errors never escape as panics; they are
// converted to a failure envelope carrying the error message.
func (d *Dispatcher) Invoke(ctx context.Context, function string, args []string) Response {
	cmd, err := ParseCommand(function)
	if err != nil {
		d.svc.logger.Error("unknown_function", "function", function)
		return Failure(err)
	}
	d.svc.logger.Debug("invoke", "function", function, "arg_count", len(args))
	payload, err := handlers[cmd](ctx, d.svc, args)
	if err != nil {
		return Failure(err)
	}
	return Success(payload)
}

// Success wraps a payload.
func Success(payload []byte) Response {
	return Response{Status: StatusOK, Payload: payload}
}

// Failure wraps an error message.
func Failure(err error) Response {
	return Response{Status: StatusError, Message: err.Error(), Code: domain.CodeOf(err)}
}

func handleInitLedger(ctx context.Context, svc *Service, _ []string) ([]byte, error) {
	_, err := svc.Seed(ctx)
	return nil, err
}

func handleCreateProduct(ctx context.Context, svc *Service, args []string) ([]byte, error) {
	if len(args) != 3 {
		return nil, domain.IncorrectArguments(`"name", "manufacturer", "location"`)
	}
	origin, err := domain.ParseLocationArg(args[2])
	if err != nil {
		return nil, err
	}
	p, err := svc.Create(ctx, args[0], args[1], origin)
	if err != nil {
		return nil, err
	}
	return p.Encode()
}

func handleListProducts(ctx context.Context, svc *Service, _ []string) ([]byte, error) {
	products, err := svc.List(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(products)
}

func handleGetProduct(ctx context.Context, svc *Service, args []string) ([]byte, error) {
	if len(args) != 1 {
		return nil, domain.IncorrectArguments(`"productId"`)
	}
	return svc.Get(ctx, args[0])
}

func handleReportProduct(ctx context.Context, svc *Service, args []string) ([]byte, error) {
	if len(args) != 2 {
		return nil, domain.IncorrectArguments(`"productId", "reason"`)
	}
	p, err := svc.Report(ctx, args[0], args[1])
	if err != nil {
		return nil, err
	}
	return p.Encode()
}

func handleTransferProduct(ctx context.Context, svc *Service, args []string) ([]byte, error) {
	if len(args) != 2 {
		return nil, domain.IncorrectArguments(`"productId", "target"`)
	}
	target, err := domain.ParseCustodyEventArg(args[1])
	if err != nil {
		return nil, err
	}
	p, err := svc.Transfer(ctx, args[0], target)
	if err != nil {
		return nil, err
	}
	return p.Encode()
}

func handleSellProduct(ctx context.Context, svc *Service, args []string) ([]byte, error) {
	if len(args) != 2 {
		return nil, domain.IncorrectArguments(`"productId", "consumer"`)
	}
	consumer, supplied, err := domain.ParseConsumerArg(args[1])
	if err != nil {
		return nil, err
	}
	var c *domain.Consumer
	if supplied {
		c = &consumer
	}
	p, err := svc.Sell(ctx, args[0], c)
	if err != nil {
		return nil, err
	}
	return p.Encode()
}
