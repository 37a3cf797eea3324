package observability

import (
	"context"
	"fmt"
	"net"
)

// FuncChecker adapts a boolean status function
type FuncChecker struct {
	name   string
	status func() bool
}

// NewFuncChecker creates a checker that fails when status returns false
func NewFuncChecker(name string, status func() bool) *FuncChecker {
	return &FuncChecker{name: name, status: status}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(_ context.Context) error {
	if c.status == nil {
		return fmt.Errorf("status function is nil")
	}
	if !c.status() {
		return fmt.Errorf("%s is not available", c.name)
	}
	return nil
}

// DialChecker passes when a TCP connection to Addr succeeds
type DialChecker struct {
	name string
	addr string
}

// NewDialChecker creates a reachability check for addr
func NewDialChecker(name, addr string) *DialChecker {
	return &DialChecker{name: name, addr: addr}
}

func (c *DialChecker) Name() string { return c.name }

func (c *DialChecker) Check(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}
	return conn.Close()
}

var _ Checker = (*FuncChecker)(nil)
var _ Checker = (*DialChecker)(nil)
