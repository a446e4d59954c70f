package wbem

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rob-gra/go-wbem/cim"
	"github.com/rob-gra/go-wbem/cimxml"
	"github.com/rob-gra/go-wbem/wlog"
)

// Connection is a shared, reference-counted-by-convention value holding
// the pooled HTTP transport, auth configuration, statistics recorder,
// and the per-endpoint dialect cache, per spec §9 "Connection state".
// It is safe to share across concurrent callers: operation methods are
// blocking but self-contained request/response pairs with their own
// MESSAGE ID.
type Connection struct {
	cfg   Config
	tp    *transport
	stats *statsRecorder
	Log   wlog.Logger

	// dialectCache remembers, per namespace, whether the server has been
	// classified as traditional-only (pull unsupported). Atomic
	// write-once semantics per spec §5: once set for a namespace it is
	// never cleared. See iter.go.
	dialectCache sync.Map // map[string]bool
}

// NewConnection validates cfg and builds a ready-to-use Connection.
func NewConnection(cfg Config) (*Connection, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	tp, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &Connection{
		cfg:   cfg,
		tp:    tp,
		stats: newStatsRecorder(cfg.StatsEnabled),
		Log:   wlog.New("wbem"),
	}, nil
}

// Stats returns a snapshot of the per-operation statistics recorded so
// far, per spec §4.7.
func (c *Connection) Stats() map[string]OpStats { return c.stats.Snapshot() }

// namespaceOrDefault normalizes namespace by stripping leading and
// trailing slashes, falling back to the connection's configured default
// when the result is empty.
func (c *Connection) namespaceOrDefault(namespace string) string {
	ns := strings.Trim(namespace, "/")
	if ns == "" {
		return c.cfg.DefaultNamespace
	}
	return ns
}

func (c *Connection) nextMessageID() string { return uuid.NewString() }

// call is the shared request/response plumbing every operation method
// funnels through: encode, transport, decode, error extraction. This is
// the Go analog of the teacher's `func Op(c Connect, ...) error` command
// functions in asdu/csys.go and asdu/cproc.go, generalized from "build one
// ASDU and hand it to Connect.Send" to "build one CIM-XML request and
// hand it to the transport".
func (c *Connection) call(ctx context.Context, kind cimxml.RequestKind, opName, namespace string,
	target *cim.InstanceName, targetClass *cim.ClassName, params []cimxml.Param) (cimxml.Response, error) {

	if err := ctx.Err(); err != nil {
		return cimxml.Response{}, newCancelledError(opName)
	}

	id := c.nextMessageID()
	body, err := cimxml.EncodeRequest(kind, opName, namespace, id, target, targetClass, params)
	if err != nil {
		return cimxml.Response{}, fmt.Errorf("wbem: encoding %s request: %w", opName, err)
	}

	headers := headerSet{Method: "MethodCall", CIMObject: namespace}
	switch kind {
	case cimxml.IntrinsicMethod:
		headers.CIMMethod = opName
	default:
		headers.CIMMethodCall = opName
		if target != nil {
			headers.CIMObject = target.WBEMURI()
		} else if targetClass != nil {
			headers.CIMObject = targetClass.String()
		}
	}

	start := time.Now()
	respBody, err := c.tp.do(ctx, opName, headers, body)
	if err != nil {
		return cimxml.Response{}, err
	}

	resp, err := cimxml.DecodeResponse(respBody)
	if err != nil {
		if errors.Is(err, cimxml.ErrXMLSyntax) {
			return cimxml.Response{}, newXMLParseError(opName, err)
		}
		return cimxml.Response{}, newCIMXMLParseError(opName, err)
	}
	if c.cfg.StrictMessageID && resp.MessageID != id {
		return cimxml.Response{}, newCIMXMLParseError(opName, fmt.Errorf("response MESSAGE ID %q does not match request ID %q", resp.MessageID, id))
	}

	c.stats.record(opName, time.Since(start), len(body), len(respBody))
	status := 0
	if resp.Error != nil {
		status = int(resp.Error.Code)
	}
	c.Log.Debug("%s namespace=%s elapsed=%s status=%d", opName, namespace, time.Since(start), status)

	if resp.Error != nil {
		return resp, newCIMError(opName, StatusCode(resp.Error.Code), resp.Error.Description, resp.Error.Details)
	}
	return resp, nil
}
