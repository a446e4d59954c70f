package wbem

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rob-gra/go-wbem/cim"
	"github.com/rob-gra/go-wbem/cimxml"
)

// PullOptions carries the optional pull-dialect modifiers of spec
// §4.6.1: a per-phase server-side timeout hint, whether partial results
// are acceptable after a recoverable error, and an optional filter query
// evaluated by the server as part of the Open phase.
type PullOptions struct {
	// OperationTimeout is a per-phase hint to the server. The client's
	// own read timeout (Config.Timeout) is independent of it and still
	// applies. Zero means no hint is sent.
	OperationTimeout time.Duration
	// ContinueOnError requests that the server keep returning partial
	// results after a recoverable error. Rejected client-side unless
	// Config.ContinueOnErrorSupported is set.
	ContinueOnError bool
	// FilterQueryLanguage and FilterQuery, if both set, ask the server
	// to filter results server-side as part of the Open phase.
	FilterQueryLanguage string
	FilterQuery         string
}

// sessionState is the enumeration session lifecycle of spec §4.6.2:
// a session starts Open on a successful Open* call (or Closed if that
// call already reports end of sequence), each Pull keeps it
// Open or advances it to Draining once the server reports end of
// sequence, and CloseEnumeration (or a failed request) retires it.
type sessionState int32

const (
	sessionOpen sessionState = iota
	sessionDraining
	sessionClosed
	sessionFailed
)

// itemKind distinguishes whether a pull session yields full instances
// (with or without a path) or bare instance paths.
type itemKind uint8

const (
	itemInstances itemKind = iota
	itemInstanceNames
)

// EnumerationSession tracks one open pull-dialect enumeration: the
// server-assigned enumeration context and the session's own lifecycle
// state. A session is single-use: once Draining/Closed/Failed it
// cannot be reopened.
type EnumerationSession struct {
	conn        *Connection
	namespace   string
	enumContext string
	kind        itemKind
	state       int32 // sessionState, accessed atomically
	mu          sync.Mutex
}

func (s *EnumerationSession) getState() sessionState { return sessionState(atomic.LoadInt32(&s.state)) }
func (s *EnumerationSession) setState(v sessionState) { atomic.StoreInt32(&s.state, int32(v)) }

// IsOpen reports whether further Pull calls may be issued.
func (s *EnumerationSession) IsOpen() bool { return s.getState() == sessionOpen }

// openBatch is the shared result shape of every Open*/Pull* call: the
// decoded items (as cim.Instance or cim.InstanceName depending on
// itemKind) plus the server's sequence bookkeeping.
type openBatch struct {
	instances     []*cim.Instance
	instanceNames []cim.InstanceName
	endOfSequence bool
	enumContext   string
}

func decodeOpenBatch(ret cimxml.Node, kind itemKind) (openBatch, error) {
	var batch openBatch
	switch kind {
	case itemInstances:
		for _, n := range ret.ChildrenNamed("INSTANCE") {
			inst, err := cimxml.DecodeInstance(n)
			if err != nil {
				return openBatch{}, err
			}
			batch.instances = append(batch.instances, inst)
		}
		for _, n := range ret.ChildrenNamed("VALUE.NAMEDINSTANCE") {
			pathNode, ok := n.Child("INSTANCENAME")
			if !ok {
				continue
			}
			path, err := cimxml.DecodeInstanceName(pathNode)
			if err != nil {
				return openBatch{}, err
			}
			instNode, ok := n.Child("INSTANCE")
			if !ok {
				continue
			}
			inst, err := cimxml.DecodeInstance(instNode)
			if err != nil {
				return openBatch{}, err
			}
			inst.Path = &path
			batch.instances = append(batch.instances, inst)
		}
	case itemInstanceNames:
		for _, n := range ret.ChildrenNamed("INSTANCENAME") {
			name, err := cimxml.DecodeInstanceName(n)
			if err != nil {
				return openBatch{}, err
			}
			batch.instanceNames = append(batch.instanceNames, name)
		}
	}

	if eos, ok := ret.Child("ENDOFSEQUENCE"); ok {
		batch.endOfSequence = eos.Text() == "TRUE"
	} else {
		batch.endOfSequence = true
	}
	if ec, ok := ret.Child("ENUMERATIONCONTEXT"); ok {
		batch.enumContext = ec.Text()
	}
	return batch, nil
}

// openEnumeration issues one Open* intrinsic method and, unless the
// server reports immediate end of sequence, returns a live session for
// subsequent Pull calls.
func (c *Connection) openEnumeration(ctx context.Context, opName, namespace string, kind itemKind,
	maxObjectCount uint32, opts PullOptions, params []cimxml.Param) (*EnumerationSession, openBatch, error) {

	if opts.ContinueOnError && !c.cfg.ContinueOnErrorSupported {
		return nil, openBatch{}, fmt.Errorf("wbem: %s: ContinueOnError requested but the server has not been configured as supporting it (see Config.ContinueOnErrorSupported)", opName)
	}

	ns := c.namespaceOrDefault(namespace)
	params = append(params, uint32Param("MaxObjectCount", maxObjectCount))
	if opts.OperationTimeout > 0 {
		params = append(params, uint32Param("OperationTimeout", uint32(opts.OperationTimeout/time.Second)))
	}
	params = append(params, boolParam("ContinueOnError", opts.ContinueOnError))
	if opts.FilterQueryLanguage != "" {
		params = append(params, strParam("FilterQueryLanguage", opts.FilterQueryLanguage))
	}
	if opts.FilterQuery != "" {
		params = append(params, strParam("FilterQuery", opts.FilterQuery))
	}

	resp, err := c.call(ctx, cimxml.IntrinsicMethod, opName, ns, nil, nil, params)
	if err != nil {
		return nil, openBatch{}, err
	}
	batch, err := decodeOpenBatch(resp.Return, kind)
	if err != nil {
		return nil, openBatch{}, err
	}

	sess := &EnumerationSession{conn: c, namespace: ns, enumContext: batch.enumContext, kind: kind}
	if batch.endOfSequence {
		sess.setState(sessionClosed)
	} else {
		sess.setState(sessionOpen)
	}
	return sess, batch, nil
}

// OpenEnumerateInstances opens a pull-dialect enumeration of className's
// instances, per spec §4.6.2.
func (c *Connection) OpenEnumerateInstances(ctx context.Context, namespace, className string,
	deepInheritance bool, propertyList []string, maxObjectCount uint32, opts PullOptions) (*EnumerationSession, []*cim.Instance, bool, error) {

	params := []cimxml.Param{strParam("ClassName", className), boolParam("DeepInheritance", deepInheritance)}
	params = withPropertyList(params, propertyList)
	sess, batch, err := c.openEnumeration(ctx, "OpenEnumerateInstances", namespace, itemInstances, maxObjectCount, opts, params)
	if err != nil {
		return nil, nil, false, err
	}
	return sess, batch.instances, batch.endOfSequence, nil
}

// OpenEnumerateInstancePaths opens a pull-dialect enumeration of
// className's instance paths.
func (c *Connection) OpenEnumerateInstancePaths(ctx context.Context, namespace, className string,
	maxObjectCount uint32, opts PullOptions) (*EnumerationSession, []cim.InstanceName, bool, error) {

	params := []cimxml.Param{strParam("ClassName", className)}
	sess, batch, err := c.openEnumeration(ctx, "OpenEnumerateInstancePaths", namespace, itemInstanceNames, maxObjectCount, opts, params)
	if err != nil {
		return nil, nil, false, err
	}
	return sess, batch.instanceNames, batch.endOfSequence, nil
}

// OpenAssociatorInstances opens a pull-dialect Associators enumeration.
func (c *Connection) OpenAssociatorInstances(ctx context.Context, namespace string, path cim.InstanceName,
	assocClass, resultClass, role, resultRole string, propertyList []string, maxObjectCount uint32, opts PullOptions) (*EnumerationSession, []*cim.Instance, bool, error) {

	params := associatorParams(path, assocClass, resultClass, role, resultRole)
	params = withPropertyList(params, propertyList)
	sess, batch, err := c.openEnumeration(ctx, "OpenAssociatorInstances", namespace, itemInstances, maxObjectCount, opts, params)
	if err != nil {
		return nil, nil, false, err
	}
	return sess, batch.instances, batch.endOfSequence, nil
}

// OpenAssociatorInstancePaths opens a pull-dialect AssociatorNames
// enumeration.
func (c *Connection) OpenAssociatorInstancePaths(ctx context.Context, namespace string, path cim.InstanceName,
	assocClass, resultClass, role, resultRole string, maxObjectCount uint32, opts PullOptions) (*EnumerationSession, []cim.InstanceName, bool, error) {

	params := associatorParams(path, assocClass, resultClass, role, resultRole)
	sess, batch, err := c.openEnumeration(ctx, "OpenAssociatorInstancePaths", namespace, itemInstanceNames, maxObjectCount, opts, params)
	if err != nil {
		return nil, nil, false, err
	}
	return sess, batch.instanceNames, batch.endOfSequence, nil
}

// OpenReferenceInstances opens a pull-dialect References enumeration.
func (c *Connection) OpenReferenceInstances(ctx context.Context, namespace string, path cim.InstanceName,
	resultClass, role string, propertyList []string, maxObjectCount uint32, opts PullOptions) (*EnumerationSession, []*cim.Instance, bool, error) {

	params := associatorParams(path, "", resultClass, role, "")
	params = withPropertyList(params, propertyList)
	sess, batch, err := c.openEnumeration(ctx, "OpenReferenceInstances", namespace, itemInstances, maxObjectCount, opts, params)
	if err != nil {
		return nil, nil, false, err
	}
	return sess, batch.instances, batch.endOfSequence, nil
}

// OpenReferenceInstancePaths opens a pull-dialect ReferenceNames
// enumeration.
func (c *Connection) OpenReferenceInstancePaths(ctx context.Context, namespace string, path cim.InstanceName,
	resultClass, role string, maxObjectCount uint32, opts PullOptions) (*EnumerationSession, []cim.InstanceName, bool, error) {

	params := associatorParams(path, "", resultClass, role, "")
	sess, batch, err := c.openEnumeration(ctx, "OpenReferenceInstancePaths", namespace, itemInstanceNames, maxObjectCount, opts, params)
	if err != nil {
		return nil, nil, false, err
	}
	return sess, batch.instanceNames, batch.endOfSequence, nil
}

// OpenQueryInstances opens a pull-dialect ExecQuery enumeration.
func (c *Connection) OpenQueryInstances(ctx context.Context, namespace, query, queryLanguage string,
	maxObjectCount uint32, opts PullOptions) (*EnumerationSession, []*cim.Instance, bool, error) {

	params := []cimxml.Param{strParam("QueryLanguage", queryLanguage), strParam("Query", query)}
	sess, batch, err := c.openEnumeration(ctx, "OpenQueryInstances", namespace, itemInstances, maxObjectCount, opts, params)
	if err != nil {
		return nil, nil, false, err
	}
	return sess, batch.instances, batch.endOfSequence, nil
}

// pull retrieves the next batch of at most maxObjectCount items from an
// open session, per spec §4.6.2. Calling pull on a non-open session
// returns a SessionClosed error without contacting the server.
func (s *EnumerationSession) pull(ctx context.Context, maxObjectCount uint32) (openBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getState() != sessionOpen {
		return openBatch{}, newSessionClosedError("Pull")
	}

	opName := "PullInstancesWithPath"
	if s.kind == itemInstanceNames {
		opName = "PullInstancePaths"
	}
	params := []cimxml.Param{strParam("EnumerationContext", s.enumContext), uint32Param("MaxObjectCount", maxObjectCount)}

	resp, err := s.conn.call(ctx, cimxml.IntrinsicMethod, opName, s.namespace, nil, nil, params)
	if err != nil {
		s.setState(sessionFailed)
		return openBatch{}, err
	}
	batch, err := decodeOpenBatch(resp.Return, s.kind)
	if err != nil {
		s.setState(sessionFailed)
		return openBatch{}, err
	}
	s.enumContext = batch.enumContext
	if batch.endOfSequence {
		s.setState(sessionDraining)
	}
	return batch, nil
}

// PullInstances retrieves the next batch of instances. It is an error
// to call this on a session opened with an Open* paths variant.
func (s *EnumerationSession) PullInstances(ctx context.Context, maxObjectCount uint32) ([]*cim.Instance, bool, error) {
	if s.kind != itemInstances {
		return nil, false, fmt.Errorf("wbem: session was opened for instance paths, not instances")
	}
	batch, err := s.pull(ctx, maxObjectCount)
	if err != nil {
		return nil, false, err
	}
	return batch.instances, batch.endOfSequence, nil
}

// PullInstancePaths retrieves the next batch of instance paths. It is
// an error to call this on a session opened with an instances variant.
func (s *EnumerationSession) PullInstancePaths(ctx context.Context, maxObjectCount uint32) ([]cim.InstanceName, bool, error) {
	if s.kind != itemInstanceNames {
		return nil, false, fmt.Errorf("wbem: session was opened for instances, not instance paths")
	}
	batch, err := s.pull(ctx, maxObjectCount)
	if err != nil {
		return nil, false, err
	}
	return batch.instanceNames, batch.endOfSequence, nil
}

// CloseEnumeration releases server-side resources for a session that is
// being abandoned before end of sequence, per spec §4.6.2. Closing an
// already-Closed/Draining/Failed session is a no-op.
func (s *EnumerationSession) CloseEnumeration(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getState() != sessionOpen {
		s.setState(sessionClosed)
		return nil
	}
	params := []cimxml.Param{strParam("EnumerationContext", s.enumContext)}
	_, err := s.conn.call(ctx, cimxml.IntrinsicMethod, "CloseEnumeration", s.namespace, nil, nil, params)
	if err != nil {
		s.setState(sessionFailed)
		return err
	}
	s.setState(sessionClosed)
	return nil
}
