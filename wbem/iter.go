package wbem

import (
	"context"
	"errors"

	"github.com/rob-gra/go-wbem/cim"
)

// defaultPullBatchSize is the MaxObjectCount requested by the Iter*
// facade's internal Pull calls when the caller does not need to tune
// it directly, per spec §4.6.3.
const defaultPullBatchSize uint32 = 100

// InstanceIterator presents either a pull-dialect session or a single
// traditional Enumerate* result as one cursor, per spec §4.6.3: callers
// never need to know which dialect the server actually spoke.
type InstanceIterator struct {
	conn  *Connection
	sess  *EnumerationSession // nil when drawing from a traditional Enumerate* result
	items []*cim.Instance
	idx   int
	eos   bool
}

// Next advances the iterator and returns the next instance. The second
// return value is false once the sequence is exhausted.
func (it *InstanceIterator) Next(ctx context.Context) (*cim.Instance, bool, error) {
	for it.idx >= len(it.items) {
		if it.eos || it.sess == nil {
			return nil, false, nil
		}
		batch, eos, err := it.sess.PullInstances(ctx, defaultPullBatchSize)
		if err != nil {
			return nil, false, err
		}
		it.items = batch
		it.idx = 0
		it.eos = eos
	}
	inst := it.items[it.idx]
	it.idx++
	return inst, true, nil
}

// Close abandons the iterator early, best-effort closing the
// underlying pull session if one is open. Safe to call on an
// already-exhausted or traditional iterator.
func (it *InstanceIterator) Close(ctx context.Context) error {
	if it.sess == nil {
		return nil
	}
	return it.sess.CloseEnumeration(ctx)
}

// InstanceNameIterator is the InstanceIterator analog for instance-path
// enumerations.
type InstanceNameIterator struct {
	sess  *EnumerationSession
	items []cim.InstanceName
	idx   int
	eos   bool
}

func (it *InstanceNameIterator) Next(ctx context.Context) (cim.InstanceName, bool, error) {
	for it.idx >= len(it.items) {
		if it.eos || it.sess == nil {
			return cim.InstanceName{}, false, nil
		}
		batch, eos, err := it.sess.PullInstancePaths(ctx, defaultPullBatchSize)
		if err != nil {
			return cim.InstanceName{}, false, err
		}
		it.items = batch
		it.idx = 0
		it.eos = eos
	}
	name := it.items[it.idx]
	it.idx++
	return name, true, nil
}

func (it *InstanceNameIterator) Close(ctx context.Context) error {
	if it.sess == nil {
		return nil
	}
	return it.sess.CloseEnumeration(ctx)
}

// dialectIsTraditionalOnly reports whether namespace has previously
// responded CIM_ERR_NOT_SUPPORTED to a pull-dialect Open* call. Once set
// this is never cleared, per spec §5's write-once dialect cache.
func (c *Connection) dialectIsTraditionalOnly(namespace string) bool {
	v, ok := c.dialectCache.Load(namespace)
	return ok && v.(bool)
}

func (c *Connection) markTraditionalOnly(namespace string) {
	c.dialectCache.Store(namespace, true)
}

func isNotSupported(err error) bool {
	var werr *Error
	if !errors.As(err, &werr) {
		return false
	}
	return werr.Kind == KindCIMError && werr.StatusCode == ErrNotSupported
}

// IterEnumerateInstances returns an InstanceIterator over className's
// instances, transparently using the pull dialect when the server
// supports it and falling back to a single traditional
// EnumerateInstances call (cached per namespace) otherwise, per spec
// §4.6.3 / §8 scenario 4.
func (c *Connection) IterEnumerateInstances(ctx context.Context, namespace, className string,
	deepInheritance bool, propertyList []string) (*InstanceIterator, error) {

	ns := c.namespaceOrDefault(namespace)

	if c.cfg.UsePullOperations == ForceFalse || c.dialectIsTraditionalOnly(ns) {
		insts, err := c.EnumerateInstances(ctx, ns, className, deepInheritance, false, true, true, propertyList)
		if err != nil {
			return nil, err
		}
		return &InstanceIterator{conn: c, items: insts, eos: true}, nil
	}

	sess, batch, eos, err := c.OpenEnumerateInstances(ctx, ns, className, deepInheritance, propertyList, defaultPullBatchSize, PullOptions{})
	if err != nil {
		if c.cfg.UsePullOperations == ForceTrue || !isNotSupported(err) {
			return nil, err
		}
		c.markTraditionalOnly(ns)
		insts, ferr := c.EnumerateInstances(ctx, ns, className, deepInheritance, false, true, true, propertyList)
		if ferr != nil {
			return nil, ferr
		}
		return &InstanceIterator{conn: c, items: insts, eos: true}, nil
	}
	if eos {
		sess = nil
	}
	return &InstanceIterator{conn: c, sess: sess, items: batch, eos: eos}, nil
}

// IterEnumerateInstancePaths is the InstanceNameIterator analog of
// IterEnumerateInstances, per spec §4.6.3.
func (c *Connection) IterEnumerateInstancePaths(ctx context.Context, namespace, className string) (*InstanceNameIterator, error) {
	ns := c.namespaceOrDefault(namespace)

	if c.cfg.UsePullOperations == ForceFalse || c.dialectIsTraditionalOnly(ns) {
		names, err := c.EnumerateInstanceNames(ctx, ns, className)
		if err != nil {
			return nil, err
		}
		return &InstanceNameIterator{items: names, eos: true}, nil
	}

	sess, batch, eos, err := c.OpenEnumerateInstancePaths(ctx, ns, className, defaultPullBatchSize, PullOptions{})
	if err != nil {
		if c.cfg.UsePullOperations == ForceTrue || !isNotSupported(err) {
			return nil, err
		}
		c.markTraditionalOnly(ns)
		names, ferr := c.EnumerateInstanceNames(ctx, ns, className)
		if ferr != nil {
			return nil, ferr
		}
		return &InstanceNameIterator{items: names, eos: true}, nil
	}
	if eos {
		sess = nil
	}
	return &InstanceNameIterator{sess: sess, items: batch, eos: eos}, nil
}

// associatedObjectsToInstances flattens Associators/References' path+
// instance pairs into the plain *cim.Instance slice InstanceIterator
// expects, attaching each pair's path onto its instance.
func associatedObjectsToInstances(objs []AssociatedObject) []*cim.Instance {
	out := make([]*cim.Instance, len(objs))
	for i, o := range objs {
		inst := o.Instance
		path := o.Path
		inst.Path = &path
		out[i] = inst
	}
	return out
}

// IterAssociatorInstances is the Iter* facade over Associators/
// OpenAssociatorInstances, per spec §4.6.3 and SPEC_FULL.md Supplement 4.
func (c *Connection) IterAssociatorInstances(ctx context.Context, namespace string, path cim.InstanceName,
	assocClass, resultClass, role, resultRole string, propertyList []string) (*InstanceIterator, error) {

	ns := c.namespaceOrDefault(namespace)

	if c.cfg.UsePullOperations == ForceFalse || c.dialectIsTraditionalOnly(ns) {
		objs, err := c.Associators(ctx, ns, path, assocClass, resultClass, role, resultRole, true, true, propertyList)
		if err != nil {
			return nil, err
		}
		return &InstanceIterator{conn: c, items: associatedObjectsToInstances(objs), eos: true}, nil
	}

	sess, batch, eos, err := c.OpenAssociatorInstances(ctx, ns, path, assocClass, resultClass, role, resultRole, propertyList, defaultPullBatchSize, PullOptions{})
	if err != nil {
		if c.cfg.UsePullOperations == ForceTrue || !isNotSupported(err) {
			return nil, err
		}
		c.markTraditionalOnly(ns)
		objs, ferr := c.Associators(ctx, ns, path, assocClass, resultClass, role, resultRole, true, true, propertyList)
		if ferr != nil {
			return nil, ferr
		}
		return &InstanceIterator{conn: c, items: associatedObjectsToInstances(objs), eos: true}, nil
	}
	if eos {
		sess = nil
	}
	return &InstanceIterator{conn: c, sess: sess, items: batch, eos: eos}, nil
}

// IterAssociatorInstancePaths is the InstanceNameIterator analog of
// IterAssociatorInstances, backed by AssociatorNames/
// OpenAssociatorInstancePaths.
func (c *Connection) IterAssociatorInstancePaths(ctx context.Context, namespace string, path cim.InstanceName,
	assocClass, resultClass, role, resultRole string) (*InstanceNameIterator, error) {

	ns := c.namespaceOrDefault(namespace)

	if c.cfg.UsePullOperations == ForceFalse || c.dialectIsTraditionalOnly(ns) {
		names, err := c.AssociatorNames(ctx, ns, path, assocClass, resultClass, role, resultRole)
		if err != nil {
			return nil, err
		}
		return &InstanceNameIterator{items: names, eos: true}, nil
	}

	sess, batch, eos, err := c.OpenAssociatorInstancePaths(ctx, ns, path, assocClass, resultClass, role, resultRole, defaultPullBatchSize, PullOptions{})
	if err != nil {
		if c.cfg.UsePullOperations == ForceTrue || !isNotSupported(err) {
			return nil, err
		}
		c.markTraditionalOnly(ns)
		names, ferr := c.AssociatorNames(ctx, ns, path, assocClass, resultClass, role, resultRole)
		if ferr != nil {
			return nil, ferr
		}
		return &InstanceNameIterator{items: names, eos: true}, nil
	}
	if eos {
		sess = nil
	}
	return &InstanceNameIterator{sess: sess, items: batch, eos: eos}, nil
}

// IterReferenceInstances is the Iter* facade over References/
// OpenReferenceInstances.
func (c *Connection) IterReferenceInstances(ctx context.Context, namespace string, path cim.InstanceName,
	resultClass, role string, propertyList []string) (*InstanceIterator, error) {

	ns := c.namespaceOrDefault(namespace)

	if c.cfg.UsePullOperations == ForceFalse || c.dialectIsTraditionalOnly(ns) {
		objs, err := c.References(ctx, ns, path, resultClass, role, true, true, propertyList)
		if err != nil {
			return nil, err
		}
		return &InstanceIterator{conn: c, items: associatedObjectsToInstances(objs), eos: true}, nil
	}

	sess, batch, eos, err := c.OpenReferenceInstances(ctx, ns, path, resultClass, role, propertyList, defaultPullBatchSize, PullOptions{})
	if err != nil {
		if c.cfg.UsePullOperations == ForceTrue || !isNotSupported(err) {
			return nil, err
		}
		c.markTraditionalOnly(ns)
		objs, ferr := c.References(ctx, ns, path, resultClass, role, true, true, propertyList)
		if ferr != nil {
			return nil, ferr
		}
		return &InstanceIterator{conn: c, items: associatedObjectsToInstances(objs), eos: true}, nil
	}
	if eos {
		sess = nil
	}
	return &InstanceIterator{conn: c, sess: sess, items: batch, eos: eos}, nil
}

// IterReferenceInstancePaths is the InstanceNameIterator analog of
// IterReferenceInstances, backed by ReferenceNames/
// OpenReferenceInstancePaths.
func (c *Connection) IterReferenceInstancePaths(ctx context.Context, namespace string, path cim.InstanceName,
	resultClass, role string) (*InstanceNameIterator, error) {

	ns := c.namespaceOrDefault(namespace)

	if c.cfg.UsePullOperations == ForceFalse || c.dialectIsTraditionalOnly(ns) {
		names, err := c.ReferenceNames(ctx, ns, path, resultClass, role)
		if err != nil {
			return nil, err
		}
		return &InstanceNameIterator{items: names, eos: true}, nil
	}

	sess, batch, eos, err := c.OpenReferenceInstancePaths(ctx, ns, path, resultClass, role, defaultPullBatchSize, PullOptions{})
	if err != nil {
		if c.cfg.UsePullOperations == ForceTrue || !isNotSupported(err) {
			return nil, err
		}
		c.markTraditionalOnly(ns)
		names, ferr := c.ReferenceNames(ctx, ns, path, resultClass, role)
		if ferr != nil {
			return nil, ferr
		}
		return &InstanceNameIterator{items: names, eos: true}, nil
	}
	if eos {
		sess = nil
	}
	return &InstanceNameIterator{sess: sess, items: batch, eos: eos}, nil
}

// IterQueryInstances is the Iter* facade over ExecQuery/
// OpenQueryInstances. There is no path-only variant: ExecQuery has none
// either.
func (c *Connection) IterQueryInstances(ctx context.Context, namespace, query, queryLanguage string) (*InstanceIterator, error) {
	ns := c.namespaceOrDefault(namespace)

	if c.cfg.UsePullOperations == ForceFalse || c.dialectIsTraditionalOnly(ns) {
		insts, err := c.ExecQuery(ctx, ns, query, queryLanguage)
		if err != nil {
			return nil, err
		}
		return &InstanceIterator{conn: c, items: insts, eos: true}, nil
	}

	sess, batch, eos, err := c.OpenQueryInstances(ctx, ns, query, queryLanguage, defaultPullBatchSize, PullOptions{})
	if err != nil {
		if c.cfg.UsePullOperations == ForceTrue || !isNotSupported(err) {
			return nil, err
		}
		c.markTraditionalOnly(ns)
		insts, ferr := c.ExecQuery(ctx, ns, query, queryLanguage)
		if ferr != nil {
			return nil, ferr
		}
		return &InstanceIterator{conn: c, items: insts, eos: true}, nil
	}
	if eos {
		sess = nil
	}
	return &InstanceIterator{conn: c, sess: sess, items: batch, eos: eos}, nil
}
