package devs

import (
	"fmt"

	"github.com/google/uuid"
)

// ModelNode is either an AtomicModel or a CoupledModel.
type ModelNode interface {
	modelName() string
	modelID() uuid.UUID
	inputPorts() []string
	outputPorts() []string
}

// DynamicFactory builds a fresh Dynamics instance for an AtomicModel at
// flatten time, given the bindings recorded on the node. It stands in for
// the source's (packageName, libraryName, symbolName) constructor lookup;
// the model-library loader that would populate such a registry is an
// external collaborator and out of scope here.
type DynamicFactory func(bindings map[string]Value) (Dynamics, error)

// AtomicModel is a leaf of the model tree.
type AtomicModel struct {
	Name     string
	ID       uuid.UUID
	InPorts  []string
	OutPorts []string
	Factory  DynamicFactory
	Bindings map[string]Value
	Views    []ViewAttachment
}

// NewAtomic constructs an atomic model node with a fresh stable ID.
func NewAtomic(name string, factory DynamicFactory, inPorts, outPorts []string) *AtomicModel {
	return &AtomicModel{
		Name:     name,
		ID:       uuid.New(),
		InPorts:  inPorts,
		OutPorts: outPorts,
		Factory:  factory,
		Bindings: map[string]Value{},
	}
}

// WithBinding attaches an initial condition-binding parameter, opaque to the
// kernel, forwarded verbatim to the dynamic factory.
func (a *AtomicModel) WithBinding(name string, v Value) *AtomicModel {
	a.Bindings[name] = v
	return a
}

// WithView attaches an observation view to one of this node's ports.
func (a *AtomicModel) WithView(attachment ViewAttachment) *AtomicModel {
	a.Views = append(a.Views, attachment)
	return a
}

func (a *AtomicModel) modelName() string      { return a.Name }
func (a *AtomicModel) modelID() uuid.UUID     { return a.ID }
func (a *AtomicModel) inputPorts() []string   { return a.InPorts }
func (a *AtomicModel) outputPorts() []string  { return a.OutPorts }

func (a *AtomicModel) hasInPort(p string) bool  { return contains(a.InPorts, p) }
func (a *AtomicModel) hasOutPort(p string) bool { return contains(a.OutPorts, p) }

// Endpoint names one side of a Connection. Node is the name of a direct
// child of the owning CoupledModel, or "" to mean the coupled model's own
// port (self-input/self-output connections).
type Endpoint struct {
	Node string
	Port string
}

func (e Endpoint) String() string {
	if e.Node == "" {
		return "self." + e.Port
	}
	return e.Node + "." + e.Port
}

// Connection wires a source endpoint to a destination endpoint.
type Connection struct {
	From Endpoint
	To   Endpoint
}

// CoupledModel is an internal node composing children via connections.
type CoupledModel struct {
	Name     string
	ID       uuid.UUID
	InPorts  []string
	OutPorts []string
	Children []ModelNode
	Conns    []Connection

	byName map[string]ModelNode
}

// NewCoupled constructs an empty coupled model node.
func NewCoupled(name string, inPorts, outPorts []string) *CoupledModel {
	return &CoupledModel{
		Name:     name,
		ID:       uuid.New(),
		InPorts:  inPorts,
		OutPorts: outPorts,
		byName:   map[string]ModelNode{},
	}
}

func (c *CoupledModel) modelName() string     { return c.Name }
func (c *CoupledModel) modelID() uuid.UUID    { return c.ID }
func (c *CoupledModel) inputPorts() []string  { return c.InPorts }
func (c *CoupledModel) outputPorts() []string { return c.OutPorts }

// AddChild adds an atomic or coupled child. Child names must be unique
// within their direct parent.
func (c *CoupledModel) AddChild(child ModelNode) error {
	name := child.modelName()
	if _, exists := c.byName[name]; exists {
		return &GraphError{Message: fmt.Sprintf("duplicate child name %q in coupled model %q", name, c.Name)}
	}
	c.byName[name] = child
	c.Children = append(c.Children, child)
	return nil
}

// Connect records a connection between two endpoints of this coupled
// model. Self-loops and duplicate connections are permitted (spec design
// choice). Endpoints are validated eagerly against declared ports so a
// dangling reference is caught at build time rather than at flatten time.
func (c *CoupledModel) Connect(from, to Endpoint) error {
	if err := c.validateEndpoint(from, true); err != nil {
		return err
	}
	if err := c.validateEndpoint(to, false); err != nil {
		return err
	}
	c.Conns = append(c.Conns, Connection{From: from, To: to})
	return nil
}

func (c *CoupledModel) validateEndpoint(ep Endpoint, isSource bool) error {
	if ep.Node == "" {
		ports := c.InPorts
		if isSource {
			ports = c.InPorts // self as source => input-connection (self-input -> child-input)
		} else {
			ports = c.OutPorts // self as destination => output-connection (child-output -> self-output)
		}
		if !contains(ports, ep.Port) {
			return &GraphError{Message: fmt.Sprintf("coupled model %q has no port %q for self endpoint", c.Name, ep.Port)}
		}
		return nil
	}
	child, ok := c.byName[ep.Node]
	if !ok {
		return &GraphError{Message: fmt.Sprintf("coupled model %q has no child %q", c.Name, ep.Node)}
	}
	var ports []string
	if isSource {
		ports = child.outputPorts()
	} else {
		ports = child.inputPorts()
	}
	if !contains(ports, ep.Port) {
		return &GraphError{Message: fmt.Sprintf("child %q of %q has no port %q", ep.Node, c.Name, ep.Port)}
	}
	return nil
}

// RemoveChild detaches the named direct child and strips any connection
// mentioning it, returning the removed node. Used by the executive bridge
// applying a RemoveAtomic/RemoveCoupledChild mutation.
func (c *CoupledModel) RemoveChild(name string) (ModelNode, error) {
	child, ok := c.byName[name]
	if !ok {
		return nil, &GraphError{Message: fmt.Sprintf("coupled model %q has no child %q", c.Name, name)}
	}
	delete(c.byName, name)
	for i, ch := range c.Children {
		if ch.modelName() == name {
			c.Children = append(c.Children[:i], c.Children[i+1:]...)
			break
		}
	}
	kept := c.Conns[:0]
	for _, conn := range c.Conns {
		if conn.From.Node == name || conn.To.Node == name {
			continue
		}
		kept = append(kept, conn)
	}
	c.Conns = kept
	return child, nil
}

// RemoveConnection removes the first connection equal to conn.
func (c *CoupledModel) RemoveConnection(conn Connection) error {
	for i, existing := range c.Conns {
		if existing == conn {
			c.Conns = append(c.Conns[:i], c.Conns[i+1:]...)
			return nil
		}
	}
	return &GraphError{Message: fmt.Sprintf("coupled model %q has no connection %s -> %s", c.Name, conn.From, conn.To)}
}

// CollectAtomics returns every AtomicModel leaf under node, depth-first.
func CollectAtomics(node ModelNode) []*AtomicModel {
	switch n := node.(type) {
	case *AtomicModel:
		return []*AtomicModel{n}
	case *CoupledModel:
		var out []*AtomicModel
		for _, ch := range n.Children {
			out = append(out, CollectAtomics(ch)...)
		}
		return out
	default:
		return nil
	}
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
