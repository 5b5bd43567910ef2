package registry

import (
	"fmt"

	"github.com/PuniCore/Puni/internal/capability"
	"github.com/PuniCore/Puni/internal/discovery"
	"github.com/PuniCore/Puni/internal/loader"
	"github.com/PuniCore/Puni/internal/report"
	"go.uber.org/zap"
)

// defaultExport is never classified.
const defaultExport = "default"

// Classify registers every capability exported by one file of package d
// and returns how many records were added. Definition problems are logged
// and recorded; they never stop the remaining exports.
func (b *Batch) Classify(d *discovery.Descriptor, file string, exports loader.Exports) int {
	n := 0
	for _, exp := range exports {
		if exp.Name == defaultExport {
			continue
		}
		n += b.classifyValue(d, file, exp.Name, exp.Value)
	}
	return n
}

func (b *Batch) classifyValue(d *discovery.Descriptor, file, method string, v any) int {
	switch x := v.(type) {
	case capability.Builder:
		return b.addPlugin(d, file, method, x)
	case func() capability.Plugin:
		return b.addPlugin(d, file, method, x)
	case capability.Capability:
		return b.add(d, file, method, x)
	case capability.Set:
		return b.addAll(d, file, method, x)
	case []capability.Capability:
		return b.addAll(d, file, method, x)
	case []*capability.Command:
		return addSlice(b, d, file, method, x)
	case []*capability.Accept:
		return addSlice(b, d, file, method, x)
	case []*capability.Task:
		return addSlice(b, d, file, method, x)
	case []*capability.Button:
		return addSlice(b, d, file, method, x)
	case []*capability.Handler:
		return addSlice(b, d, file, method, x)
	default:
		return 0
	}
}

func addSlice[T capability.Capability](b *Batch, d *discovery.Descriptor, file, method string, caps []T) int {
	n := 0
	for _, c := range caps {
		n += b.add(d, file, method, c)
	}
	return n
}

func (b *Batch) addAll(d *discovery.Descriptor, file, method string, caps []capability.Capability) int {
	n := 0
	for _, c := range caps {
		n += b.add(d, file, method, c)
	}
	return n
}

// addPlugin invokes a plugin builder once and registers one command per
// valid rule.
func (b *Batch) addPlugin(d *discovery.Descriptor, file, method string, build func() capability.Plugin) (n int) {
	p, err := invokeBuilder(build)
	if err != nil {
		b.definitionIssue(d, file, method, err)
		return 0
	}
	cmds, skipped, err := p.Commands()
	if err != nil {
		b.definitionIssue(d, file, method, err)
		return 0
	}
	for _, s := range skipped {
		b.definitionIssue(d, file, p.Rules[s.Index].MethodName(s.Index), s.Err)
	}
	for _, c := range cmds {
		b.next.Commands = append(b.next.Commands, Entry[*capability.Command]{
			Cap:     c,
			Package: d,
			File:    capability.NewFile(file, capability.KindCommand, c.Method, p.Name),
		})
		n++
	}
	return n
}

func invokeBuilder(build func() capability.Plugin) (p capability.Plugin, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: plugin builder panicked: %v", capability.ErrDefinition, r)
		}
	}()
	return build(), nil
}

// add appends one record into its bucket.
func (b *Batch) add(d *discovery.Descriptor, file, method string, c capability.Capability) int {
	if isNil(c) {
		return 0
	}
	if err := c.Err(); err != nil {
		b.definitionIssue(d, file, method, err)
		return 0
	}
	switch x := c.(type) {
	case *capability.Command:
		b.next.Commands = append(b.next.Commands, Entry[*capability.Command]{
			Cap: x, Package: d, File: capability.NewFile(file, x.Kind(), method, x.Name),
		})
	case *capability.Accept:
		b.next.Accepts = append(b.next.Accepts, Entry[*capability.Accept]{
			Cap: x, Package: d, File: capability.NewFile(file, x.Kind(), method, x.Name),
		})
	case *capability.Task:
		b.next.Tasks = append(b.next.Tasks, Entry[*capability.Task]{
			Cap: x, Package: d, File: capability.NewFile(file, x.Kind(), method, x.Name),
		})
	case *capability.Button:
		b.next.Buttons = append(b.next.Buttons, Entry[*capability.Button]{
			Cap: x, Package: d, File: capability.NewFile(file, x.Kind(), method, x.Name),
		})
	case *capability.Handler:
		b.next.Handlers[x.Key] = append(b.next.Handlers[x.Key], Entry[*capability.Handler]{
			Cap: x, Package: d, File: capability.NewFile(file, x.Kind(), method, x.Name),
		})
	default:
		return 0
	}
	return 1
}

func (b *Batch) definitionIssue(d *discovery.Descriptor, file, method string, err error) {
	b.rep.Add(report.KindDefinition, d.Name, file, fmt.Errorf("%s: %w", method, err))
	b.r.log.Error("invalid capability skipped",
		zap.String("package", d.Name),
		zap.String("file", file),
		zap.String("export", method),
		zap.Error(err))
}

func isNil(c capability.Capability) bool {
	switch x := c.(type) {
	case *capability.Command:
		return x == nil
	case *capability.Accept:
		return x == nil
	case *capability.Task:
		return x == nil
	case *capability.Button:
		return x == nil
	case *capability.Handler:
		return x == nil
	}
	return c == nil
}
