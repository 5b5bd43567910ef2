package loader

import (
	"reflect"

	"github.com/PuniCore/Puni/internal/adapter"
	"github.com/PuniCore/Puni/internal/capability"
	"github.com/PuniCore/Puni/internal/event"
	"github.com/PuniCore/Puni/internal/segment"
	"github.com/traefik/yaegi/interp"
)

// APIImportPath is the import path interpreted plugins use for the plugin
// API, as in: import "puni".
const APIImportPath = "puni"

// Symbols exposes the plugin API to interpreted code.
var Symbols = interp.Exports{
	APIImportPath + "/puni": {
		// capabilities
		"NewCommand":       reflect.ValueOf(capability.NewCommand),
		"NewAccept":        reflect.ValueOf(capability.NewAccept),
		"NewTask":          reflect.ValueOf(capability.NewTask),
		"NewButton":        reflect.ValueOf(capability.NewButton),
		"NewHandler":       reflect.ValueOf(capability.NewHandler),
		"WithName":         reflect.ValueOf(capability.WithName),
		"WithPriority":     reflect.ValueOf(capability.WithPriority),
		"WithPermission":   reflect.ValueOf(capability.WithPermission),
		"WithEvent":        reflect.ValueOf(capability.WithEvent),
		"WithAdapters":     reflect.ValueOf(capability.WithAdapters),
		"WithDenyAdapters": reflect.ValueOf(capability.WithDenyAdapters),
		"WithAuthFailMsg":  reflect.ValueOf(capability.WithAuthFailMsg),
		"WithLog":          reflect.ValueOf(capability.WithLog),
		"Int":              reflect.ValueOf(capability.Int),
		"Bool":             reflect.ValueOf(capability.Bool),
		"DefaultPriority":  reflect.ValueOf(capability.DefaultPriority),

		"Command":     reflect.ValueOf((*capability.Command)(nil)),
		"Accept":      reflect.ValueOf((*capability.Accept)(nil)),
		"Task":        reflect.ValueOf((*capability.Task)(nil)),
		"Button":      reflect.ValueOf((*capability.Button)(nil)),
		"Handler":     reflect.ValueOf((*capability.Handler)(nil)),
		"Set":         reflect.ValueOf((*capability.Set)(nil)),
		"Capability":  reflect.ValueOf((*capability.Capability)(nil)),
		"Plugin":      reflect.ValueOf((*capability.Plugin)(nil)),
		"Rule":        reflect.ValueOf((*capability.Rule)(nil)),
		"Builder":     reflect.ValueOf((*capability.Builder)(nil)),
		"EventFunc":   reflect.ValueOf((*capability.EventFunc)(nil)),
		"ButtonFunc":  reflect.ValueOf((*capability.ButtonFunc)(nil)),
		"HandlerFunc": reflect.ValueOf((*capability.HandlerFunc)(nil)),
		"TaskFunc":    reflect.ValueOf((*capability.TaskFunc)(nil)),
		"Option":      reflect.ValueOf((*capability.Option)(nil)),

		// events
		"Event":        reflect.ValueOf((*event.Event)(nil)),
		"ReplyOptions": reflect.ValueOf((*event.ReplyOptions)(nil)),
		"Permission":   reflect.ValueOf((*event.Permission)(nil)),
		"Sender":       reflect.ValueOf((*event.Sender)(nil)),
		"Contact":      reflect.ValueOf((*adapter.Contact)(nil)),

		"PermAll":        reflect.ValueOf(event.PermAll),
		"PermMaster":     reflect.ValueOf(event.PermMaster),
		"PermAdmin":      reflect.ValueOf(event.PermAdmin),
		"PermGroupOwner": reflect.ValueOf(event.PermGroupOwner),
		"PermGuildOwner": reflect.ValueOf(event.PermGuildOwner),
		"PermGroupAdmin": reflect.ValueOf(event.PermGroupAdmin),
		"PermGuildAdmin": reflect.ValueOf(event.PermGuildAdmin),
		"PermMember":     reflect.ValueOf(event.PermMember),

		// message elements
		"Element": reflect.ValueOf((*segment.Element)(nil)),
		"Text":    reflect.ValueOf(segment.Text),
		"At":      reflect.ValueOf(segment.At),
		"Quote":   reflect.ValueOf(segment.Quote),
		"Image":   reflect.ValueOf(segment.Image),
		"Face":    reflect.ValueOf(segment.Face),
		"Make":    reflect.ValueOf(segment.Make),
	},
}
