package cli

import (
	"fmt"
	"slices"

	"github.com/PuniCore/Puni/internal/adapter"
	"github.com/PuniCore/Puni/internal/config"
	"github.com/PuniCore/Puni/internal/discovery"
	"github.com/PuniCore/Puni/internal/event"
	"github.com/PuniCore/Puni/internal/installer"
	"github.com/PuniCore/Puni/internal/loader"
	"github.com/PuniCore/Puni/internal/metrics"
	"github.com/PuniCore/Puni/internal/plugin"
	"github.com/PuniCore/Puni/internal/segment"
	"github.com/PuniCore/Puni/internal/task"
	"github.com/PuniCore/Puni/internal/userdata"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// host is the plugin runtime wired from one settings snapshot.
type host struct {
	settings config.Settings
	manager  *plugin.Manager
	runner   *task.Runner
	metrics  *metrics.Metrics
}

// newHost wires scanner, importer, registry and dispatcher. Task
// scheduling is only wired when schedule is set; the runner is returned
// unstarted.
func newHost(s config.Settings, schedule bool) (*host, error) {
	dataDir, err := userdata.GetDataRoot(s.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data root: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	h := &host{
		settings: s,
		metrics:  metrics.New(reg),
	}
	if schedule {
		h.runner = task.New(task.Options{
			Logger: logger,
			OnRun:  h.metrics.ObserveTask,
		})
	}

	scanner := discovery.New(discovery.Options{
		PluginsDir:    s.PluginsDir,
		HostDir:       s.HostDir,
		ModulesDir:    s.ModulesDir,
		EngineVersion: s.EngineVersion,
		SourceMode:    s.SourceMode,
		TTL:           s.CacheTTL,
		EnvFile:       s.EnvFile,
		Logger:        logger,
	})

	h.manager = plugin.New(plugin.Options{
		Scanner:  scanner,
		Importer: loader.NewYaegiImporter(loader.YaegiOptions{}),
		Runner:   h.runner,
		Metrics:  h.metrics,
		DataDir:  dataDir,
		Logger:   logger,
	})
	return h, nil
}

// newInstaller returns an installer rooted at the configured plugin dir.
func newInstaller(s config.Settings) *installer.Installer {
	return installer.New(installer.Options{
		PluginsDir: s.PluginsDir,
		Logger:     logger,
	})
}

// consoleEvent turns one console line into a friend message event. Master
// and admin flags come from the configured permission lists.
func (h *host) consoleEvent(bot *adapter.Console, msg adapter.ConsoleMessage) *event.Event {
	s := h.settings
	return event.New(event.Options{
		Kind:    event.KindMessage,
		SubKind: string(adapter.SceneFriend),
		EventID: msg.MessageID,
		Raw:     msg,
		Time:    msg.Time,
		Contact: adapter.Contact{Scene: adapter.SceneFriend, Peer: msg.UserID},
		Sender: event.Sender{
			UserID: msg.UserID,
			Role:   event.RoleUnknown,
		},
		IsMaster:  slices.Contains(s.Masters, msg.UserID),
		IsAdmin:   slices.Contains(s.Admins, msg.UserID),
		MessageID: msg.MessageID,
		Elements:  []segment.Element{segment.Text(msg.Text)},
		Bot:       bot,
		Log:       logger.Named("event"),
		OnSend:    h.metrics.ObserveSend,
	})
}
