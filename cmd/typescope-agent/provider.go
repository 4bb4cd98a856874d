package main

import (
	"fmt"
	"io"
	"strings"

	"typescope/internal/server"
	"typescope/pkg/channel"
	"typescope/pkg/config"
	"typescope/pkg/extractor"
	"typescope/pkg/model"
	"typescope/pkg/typesys"
	"typescope/pkg/typesys/reflectprovider"
	"typescope/pkg/typesys/srcprovider"
)

// namedProvider overrides the unit name reported by a provider
type namedProvider struct {
	typesys.Provider
	name string
}

func (p namedProvider) UnitName() string { return p.name }

// newProvider builds the type source selected by the agent config
func newProvider(cfg config.AgentConfig) (typesys.Provider, error) {
	var p typesys.Provider
	switch strings.ToLower(cfg.Provider) {
	case "reflect", "":
		p = selfRegistry(config.ServiceName)
	case "source":
		p = srcprovider.New(cfg.SourceDir, cfg.SourcePattern)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}

	if cfg.UnitName != "" {
		p = namedProvider{Provider: p, name: cfg.UnitName}
	}
	return p, nil
}

// selfRegistry describes the agent's own types
func selfRegistry(unit string) *reflectprovider.Registry {
	return reflectprovider.New(unit).
		Register(
			model.Snapshot{},
			model.TypeDescriptor{},
			model.FieldDescriptor{},
			model.MethodDescriptor{},
			model.ParameterDescriptor{},
			model.PropertyDescriptor{},
			model.Stats{},
			(*channel.Channel)(nil),
			(*channel.Opener)(nil),
			channel.Endpoint{},
			channel.CapabilityError{},
			channel.Error{},
			(*server.Server)(nil),
			server.Status{},
			server.Command{},
			extractor.Report{},
			extractor.TypeFault{},
			config.Config{},
			config.ChannelConfig{},
		).
		RegisterEnum(channel.ModeDuplex, "ModeDuplex", "ModeSendOnly").
		RegisterEnum(channel.TransportUnknown,
			"TransportUnknown", "TransportUnix", "TransportTCP", "TransportFIFO", "TransportWebSocket").
		RegisterEnum(server.StateIdle,
			"StateIdle", "StateListening", "StateConnected", "StateStreaming", "StateDisconnected", "StateStopped").
		RegisterEnum(server.CommandUnknown,
			"CommandUnknown", "CommandInterval", "CommandRefresh", "CommandInvalid")
}

// printSummary writes the result of one extraction pass
func printSummary(w io.Writer, snap *model.Snapshot, report extractor.Report) {
	st := snap.Stats()
	fmt.Fprintf(w, "Unit: %s\n", snap.SourceName)
	fmt.Fprintf(w, "Total types found: %d\n", st.Types)
	fmt.Fprintf(w, "Members: %d fields, %d methods, %d properties\n", st.Fields, st.Methods, st.Properties)
	if len(snap.Types) > 0 {
		first := snap.Types[0]
		fmt.Fprintf(w, "First type: %s\n", first.FullName)
		fmt.Fprintf(w, "  Fields: %d\n", len(first.Fields))
		fmt.Fprintf(w, "  Methods: %d\n", len(first.Methods))
		fmt.Fprintf(w, "  Properties: %d\n", len(first.Properties))
	}
	if report.Partial != nil {
		fmt.Fprintf(w, "Partial enumeration: %v\n", report.Partial)
	}
	if report.Failed != nil {
		fmt.Fprintf(w, "Enumeration failed: %v\n", report.Failed)
	}
	for _, f := range report.Dropped {
		fmt.Fprintf(w, "Dropped: %v\n", &f)
	}
	fmt.Fprintf(w, "Extraction took %s\n", report.Duration)
}
