package config

import "github.com/zclconf/go-cty/cty"

// Source kinds of a scan.
const (
	SourceRandom = "random"
	SourceGrid   = "grid"
	SourceList   = "list"
)

// Model is the unified, format-agnostic representation of a scan
// configuration.
type Model struct {
	Models     []string      `validate:"dive,required"`
	Requests   []Request     `validate:"min=1,dive"`
	Rules      []Rule        `validate:"dive"`
	Backends   []BackendRule `validate:"dive"`
	Scan       Scan
	Likelihood Likelihood
	Sinks      Sinks
}

// Request asks for a capability to be computed at every point.
type Request struct {
	Capability string `validate:"required"`
	Type       string
	Function   string
	Module     string
	Purpose    string `validate:"omitempty,oneof=likelihood observable"`
	Label      string
}

// Rule pins providers and sets functor options.
type Rule struct {
	Capability string
	Type       string
	Function   string
	Module     string
	Dependent  string
	Options    map[string]cty.Value
}

// BackendRule pins the versions of a backend library.
type BackendRule struct {
	Capability string
	Library    string   `validate:"required"`
	Versions   []string `validate:"dive,required"`
}

// Scan describes where points come from.
type Scan struct {
	Source     string `validate:"omitempty,oneof=random grid list"`
	Points     int    `validate:"min=0"`
	Seed       uint64
	Parameters []Parameter          `validate:"dive"`
	List       []map[string]float64 `validate:"required_if=Source list"`
}

// Parameter is one scanned model parameter.
type Parameter struct {
	Name  string  `validate:"required"`
	Min   float64 `validate:"ltefield=Max"`
	Max   float64
	Steps int `validate:"min=0"`
}

// Likelihood controls how invalid points are reported.
type Likelihood struct {
	Floor            *float64
	MaxInvalidStreak int `validate:"min=0"`
	Label            string
}

// Sinks selects where point results go. Results are always kept in memory
// for the run summary.
type Sinks struct {
	Log      bool
	SocketIO *SocketIO `validate:"omitempty"`
}

// SocketIO configures the live result stream.
type SocketIO struct {
	URL                string `validate:"required,url"`
	Namespace          string
	Event              string
	ConnectTimeout     string
	InsecureSkipVerify bool
}

// Merge folds other into m.
func (m *Model) Merge(other *Model) {
	m.Models = append(m.Models, other.Models...)
	m.Requests = append(m.Requests, other.Requests...)
	m.Rules = append(m.Rules, other.Rules...)
	m.Backends = append(m.Backends, other.Backends...)

	if other.Scan.Source != "" {
		m.Scan.Source = other.Scan.Source
	}
	if other.Scan.Points != 0 {
		m.Scan.Points = other.Scan.Points
	}
	if other.Scan.Seed != 0 {
		m.Scan.Seed = other.Scan.Seed
	}
	m.Scan.Parameters = append(m.Scan.Parameters, other.Scan.Parameters...)
	m.Scan.List = append(m.Scan.List, other.Scan.List...)

	if other.Likelihood.Floor != nil {
		m.Likelihood.Floor = other.Likelihood.Floor
	}
	if other.Likelihood.MaxInvalidStreak != 0 {
		m.Likelihood.MaxInvalidStreak = other.Likelihood.MaxInvalidStreak
	}
	if other.Likelihood.Label != "" {
		m.Likelihood.Label = other.Likelihood.Label
	}

	m.Sinks.Log = m.Sinks.Log || other.Sinks.Log
	if other.Sinks.SocketIO != nil {
		m.Sinks.SocketIO = other.Sinks.SocketIO
	}
}
