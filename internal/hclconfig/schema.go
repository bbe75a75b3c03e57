package hclconfig

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all top-level content of a file.
type fileRoot struct {
	Models     []string         `hcl:"models,optional"`
	Requests   []*requestBlock  `hcl:"request,block"`
	Rules      []*ruleBlock     `hcl:"rule,block"`
	Backends   []*backendBlock  `hcl:"backend,block"`
	Scan       *scanBlock       `hcl:"scan,block"`
	Likelihood *likelihoodBlock `hcl:"likelihood,block"`
	Sinks      *sinksBlock      `hcl:"sinks,block"`
}

type requestBlock struct {
	Capability string `hcl:"capability,label"`
	Type       string `hcl:"type,optional"`
	Function   string `hcl:"function,optional"`
	Module     string `hcl:"module,optional"`
	Purpose    string `hcl:"purpose,optional"`
	Label      string `hcl:"label,optional"`
}

type ruleBlock struct {
	Capability string        `hcl:"capability,optional"`
	Type       string        `hcl:"type,optional"`
	Function   string        `hcl:"function,optional"`
	Module     string        `hcl:"module,optional"`
	Dependent  string        `hcl:"dependent,optional"`
	Options    *optionsBlock `hcl:"options,block"`
}

// optionsBlock captures free-form attributes.
type optionsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type backendBlock struct {
	Library    string   `hcl:"library,label"`
	Capability string   `hcl:"capability,optional"`
	Versions   []string `hcl:"versions,optional"`
}

type scanBlock struct {
	Source     string            `hcl:"source,optional"`
	Points     int               `hcl:"points,optional"`
	Seed       uint64            `hcl:"seed,optional"`
	Parameters []*parameterBlock `hcl:"parameter,block"`
	List       []*optionsBlock   `hcl:"point,block"`
}

type parameterBlock struct {
	Name  string  `hcl:"name,label"`
	Min   float64 `hcl:"min,optional"`
	Max   float64 `hcl:"max,optional"`
	Steps int     `hcl:"steps,optional"`
}

type likelihoodBlock struct {
	Floor            *float64 `hcl:"floor,optional"`
	MaxInvalidStreak int      `hcl:"max_invalid_streak,optional"`
	Label            string   `hcl:"label,optional"`
}

type sinksBlock struct {
	Log      bool           `hcl:"log,optional"`
	SocketIO *socketIOBlock `hcl:"socketio,block"`
}

type socketIOBlock struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	Event              string `hcl:"event,optional"`
	ConnectTimeout     string `hcl:"connect_timeout,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}
