package yamlconfig

import "gopkg.in/yaml.v3"

type document struct {
	Parameters yaml.Node `yaml:"Parameters"`
	ObsLikes   []obsLike `yaml:"ObsLikes"`
	Rules      []rule    `yaml:"Rules"`
	Backends   []backend `yaml:"Backends"`
	Scanner    scanner   `yaml:"Scanner"`
	KeyValues  keyValues `yaml:"KeyValues"`
	Sinks      sinks     `yaml:"Sinks"`
}

type parameterSpec struct {
	Range      []float64 `yaml:"range"`
	Steps      int       `yaml:"steps"`
	FixedValue *float64  `yaml:"fixed_value"`
}

type obsLike struct {
	Capability string `yaml:"capability"`
	Purpose    string `yaml:"purpose"`
	Type       string `yaml:"type"`
	Function   string `yaml:"function"`
	Module     string `yaml:"module"`
	Label      string `yaml:"label"`
}

type rule struct {
	Capability string         `yaml:"capability"`
	Type       string         `yaml:"type"`
	Function   string         `yaml:"function"`
	Module     string         `yaml:"module"`
	Dependent  string         `yaml:"dependent"`
	Options    map[string]any `yaml:"options"`
}

type backend struct {
	Library    string   `yaml:"library"`
	Capability string   `yaml:"capability"`
	Version    string   `yaml:"version"`
	Versions   []string `yaml:"versions"`
}

type scanner struct {
	Source string               `yaml:"source"`
	Points int                  `yaml:"points"`
	Seed   uint64               `yaml:"seed"`
	List   []map[string]float64 `yaml:"list"`
}

type keyValues struct {
	Likelihood likelihood `yaml:"likelihood"`
}

type likelihood struct {
	Floor            *float64 `yaml:"model_invalid_for_lnlike_below"`
	MaxInvalidStreak int      `yaml:"max_invalid_streak"`
	Label            string   `yaml:"label"`
}

type sinks struct {
	Log      bool      `yaml:"log"`
	SocketIO *socketIO `yaml:"socketio"`
}

type socketIO struct {
	URL                string `yaml:"url"`
	Namespace          string `yaml:"namespace"`
	Event              string `yaml:"event"`
	ConnectTimeout     string `yaml:"connect_timeout"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}
