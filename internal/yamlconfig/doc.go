// Package yamlconfig loads scan configuration from YAML documents laid out
// in sections:
//
//	Parameters:
//	  Toy:
//	    x: {range: [-1, 1], steps: 5}
//	ObsLikes:
//	  - {capability: lnL_gauss, purpose: LogLike}
//	Rules:
//	  - capability: EventLoop
//	    options: {workers: 4}
//	Backends:
//	  - {library: ToyLib, version: "1.0"}
//	Scanner:
//	  source: grid
//	KeyValues:
//	  likelihood:
//	    model_invalid_for_lnlike_below: -1e5
//
// The keys of Parameters are the active models, in document order.
package yamlconfig
