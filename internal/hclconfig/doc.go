// Package hclconfig loads scan configuration written in HCL.
//
//	models = ["Toy"]
//
//	request "lnL_gauss" {
//	  purpose = "likelihood"
//	}
//
//	rule {
//	  capability = "EventLoop"
//	  options {
//	    workers = 4
//	  }
//	}
//
//	backend "ToyLib" {
//	  versions = ["1.0"]
//	}
//
//	scan {
//	  source = "grid"
//	  parameter "x" {
//	    min   = -1
//	    max   = 1
//	    steps = 5
//	  }
//	}
//
// Option blocks accept arbitrary attributes; their values are kept as cty
// values.
package hclconfig
