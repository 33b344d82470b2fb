// Package scenario provides the built-in simulation presets and loads custom
// scenarios from YAML or JSON files.
//
// A scenario entry either spells out a full telemetry configuration or names
// a preset and overrides some of its fields:
//
//	simulations:
//	  - preset: car
//	    name: car-fast
//	    interval_ms: 250
package scenario
