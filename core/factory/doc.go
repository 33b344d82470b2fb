// Package factory provides a small generic registry used to instantiate
// modules such as metrics sinks from configuration. A module is defined by a
// type string and a map of raw settings; factories decode the settings into
// typed structs and return the concrete implementation.
//
//	reg := factory.NewRegistry[metrics.Sink]()
//	_ = reg.Register("prometheus", newPromSink)
//	sink, err := reg.Create(factory.ModuleConfig{Type: "prometheus"})
package factory
