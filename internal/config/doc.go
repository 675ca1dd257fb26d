// Package config loads the conductor configuration file.
//
// The file is YAML. Every field is optional; missing fields take the values
// of GetDefaultConfig. A minimal file declaring a small graph looks like:
//
//	logging:
//	  level: debug
//	container:
//	  workers: 8
//	  shutdownTimeout: 10s
//	metrics:
//	  enabled: true
//	  listenAddress: localhost:9464
//	services:
//	  - name: db
//	    value: postgres://localhost/app
//	  - name: cache
//	    failStarts: 2
//	  - name: api
//	    dependencies: [db]
//	    optionalDependencies: [cache]
//	    startDelay: 200ms
//
// Service names use the canonical dotted form accepted by service.ParseName.
// Load and Parse reject unknown fields and return a ConfigurationError whose
// Err is a ValidationErrors value when validation failed.
package config
