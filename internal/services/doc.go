// Package services turns the service declarations of a configuration file
// into a running graph.
//
// Each declaration becomes a Scripted service: it waits for its start delay,
// fails a configured number of start attempts and then exposes a constant
// value. Scripted services have no side effects, which makes them useful for
// exploring how the container orders starts and stops, propagates failures
// and reacts to missing dependencies.
//
// Check builds the declared dependency graph without starting anything and
// returns the start order or the first cycle found. Install declares every
// service in one batch, so dependencies between declared services are never
// observed as missing.
//
// A Retrier can be attached as a listener to retry failed starts after a
// fixed backoff:
//
//	retrier := services.NewRetrier(time.Second, 3)
//	defer retrier.Stop()
//	scripted, err := services.Install(ct, cfg.Services, retrier)
//
// A Reconciler keeps a container in line with a changing list of
// declarations. Apply installs what is new, removes what disappeared,
// reinstalls what changed and switches modes in place.
package services
