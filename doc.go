// Package rtdevs simulates Classic DEVS model networks and can pace them
// against a physical clock.
//
// A model is either atomic (state plus the Lambda, DeltaInt, DeltaExt and TA
// functions) or coupled (child models wired together by couplings between
// their ports). The Simulator flattens the hierarchy once at construction and
// then runs the classic step protocol:
//
//  1. next = min(tLast + ta) over all atomic models
//  2. imminent models emit output (Lambda)
//  3. outputs propagate through couplings, bottom-up then top-down
//  4. imminent models run DeltaInt, models with input run DeltaExt
//  5. every bag is cleared
//
// # Example Usage
//
//	gen := models.NewGenerator("generator", 1)
//	proc := models.NewProcessor("processor", 2.1, nil)
//	root, err := rtdevs.NewBuilder("gp").
//		Component(gen).
//		Component(proc).
//		Couple("generator.out_job", "processor.in_job").
//		Build()
//	sim, err := rtdevs.NewSimulator(root)
//	sim.SimulateVT(0, 15)
//
// # Real-time execution
//
// SimulateRT hands every wait to a Pacer (see package realtime). A pacer may
// return a time earlier than the one it was asked to wait for; this means an
// exogenous event was written into the root model's input ports and the step
// runs as a non-imminent external transition at the returned time.
//
// # Confluent transitions
//
// When a model is imminent and has input in the same step, DeltaConf is called
// if the model implements Confluent. Otherwise DeltaInt runs first and then
// DeltaExt with an elapsed time of zero.
package rtdevs
