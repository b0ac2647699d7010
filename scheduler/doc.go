// Package scheduler drives periodic sink work from one background goroutine.
//
// All updaters share a single tick whose period is the smaller of a floor
// and the shortest period any updater asks for. Each tick calls Update on
// every updater in order with the current time and the time elapsed since
// the previous tick.
package scheduler
