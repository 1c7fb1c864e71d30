// Package actuator turns dispatched whip commands into timed output pulses.
//
// Each side (left, right) has a SideTimer: a deadline plus a worker
// goroutine that holds the output ON while now < deadline. Commands extend
// the deadline additively, so rapid-fire commands stack into one long
// window instead of interrupting each other. The Controller pairs the two
// timers and maps command sides onto them.
//
// Outputs are behind the Driver interface. GPIODriver drives a real line
// through the Linux sysfs interface (with active-low inversion for relay
// boards); SimDriver just logs, for development machines and tests.
//
// Safety invariants:
//   - An output is ON if and only if its window covers now.
//   - Deadlines never move backwards; extensions never flicker the output.
//   - Worker shutdown (context cancel) forces the output OFF before exit.
package actuator
