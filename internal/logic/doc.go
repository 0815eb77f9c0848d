// Package logic contains the pure decision logic of the monitor: task
// scheduling, alarm rules, display rotation, grow light timing and the
// switch toggle. It has no hardware, network or OS dependencies; time is
// always passed in.
package logic
