// Package sim turns a scenario config into a running kernel on the hostsim
// port: periodic tasks that burn a fixed number of ticks per period, burst
// tasks parked on semaphores, and a cron-driven injector that releases
// those semaphores to exercise preemption under irregular load.
package sim
