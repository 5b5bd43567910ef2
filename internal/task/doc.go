// Package task runs scheduled task capabilities on cron schedules. Each
// firing is isolated: an error or panic is logged against the task name and
// the schedule keeps firing. Schedules are grouped by owning package so a
// reload can cancel them.
package task
