// Package runlog captures the console output of a run into a timestamped log file.
package runlog
